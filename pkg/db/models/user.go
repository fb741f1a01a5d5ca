package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity record the engine resolves buyers and sellers against.
// Credentials live with the identity service and are not mapped here.
type User struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email       string    `gorm:"column:email;type:text;not null;uniqueIndex"`
	DisplayName string    `gorm:"column:display_name;type:text;not null"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
