package checkout

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
)

// LineValidationInput describes the data required to verify a cart line is purchasable.
type LineValidationInput struct {
	ListingID uuid.UUID
	Title     string
	Available bool
	Quantity  int
	UnitPrice decimal.Decimal
}

// LineViolationDetail exposes the data returned to callers when a validation fails.
type LineViolationDetail struct {
	ListingID uuid.UUID `json:"listing_id"`
	Title     string    `json:"title,omitempty"`
	Reason    string    `json:"reason"`
}

const (
	ReasonUnavailable     = "listing_unavailable"
	ReasonInvalidQuantity = "invalid_quantity"
	ReasonInvalidPrice    = "invalid_price"
)

// ValidateLines ensures every line refers to an available listing with a
// positive quantity and price.
func ValidateLines(items []LineValidationInput) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	var violations []LineViolationDetail
	for _, item := range items {
		reason := ""
		switch {
		case !item.Available:
			reason = ReasonUnavailable
		case item.Quantity < 1:
			reason = ReasonInvalidQuantity
		case !item.UnitPrice.IsPositive():
			reason = ReasonInvalidPrice
		}
		if reason == "" {
			continue
		}
		violations = append(violations, LineViolationDetail{
			ListingID: item.ListingID,
			Title:     item.Title,
			Reason:    reason,
		})
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("%d cart item(s) cannot be purchased", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}
