package checkout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
)

func TestValidateLines_NoViolations(t *testing.T) {
	items := []LineValidationInput{
		{ListingID: uuid.New(), Title: "Desk Lamp", Available: true, Quantity: 1, UnitPrice: decimal.RequireFromString("12.50")},
		{ListingID: uuid.New(), Title: "Bookshelf", Available: true, Quantity: 2, UnitPrice: decimal.RequireFromString("40")},
	}
	if err := ValidateLines(items); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateLines_Empty(t *testing.T) {
	err := ValidateLines(nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty cart, got %v", err)
	}
}

func TestValidateLines_Violations(t *testing.T) {
	sold := uuid.New()
	items := []LineValidationInput{
		{ListingID: sold, Title: "Sold Chair", Available: false, Quantity: 1, UnitPrice: decimal.RequireFromString("10")},
		{ListingID: uuid.New(), Title: "Zero Qty", Available: true, Quantity: 0, UnitPrice: decimal.RequireFromString("10")},
		{ListingID: uuid.New(), Title: "Fine", Available: true, Quantity: 1, UnitPrice: decimal.RequireFromString("10")},
	}
	err := ValidateLines(items)
	if err == nil {
		t.Fatal("expected error for violations")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected pkgerrors.Error, got %T", err)
	}
	if typed.Code() != pkgerrors.CodeInvalidState {
		t.Fatalf("expected code %s, got %s", pkgerrors.CodeInvalidState, typed.Code())
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	violations, ok := details["violations"].([]LineViolationDetail)
	if !ok {
		t.Fatalf("expected violations slice, got %T", details["violations"])
	}
	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(violations))
	}
	if violations[0].ListingID != sold || violations[0].Reason != ReasonUnavailable {
		t.Fatalf("unexpected first violation %+v", violations[0])
	}
}
