package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/swapmeet-backend/internal/cart"
	"github.com/angelmondragon/swapmeet-backend/internal/users"
	pkgcheckout "github.com/angelmondragon/swapmeet-backend/pkg/checkout"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	"github.com/angelmondragon/swapmeet-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
	"github.com/angelmondragon/swapmeet-backend/pkg/stripe"
)

// Session is what the buyer needs to complete payment.
type Session struct {
	SessionID   string          `json:"sessionId"`
	RedirectURL string          `json:"redirectUrl"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Amount      decimal.Decimal `json:"amount"`
}

// Gateway opens hosted payment sessions.
type Gateway interface {
	CreateSession(ctx context.Context, req stripe.SessionRequest) (*stripe.CreatedSession, error)
}

type cartReader interface {
	GetCart(ctx context.Context, buyerID uuid.UUID) (*cart.View, error)
}

type pendingWriter interface {
	CreatePending(ctx context.Context, pending *models.PendingPayment) error
}

// Service starts checkouts.
type Service interface {
	StartCheckout(ctx context.Context, buyerID uuid.UUID) (*Session, error)
}

// ServiceParams groups the checkout starter's collaborators.
type ServiceParams struct {
	Carts    cartReader
	Users    users.Resolver
	Gateway  Gateway
	Pending  pendingWriter
	Logger   *logger.Logger
	TaxRate  decimal.Decimal
	Currency string
}

type service struct {
	carts    cartReader
	users    users.Resolver
	gateway  Gateway
	pending  pendingWriter
	logg     *logger.Logger
	taxRate  decimal.Decimal
	currency string
}

// NewService builds the checkout starter.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Carts == nil:
		return nil, errors.New("cart service required")
	case params.Users == nil:
		return nil, errors.New("user resolver required")
	case params.Gateway == nil:
		return nil, errors.New("payment gateway required")
	case params.Pending == nil:
		return nil, errors.New("pending payment store required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "usd"
	}
	return &service{
		carts:    params.Carts,
		users:    params.Users,
		gateway:  params.Gateway,
		pending:  params.Pending,
		logg:     params.Logger,
		taxRate:  params.TaxRate,
		currency: currency,
	}, nil
}

func (s *service) StartCheckout(ctx context.Context, buyerID uuid.UUID) (*Session, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	ctx = s.logg.WithUserID(ctx, buyerID.String())

	view, err := s.carts.GetCart(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if err := pkgcheckout.ValidateLines(validationInputs(view)); err != nil {
		return nil, err
	}

	buyer, err := s.users.Resolve(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	lines := view.LineItems()
	totals := pkgcheckout.ComputeTotals(lines, s.taxRate)

	created, err := s.gateway.CreateSession(ctx, stripe.SessionRequest{
		BuyerID:    buyerID,
		BuyerEmail: buyer.Email,
		LineItems:  lines,
		Tax:        totals.Tax,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
	}
	ctx = s.logg.WithSessionID(ctx, created.ID)

	if err := s.pending.CreatePending(ctx, &models.PendingPayment{
		SessionID: created.ID,
		BuyerID:   buyerID,
		Amount:    totals.Total,
		Currency:  s.currency,
		LineItems: lines,
		Status:    enums.PendingPaymentStatusPending,
	}); err != nil {
		// the gateway session is abandoned and expires on its own
		s.logg.Error(ctx, "pending payment not recorded", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record pending payment")
	}

	s.logg.Info(s.logg.WithField(ctx, "amount", totals.Total.StringFixed(2)), "checkout started")
	return &Session{
		SessionID:   created.ID,
		RedirectURL: created.RedirectURL,
		Subtotal:    totals.Subtotal,
		Tax:         totals.Tax,
		Amount:      totals.Total,
	}, nil
}

func validationInputs(view *cart.View) []pkgcheckout.LineValidationInput {
	if view == nil {
		return nil
	}
	out := make([]pkgcheckout.LineValidationInput, 0, len(view.Items))
	for _, item := range view.Items {
		out = append(out, pkgcheckout.LineValidationInput{
			ListingID: item.ListingID,
			Title:     item.Title,
			Available: item.Available,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}
	return out
}
