package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	"github.com/angelmondragon/swapmeet-backend/pkg/checkout"
	"github.com/angelmondragon/swapmeet-backend/pkg/types"
)

const taxLineName = "Sales tax"

var errNoLineItems = errors.New("checkout session requires at least one line item")

// SessionRequest describes a hosted checkout for one buyer.
type SessionRequest struct {
	BuyerID    uuid.UUID
	BuyerEmail string
	LineItems  types.LineItems
	Tax        decimal.Decimal
}

// CreatedSession is what the buyer is redirected to.
type CreatedSession struct {
	ID          string
	RedirectURL string
	AmountTotal decimal.Decimal
}

// SessionStatus is the gateway's view of a checkout session.
type SessionStatus struct {
	Paid        bool
	AmountTotal decimal.Decimal
	Currency    string
}

// sessionAPI is the subset of the checkout session resource the gateway uses.
type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type packageSessionAPI struct{}

func (packageSessionAPI) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}

func (packageSessionAPI) Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.Get(id, params)
}

// CheckoutGateway creates and inspects Stripe Checkout sessions.
type CheckoutGateway struct {
	client   *Client
	sessions sessionAPI
}

// NewCheckoutGateway binds the gateway to an initialized client.
func NewCheckoutGateway(client *Client) (*CheckoutGateway, error) {
	if client == nil {
		return nil, errors.New("stripe client required")
	}
	return &CheckoutGateway{client: client, sessions: packageSessionAPI{}}, nil
}

// CreateSession opens a payment-mode checkout session for the given lines.
func (g *CheckoutGateway) CreateSession(ctx context.Context, req SessionRequest) (*CreatedSession, error) {
	if len(req.LineItems) == 0 {
		return nil, errNoLineItems
	}

	currency := g.client.Currency()
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.client.successURL),
		CancelURL:         stripe.String(g.client.cancelURL),
		ClientReferenceID: stripe.String(req.BuyerID.String()),
	}
	if email := strings.TrimSpace(req.BuyerEmail); email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	params.Context = ctx
	params.AddMetadata("buyer_id", req.BuyerID.String())

	for _, item := range req.LineItems {
		params.LineItems = append(params.LineItems, lineItemParams(currency, item.Title, item.ListingID.String(), checkout.ToMinorUnits(item.UnitPrice), int64(item.Quantity)))
	}
	if req.Tax.IsPositive() {
		params.LineItems = append(params.LineItems, lineItemParams(currency, taxLineName, "", checkout.ToMinorUnits(req.Tax), 1))
	}

	sess, err := g.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CreatedSession{
		ID:          sess.ID,
		RedirectURL: sess.URL,
		AmountTotal: checkout.FromMinorUnits(sess.AmountTotal),
	}, nil
}

// GetSessionStatus reports whether the session has been paid.
func (g *CheckoutGateway) GetSessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := g.sessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	return &SessionStatus{
		Paid:        isPaid(sess),
		AmountTotal: checkout.FromMinorUnits(sess.AmountTotal),
		Currency:    string(sess.Currency),
	}, nil
}

func isPaid(sess *stripe.CheckoutSession) bool {
	if sess == nil {
		return false
	}
	switch sess.PaymentStatus {
	case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return true
	}
	return false
}

func lineItemParams(currency, name, listingID string, unitAmount, quantity int64) *stripe.CheckoutSessionLineItemParams {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(name),
	}
	if listingID != "" {
		product.Metadata = map[string]string{"listing_id": listingID}
	}
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:    stripe.String(currency),
			ProductData: product,
			UnitAmount:  stripe.Int64(unitAmount),
		},
		Quantity: stripe.Int64(quantity),
	}
}
