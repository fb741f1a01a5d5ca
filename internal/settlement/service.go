package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/internal/listings"
	"github.com/angelmondragon/swapmeet-backend/pkg/db"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	"github.com/angelmondragon/swapmeet-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
	"github.com/angelmondragon/swapmeet-backend/pkg/metrics"
	"github.com/angelmondragon/swapmeet-backend/pkg/outbox"
	"github.com/angelmondragon/swapmeet-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/swapmeet-backend/pkg/stripe"
)

// Outcome describes how a reconcile call ended.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeAlreadyExists Outcome = "already_exists"
	OutcomeNotPaid       Outcome = "not_paid"
)

// Result is returned by Reconcile. Order and Payment are set whenever Paid is.
type Result struct {
	Paid    bool            `json:"paid"`
	Outcome Outcome         `json:"outcome"`
	Order   *models.Order   `json:"order,omitempty"`
	Payment *models.Payment `json:"payment,omitempty"`
}

// SweepParams bounds a background sweep over pending payments.
type SweepParams struct {
	MinAge time.Duration
	MaxAge time.Duration
	Limit  int
}

// SweepResult summarizes a sweep.
type SweepResult struct {
	Scanned int
	Settled int
	NotPaid int
	Failed  int
}

// Gateway reports the payment status of a checkout session.
type Gateway interface {
	GetSessionStatus(ctx context.Context, sessionID string) (*stripe.SessionStatus, error)
}

type cartCleaner interface {
	RemoveListings(ctx context.Context, buyerID uuid.UUID, listingIDs []uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service turns confirmed gateway payments into orders.
type Service interface {
	Reconcile(ctx context.Context, sessionID string) (*Result, error)
	SweepPending(ctx context.Context, params SweepParams) (*SweepResult, error)
}

// ServiceParams groups the reconciler's collaborators.
type ServiceParams struct {
	Tx       txRunner
	Store    Store
	Listings *listings.Repository
	Gateway  Gateway
	Carts    cartCleaner
	Outbox   outbox.Emitter
	Metrics  *metrics.EngineMetrics
	Logger   *logger.Logger
	TaxRate  decimal.Decimal
}

type service struct {
	tx       txRunner
	store    Store
	listings *listings.Repository
	gateway  Gateway
	carts    cartCleaner
	outbox   outbox.Emitter
	metrics  *metrics.EngineMetrics
	logg     *logger.Logger
	taxRate  decimal.Decimal
	now      func() time.Time
}

// NewService wires the settlement reconciler.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, errors.New("transaction runner required")
	case params.Store == nil:
		return nil, errors.New("settlement store required")
	case params.Listings == nil:
		return nil, errors.New("listings repository required")
	case params.Gateway == nil:
		return nil, errors.New("payment gateway required")
	case params.Outbox == nil:
		return nil, errors.New("outbox emitter required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.TaxRate.IsNegative():
		return nil, errors.New("tax rate must not be negative")
	}
	return &service{
		tx:       params.Tx,
		store:    params.Store,
		listings: params.Listings,
		gateway:  params.Gateway,
		carts:    params.Carts,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		taxRate:  params.TaxRate,
		now:      time.Now,
	}, nil
}

func (s *service) Reconcile(ctx context.Context, sessionID string) (*Result, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	ctx = s.logg.WithSessionID(ctx, sessionID)

	result, err := s.reconcile(ctx, sessionID)
	if err != nil {
		s.metrics.IncSettlement("error")
		return nil, err
	}
	s.metrics.IncSettlement(string(result.Outcome))
	return result, nil
}

func (s *service) reconcile(ctx context.Context, sessionID string) (*Result, error) {
	pending, err := s.store.FindPendingBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown checkout session")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending payment")
	}

	// the gateway is asked before anything is written
	status, err := s.gateway.GetSessionStatus(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
	}
	if status == nil || !status.Paid {
		return &Result{Paid: false, Outcome: OutcomeNotPaid}, nil
	}

	existing, err := s.store.FindOrderBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if existing != nil {
		return s.alreadySettled(ctx, existing)
	}

	totals := ledgerTotals(pending, s.taxRate)
	if amountsDiffer(totals.Total, status.AmountTotal) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"ledger_total":  totals.Total.StringFixed(2),
			"gateway_total": status.AmountTotal.StringFixed(2),
		}), "gateway amount differs from ledger; settling with ledger totals")
	}

	currency := pending.Currency
	if currency == "" {
		currency = status.Currency
	}
	order := &models.Order{
		ID:          uuid.New(),
		BuyerID:     pending.BuyerID,
		SessionID:   sessionID,
		LineItems:   pending.LineItems,
		Subtotal:    totals.Subtotal,
		Tax:         totals.Tax,
		TotalAmount: totals.Total,
		Currency:    currency,
		Status:      enums.OrderStatusPaid,
		CreatedAt:   s.now().UTC(),
	}
	payment := &models.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		SessionID: sessionID,
		Status:    enums.PaymentStatusCompleted,
		Amount:    totals.Total,
		Currency:  currency,
		CreatedAt: order.CreatedAt,
	}
	listingIDs := pending.LineItems.ListingIDs()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		store := s.store.WithTx(tx)
		if err := store.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := store.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		if _, err := store.CompletePending(ctx, sessionID, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete pending payment")
		}
		if _, err := s.listings.WithTx(tx).MarkSold(ctx, listingIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark listings sold")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderSettled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: pending.BuyerID, Role: "buyer"},
			Data: payloads.OrderSettledEvent{
				OrderID:     order.ID,
				PaymentID:   payment.ID,
				SessionID:   sessionID,
				BuyerID:     pending.BuyerID,
				ListingIDs:  listingIDs,
				TotalAmount: order.TotalAmount,
				Currency:    currency,
			},
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			// another reconcile got there first
			return s.recoverConflict(ctx, sessionID)
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle order")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"total":    order.TotalAmount.StringFixed(2),
	}), "order settled")

	if s.carts != nil {
		if err := s.carts.RemoveListings(ctx, pending.BuyerID, listingIDs); err != nil {
			s.logg.Warn(ctx, "purchased listings left in cart: "+err.Error())
		}
	}
	return &Result{Paid: true, Outcome: OutcomeCreated, Order: order, Payment: payment}, nil
}

func (s *service) recoverConflict(ctx context.Context, sessionID string) (*Result, error) {
	winner, err := s.store.FindOrderBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settled order")
	}
	if winner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order conflict without a settled order")
	}
	return s.alreadySettled(ctx, winner)
}

func (s *service) alreadySettled(ctx context.Context, order *models.Order) (*Result, error) {
	payment, err := s.store.FindPaymentByOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return &Result{Paid: true, Outcome: OutcomeAlreadyExists, Order: order, Payment: payment}, nil
}

// SweepPending reconciles pending payments that have been waiting longer
// than MinAge. Failures are counted and logged; the sweep continues.
func (s *service) SweepPending(ctx context.Context, params SweepParams) (*SweepResult, error) {
	now := s.now().UTC()
	var after time.Time
	if params.MaxAge > 0 {
		after = now.Add(-params.MaxAge)
	}
	rows, err := s.store.ListStalePending(ctx, now.Add(-params.MinAge), after, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending payments")
	}

	out := &SweepResult{Scanned: len(rows)}
	var errs error
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return out, multierr.Append(errs, err)
		}
		res, err := s.Reconcile(ctx, row.SessionID)
		if err != nil {
			out.Failed++
			errs = multierr.Append(errs, fmt.Errorf("session %s: %w", row.SessionID, err))
			continue
		}
		if res.Paid {
			out.Settled++
		} else {
			out.NotPaid++
		}
	}
	if errs != nil {
		s.logg.Warn(s.logg.WithField(ctx, "failed", out.Failed), "settlement sweep finished with failures: "+errs.Error())
	}
	return out, nil
}
