package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/swapmeet-backend/internal/settlement"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
)

type reconciler interface {
	Reconcile(ctx context.Context, sessionID string) (*settlement.Result, error)
}

type ServiceParams struct {
	Settlement reconciler
	Logger     *logger.Logger
}

// Service routes checkout session events into settlement.
type Service struct {
	settlement reconciler
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Settlement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement reconciler required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{settlement: params.Settlement, logg: params.Logger}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
		}
		if strings.TrimSpace(session.ID) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
		}
		return s.reconcile(ctx, session.ID)
	default:
		return nil
	}
}

func (s *Service) reconcile(ctx context.Context, sessionID string) error {
	ctx = s.logg.WithSessionID(ctx, sessionID)
	result, err := s.settlement.Reconcile(ctx, sessionID)
	if err != nil {
		// sessions opened outside this engine share the Stripe account
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(ctx, "checkout session not tracked; event ignored")
			return nil
		}
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "outcome", string(result.Outcome)), "checkout session reconciled")
	return nil
}
