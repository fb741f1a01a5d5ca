package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/swapmeet-backend/api/responses"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
)

// Stripe caps event payloads well below this.
const maxPayloadBytes = 64 << 10

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type stripeClient interface {
	SigningSecret() string
}

type stripeEndpoint struct {
	svc    StripeWebhookService
	client stripeClient
	guard  stripeWebhookGuard
	logg   *logger.Logger
}

// StripeWebhook verifies and dispatches checkout events. A redelivered event id
// is acknowledged without work; a failed event drops its mark so the next
// delivery runs again.
func StripeWebhook(svc StripeWebhookService, client stripeClient, guard stripeWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	e := &stripeEndpoint{svc: svc, client: client, guard: guard, logg: logg}
	return e.serve
}

func (e *stripeEndpoint) ready() error {
	switch {
	case e.svc == nil:
		return pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable")
	case e.client == nil:
		return pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable")
	case e.guard == nil:
		return pkgerrors.New(pkgerrors.CodeInternal, "webhook guard unavailable")
	}
	return nil
}

func (e *stripeEndpoint) serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := e.ready(); err != nil {
		responses.WriteError(ctx, e.logg, w, err)
		return
	}

	event, err := e.verify(w, r)
	if err != nil {
		responses.WriteError(ctx, e.logg, w, err)
		return
	}
	if e.logg != nil {
		ctx = e.logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": string(event.Type)})
	}

	seen, err := e.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		responses.WriteError(ctx, e.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook delivery"))
		return
	}
	if seen {
		e.debug(ctx, "webhook.stripe.duplicate")
		responses.WriteSuccess(w, nil)
		return
	}

	if err := e.svc.HandleEvent(ctx, &event); err != nil {
		if delErr := e.guard.Delete(ctx, event.ID); delErr != nil && e.logg != nil {
			e.logg.Warn(e.logg.WithField(ctx, "release_error", delErr.Error()), "webhook.stripe.release_failed")
		}
		responses.WriteError(ctx, e.logg, w, err)
		return
	}

	if e.logg != nil {
		e.logg.Info(ctx, "webhook.stripe.processed")
	}
	responses.WriteSuccess(w, nil)
}

// verify reads the bounded body and checks the signature. Both failures are
// the sender's problem, so they map to validation errors.
func (e *stripeEndpoint) verify(w http.ResponseWriter, r *http.Request) (stripe.Event, error) {
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing")
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return stripe.Event{}, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload too large")
		}
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read webhook body")
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, e.client.SigningSecret(), webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "stripe signature invalid")
	}
	return event, nil
}

func (e *stripeEndpoint) debug(ctx context.Context, msg string) {
	if e.logg != nil {
		e.logg.Debug(ctx, msg)
	}
}
