package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/swapmeet-backend/api/responses"
	"github.com/angelmondragon/swapmeet-backend/api/validators"
	"github.com/angelmondragon/swapmeet-backend/internal/checkout"
	"github.com/angelmondragon/swapmeet-backend/internal/settlement"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
)

type sessionReconciler interface {
	Reconcile(ctx context.Context, sessionID string) (*settlement.Result, error)
}

// Checkout opens a hosted payment session for the caller's cart.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		buyerID, ok := callerID(w, r, logg)
		if !ok {
			return
		}
		session, err := svc.StartCheckout(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// CheckoutConfirm settles a session when the buyer returns from the gateway.
// Unpaid sessions answer {paid:false}; repeated confirms return the same order.
func CheckoutConfirm(svc sessionReconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		buyerID, ok := callerID(w, r, logg)
		if !ok {
			return
		}
		sessionID, err := validators.ParseSessionID(chi.URLParam(r, "sessionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSessionID(ctx, sessionID)
		}
		result, err := svc.Reconcile(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if result.Paid && result.Order != nil && result.Order.BuyerID != buyerID {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found"))
			return
		}
		responses.WriteSuccess(w, result)
	}
}
