package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/swapmeet-backend/api/responses"
	"github.com/angelmondragon/swapmeet-backend/api/validators"
	"github.com/angelmondragon/swapmeet-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
)

type addCartItemRequest struct {
	ListingID uuid.UUID `json:"listingId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"omitempty,min=1,max=99"`
}

// CartFetch returns the caller's cart with prices derived from listing state.
func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		buyerID, ok := callerID(w, r, logg)
		if !ok {
			return
		}
		view, err := svc.GetCart(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAddItem puts a listing in the caller's cart.
func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		buyerID, ok := callerID(w, r, logg)
		if !ok {
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity := payload.Quantity
		if quantity == 0 {
			quantity = 1
		}

		view, err := svc.AddItem(r.Context(), cart.AddItemInput{
			BuyerID:   buyerID,
			ListingID: payload.ListingID,
			Quantity:  quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartRemoveItem drops one listing from the caller's cart.
func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		buyerID, ok := callerID(w, r, logg)
		if !ok {
			return
		}
		listingID, ok := pathUUID(w, r, logg, "listingId")
		if !ok {
			return
		}
		view, err := svc.RemoveItem(r.Context(), buyerID, listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
