package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/swapmeet-backend/api/responses"
	"github.com/angelmondragon/swapmeet-backend/api/validators"
	"github.com/angelmondragon/swapmeet-backend/internal/offers"
	"github.com/angelmondragon/swapmeet-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
)

type placeOfferRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"required"`
}

type offerStatusRequest struct {
	Status string           `json:"status" validate:"required,oneof=accepted rejected"`
	Amount *decimal.Decimal `json:"amount"`
}

// PlaceOffer records a bid from the caller on a listing.
func PlaceOffer(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offer service unavailable"))
			return
		}
		bidderID, ok := callerID(w, r, logg)
		if !ok {
			return
		}
		listingID, ok := pathUUID(w, r, logg, "listingId")
		if !ok {
			return
		}

		var payload placeOfferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offer, err := svc.PlaceOffer(r.Context(), offers.PlaceOfferInput{
			ListingID: listingID,
			BidderID:  bidderID,
			Amount:    *payload.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, offer)
	}
}

// ListListingOffers returns every offer on a listing, newest first.
func ListListingOffers(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offer service unavailable"))
			return
		}
		listingID, ok := pathUUID(w, r, logg, "listingId")
		if !ok {
			return
		}
		list, err := svc.GetOffersForListing(r.Context(), listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListMyOffers returns the caller's own bids.
func ListMyOffers(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offer service unavailable"))
			return
		}
		bidderID, ok := callerID(w, r, logg)
		if !ok {
			return
		}
		list, err := svc.GetOffersForBidder(r.Context(), bidderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// SetOfferStatus lets the seller accept or reject a pending offer.
func SetOfferStatus(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offer service unavailable"))
			return
		}
		sellerID, ok := callerID(w, r, logg)
		if !ok {
			return
		}
		offerID, ok := pathUUID(w, r, logg, "offerId")
		if !ok {
			return
		}

		var payload offerStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOfferStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		result, err := svc.SetOfferStatus(r.Context(), offers.SetOfferStatusInput{
			OfferID: offerID,
			Status:  status,
			Amount:  payload.Amount,
			ActorID: sellerID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
