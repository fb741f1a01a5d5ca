package controllers

import (
	"net/http"

	"github.com/angelmondragon/swapmeet-backend/api/responses"
	"github.com/angelmondragon/swapmeet-backend/internal/removal"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
)

// DeleteListing removes a listing owned by the caller along with its dependents.
func DeleteListing(svc removal.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "removal service unavailable"))
			return
		}
		sellerID, ok := callerID(w, r, logg)
		if !ok {
			return
		}
		listingID, ok := pathUUID(w, r, logg, "listingId")
		if !ok {
			return
		}

		result, err := svc.RemoveListing(r.Context(), removal.RemoveListingInput{ListingID: listingID, ActorID: sellerID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
