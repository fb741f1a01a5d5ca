package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/swapmeet-backend/internal/cart"
	"github.com/angelmondragon/swapmeet-backend/internal/removal"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
)

type stubCart struct {
	added   cart.AddItemInput
	removed uuid.UUID
}

func (s *stubCart) GetCart(_ context.Context, buyerID uuid.UUID) (*cart.View, error) {
	return &cart.View{BuyerID: buyerID, Items: []cart.ViewItem{}, Total: decimal.Zero}, nil
}

func (s *stubCart) AddItem(_ context.Context, input cart.AddItemInput) (*cart.View, error) {
	s.added = input
	return &cart.View{BuyerID: input.BuyerID, ItemCount: input.Quantity}, nil
}

func (s *stubCart) RemoveItem(_ context.Context, buyerID, listingID uuid.UUID) (*cart.View, error) {
	s.removed = listingID
	return &cart.View{BuyerID: buyerID}, nil
}

func (s *stubCart) RemoveListings(context.Context, uuid.UUID, []uuid.UUID) error {
	return nil
}

func TestCartAddItemDefaultsQuantity(t *testing.T) {
	svc := &stubCart{}
	buyer := uuid.New()
	listingID := uuid.New()

	resp := httptest.NewRecorder()
	CartAddItem(svc, testLogger())(resp, newRequest(http.MethodPost, "/api/v1/cart/items", `{"listingId":"`+listingID.String()+`"}`, buyer, nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, cart.AddItemInput{BuyerID: buyer, ListingID: listingID, Quantity: 1}, svc.added)
}

func TestCartAddItemValidatesQuantity(t *testing.T) {
	resp := httptest.NewRecorder()
	body := `{"listingId":"` + uuid.NewString() + `","quantity":100}`
	CartAddItem(&stubCart{}, testLogger())(resp, newRequest(http.MethodPost, "/api/v1/cart/items", body, uuid.New(), nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCartRemoveItem(t *testing.T) {
	svc := &stubCart{}
	listingID := uuid.New()
	resp := httptest.NewRecorder()
	CartRemoveItem(svc, testLogger())(resp, newRequest(http.MethodDelete, "/", "", uuid.New(), map[string]string{"listingId": listingID.String()}))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, listingID, svc.removed)
}

type stubRemoval struct {
	input removal.RemoveListingInput
	err   error
}

func (s *stubRemoval) RemoveListing(_ context.Context, input removal.RemoveListingInput) (*removal.Result, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &removal.Result{OffersDeleted: 2, CartEntriesUpdated: 1}, nil
}

func TestDeleteListingHandler(t *testing.T) {
	seller := uuid.New()
	listingID := uuid.New()
	svc := &stubRemoval{}

	resp := httptest.NewRecorder()
	DeleteListing(svc, testLogger())(resp, newRequest(http.MethodDelete, "/", "", seller, map[string]string{"listingId": listingID.String()}))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, removal.RemoveListingInput{ListingID: listingID, ActorID: seller}, svc.input)

	var data map[string]float64
	decodeEnvelope(t, resp, &data)
	assert.Equal(t, float64(2), data["offersDeleted"])
	assert.Equal(t, float64(1), data["cartEntriesUpdated"])

	svc.err = pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can remove a listing")
	resp = httptest.NewRecorder()
	DeleteListing(svc, testLogger())(resp, newRequest(http.MethodDelete, "/", "", uuid.New(), map[string]string{"listingId": listingID.String()}))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}
