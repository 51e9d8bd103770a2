package handlers

import (
	"context"
	"net/http"

	"github.com/agriland/marketplace/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RelationHandler serves the saved-listings, cart and preference endpoints.
type RelationHandler struct {
	relations *services.RelationService
	logger    *zap.Logger
}

func NewRelationHandler(relations *services.RelationService, logger *zap.Logger) *RelationHandler {
	return &RelationHandler{relations: relations, logger: logger}
}

// RelationRouter registers relation routes; all of them require a token.
func RelationRouter(r chi.Router, handler *RelationHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/save-listing/{id}", handler.SaveListing)
		r.Delete("/remove-saved/{id}", handler.RemoveSaved)
		r.Get("/saved-listings", handler.SavedListings)
		r.Post("/add-to-cart/{id}", handler.AddToCart)
		r.Delete("/remove-cart/{id}", handler.RemoveFromCart)
		r.Get("/cart-listings", handler.CartListings)
		r.Post("/move-to-cart/{id}", handler.MoveToCart)
		r.Post("/save-preferences", handler.SavePreferences)
	})
}

// mutate runs a relation change for the authenticated user and the {id}
// path parameter.
func (h *RelationHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, listingID string) error, okMsg, internalMsg string) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := fn(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err, internalMsg)
		return
	}
	writeMessage(w, http.StatusOK, okMsg)
}

func (h *RelationHandler) SaveListing(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.relations.Save, "listing saved", "failed to save listing")
}

func (h *RelationHandler) RemoveSaved(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.relations.Unsave, "listing removed from saved", "failed to remove saved listing")
}

func (h *RelationHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.relations.AddToCart, "listing added to cart", "failed to add to cart")
}

func (h *RelationHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.relations.RemoveFromCart, "listing removed from cart", "failed to remove from cart")
}

// MoveToCart moves a saved listing into the cart in one update.
func (h *RelationHandler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.relations.MoveToCart, "listing moved to cart", "failed to move listing to cart")
}

func (h *RelationHandler) SavedListings(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	listings, err := h.relations.SavedListings(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to fetch saved listings")
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *RelationHandler) CartListings(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	listings, err := h.relations.CartListings(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to fetch cart")
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *RelationHandler) SavePreferences(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req PreferencesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.relations.SetPreferredLocations(r.Context(), claims.UserID, req.PreferredLocations); err != nil {
		writeServiceError(w, h.logger, err, "failed to save preferences")
		return
	}
	writeMessage(w, http.StatusOK, "preferences saved")
}

type PreferencesRequest struct {
	PreferredLocations []string `json:"preferredLocations"`
}
