package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agriland/marketplace/internal/services"
	"github.com/agriland/marketplace/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxMultipartMemory = 32 << 20
	maxUploadBytes     = 20 << 20
	maxFilesPerField   = 10

	// Every permitted file at its size limit plus room for the text fields.
	maxSellLandBytes = 2*maxFilesPerField*maxUploadBytes + 1<<20

	formFieldImages    = "images"
	formFieldDocuments = "documents"
)

// BlobStore uploads listing files and removes them again.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	DeleteRef(ctx context.Context, ref string) error
}

// ListingHandler provides HTTP handlers for land listings.
type ListingHandler struct {
	listings *services.ListingService
	users    *services.UserService
	blobs    BlobStore
	logger   *zap.Logger

	maxBodyBytes int64
}

func NewListingHandler(listings *services.ListingService, users *services.UserService, blobs BlobStore, logger *zap.Logger) *ListingHandler {
	return &ListingHandler{
		listings:     listings,
		users:        users,
		blobs:        blobs,
		logger:       logger,
		maxBodyBytes: maxSellLandBytes,
	}
}

// ListingRouter registers listing routes. Browsing is public; everything
// else goes through authMiddleware.
func ListingRouter(r chi.Router, handler *ListingHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/get-lands", handler.GetLands)
	r.Get("/get-land/{id}", handler.GetLand)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(RequireRole(types.RoleSeller)).Post("/sell-land", handler.SellLand)
		r.With(RequireRole(types.RoleSeller)).Get("/seller-profile", handler.SellerProfile)
		r.Get("/my-listings", handler.MyListings)
		r.Delete("/delete-listing/{id}", handler.DeleteListing)
		r.Patch("/mark-sold/{id}", handler.MarkSold)
		r.Post("/inquire/{id}", handler.Inquire)
	})
}

// SellLand creates a listing from a multipart form with optional images[]
// and documents[] files.
func (h *ListingHandler) SellLand(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if r.ContentLength > h.maxBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	listing, err := parseListingForm(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var uploaded []string
	cleanup := func() {
		for _, ref := range uploaded {
			if err := h.blobs.DeleteRef(context.WithoutCancel(r.Context()), ref); err != nil {
				h.logger.Warn("failed to remove orphaned upload", zap.String("ref", ref), zap.Error(err))
			}
		}
	}

	listing.Images, err = h.upload(r, formFieldImages, &uploaded)
	if err == nil {
		listing.Documents, err = h.upload(r, formFieldDocuments, &uploaded)
	}
	if err != nil {
		cleanup()
		var uploadErr uploadError
		if errors.As(err, &uploadErr) {
			writeError(w, http.StatusBadRequest, uploadErr.Error())
			return
		}
		h.logger.Error("failed to store upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	created, err := h.listings.Create(r.Context(), claims.UserID, listing)
	if err != nil {
		cleanup()
		writeServiceError(w, h.logger, err, "failed to create listing")
		return
	}

	writeJSON(w, http.StatusCreated, CreateListingResponse{
		Message: "land listing created successfully",
		Listing: created,
	})
}

type uploadError struct{ msg string }

func (e uploadError) Error() string { return e.msg }

// upload stores every file of a form field under "<field>/<uuid><ext>" and
// returns their references in upload order.
func (h *ListingHandler) upload(r *http.Request, field string, uploaded *[]string) ([]string, error) {
	if r.MultipartForm == nil {
		return []string{}, nil
	}
	files := r.MultipartForm.File[field]
	if len(files) > maxFilesPerField {
		return nil, uploadError{fmt.Sprintf("at most %d %s are allowed", maxFilesPerField, field)}
	}

	refs := make([]string, 0, len(files))
	for _, header := range files {
		if header.Size > maxUploadBytes {
			return nil, uploadError{fmt.Sprintf("%s exceeds the upload size limit", header.Filename)}
		}
		ref, err := h.store(r.Context(), field, header)
		if err != nil {
			return nil, err
		}
		*uploaded = append(*uploaded, ref)
		refs = append(refs, ref)
	}
	return refs, nil
}

func (h *ListingHandler) store(ctx context.Context, field string, header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", uploadError{"failed to read " + header.Filename}
	}
	defer file.Close()

	key := field + "/" + uuid.NewString() + uploadExtension(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return h.blobs.Put(ctx, key, file, header.Size, contentType)
}

// uploadExtension keeps a short alphanumeric extension of the client file name.
func uploadExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}

func parseListingForm(r *http.Request) (types.LandListing, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return types.LandListing{}, err
		}
		return types.LandListing{}, errors.New("invalid multipart form")
	}

	price, err := parseOptionalFloat(r.FormValue("price"))
	if err != nil {
		return types.LandListing{}, errors.New("invalid price")
	}
	size, err := parseOptionalFloat(r.FormValue("landSize"))
	if err != nil {
		return types.LandListing{}, errors.New("invalid land size")
	}

	return types.LandListing{
		Title:       strings.TrimSpace(r.FormValue("landTitle")),
		Location:    strings.TrimSpace(r.FormValue("location")),
		Price:       price,
		Size:        size,
		SoilType:    strings.TrimSpace(r.FormValue("soilType")),
		Description: strings.TrimSpace(r.FormValue("description")),
		SellerName:  strings.TrimSpace(r.FormValue("sellerName")),
		SellerPhone: strings.TrimSpace(r.FormValue("sellerPhone")),
		SellerEmail: strings.TrimSpace(r.FormValue("sellerEmail")),
	}, nil
}

func parseOptionalFloat(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}

func (h *ListingHandler) GetLands(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listings.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "could not fetch listings")
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

// GetLand returns one listing and counts the view.
func (h *ListingHandler) GetLand(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, "invalid land id")
		case errors.Is(err, services.ErrNotFound):
			writeError(w, http.StatusNotFound, "land not found")
		default:
			writeServiceError(w, h.logger, err, "failed to fetch land")
		}
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *ListingHandler) MyListings(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	listings, err := h.listings.ListBySeller(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err, "could not fetch listings")
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *ListingHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	err := h.listings.Delete(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			writeError(w, http.StatusNotFound, "listing not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "you can only delete your own listings")
		default:
			writeServiceError(w, h.logger, err, "could not delete listing")
		}
		return
	}
	writeMessage(w, http.StatusOK, "listing deleted successfully")
}

// MarkSold sets the sold flag; the body {"sold": false} reopens a listing.
func (h *ListingHandler) MarkSold(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req MarkSoldRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}
	}
	sold := true
	if req.Sold != nil {
		sold = *req.Sold
	}

	listing, err := h.listings.MarkSold(r.Context(), chi.URLParam(r, "id"), claims.UserID, sold)
	if err != nil {
		writeServiceError(w, h.logger, err, "could not update listing")
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *ListingHandler) Inquire(w http.ResponseWriter, r *http.Request) {
	if err := h.listings.RecordInquiry(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err, "could not record inquiry")
		return
	}
	writeMessage(w, http.StatusOK, "inquiry recorded")
}

// SellerProfile returns the seller's contact fields with listing statistics.
func (h *ListingHandler) SellerProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	seller, err := h.users.FindByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "seller not found")
			return
		}
		writeServiceError(w, h.logger, err, "failed to load seller")
		return
	}

	stats, err := h.listings.ComputeSellerStats(r.Context(), seller.ID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to compute seller stats")
		return
	}

	writeJSON(w, http.StatusOK, SellerProfileResponse{
		FullName:    seller.Username,
		Email:       seller.Email,
		Phone:       seller.MobileNo,
		CompanyName: seller.CompanyName,
		Experience:  seller.Experience,
		SellerStats: stats,
	})
}

type CreateListingResponse struct {
	Message string            `json:"message"`
	Listing types.LandListing `json:"listing"`
}

type MarkSoldRequest struct {
	Sold *bool `json:"sold"`
}

type SellerProfileResponse struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CompanyName string `json:"companyName"`
	Experience  int    `json:"experience"`
	types.SellerStats
}
