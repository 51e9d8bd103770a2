package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/agriland/marketplace/internal/services"
	"go.uber.org/zap"
)

const maxJSONBody = 1 << 20

type contextKey string

const contextClaimsKey contextKey = "claims"

func withClaims(ctx context.Context, claims services.Claims) context.Context {
	return context.WithValue(ctx, contextClaimsKey, claims)
}

func claimsFromContext(ctx context.Context) (services.Claims, bool) {
	claims, ok := ctx.Value(contextClaimsKey).(services.Claims)
	if !ok || claims.UserID == "" {
		return services.Claims{}, false
	}
	return claims, true
}

// ErrorResponse is the error payload. The field name matches what existing
// clients of the marketplace read.
type ErrorResponse struct {
	Message string `json:"message"`
}

// MessageResponse acknowledges a mutation.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	return dec.Decode(dst)
}

var serviceErrors = []struct {
	err    error
	status int
}{
	{services.ErrConflict, http.StatusBadRequest},
	{services.ErrNotFound, http.StatusNotFound},
	{services.ErrInvalidArgument, http.StatusBadRequest},
	{services.ErrUnauthenticated, http.StatusUnauthorized},
	{services.ErrForbidden, http.StatusForbidden},
	{services.ErrInvalidCredentials, http.StatusBadRequest},
	{services.ErrInvalidToken, http.StatusForbidden},
}

// writeServiceError maps err onto its HTTP status. Unclassified errors are
// logged and answered with internalMsg so storage details never reach the
// caller.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error, internalMsg string) {
	for _, known := range serviceErrors {
		if errors.Is(err, known.err) {
			writeError(w, known.status, clientMessage(err, known.err))
			return
		}
	}
	logger.Error(internalMsg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, internalMsg)
}

// clientMessage drops the sentinel prefix from "sentinel: detail" errors.
func clientMessage(err, sentinel error) string {
	msg := err.Error()
	if detail, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return detail
	}
	return msg
}
