package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agriland/marketplace/internal/services"
	"github.com/agriland/marketplace/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuthHandler provides signup, login and profile endpoints.
type AuthHandler struct {
	users    *services.UserService
	sessions *services.SessionIssuer
	logger   *zap.Logger
}

func NewAuthHandler(users *services.UserService, sessions *services.SessionIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, logger: logger}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
	r.With(authMiddleware).Get("/user-profile", handler.Profile)
	r.With(authMiddleware).Put("/user-profile", handler.UpdateProfile)
}

// Signup creates an account. The response never includes the password hash.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.users.Register(r.Context(), services.Registration{
		Username: req.Username,
		Email:    req.Email,
		MobileNo: req.MobileNo,
		Password: req.Password,
		Roles:    req.Role,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, SignupResponse{Message: "user created successfully", User: user})
}

// Login verifies credentials for the requested role and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	session, err := h.sessions.Authenticate(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, "invalid credentials")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "access denied for role: "+req.Role)
		default:
			writeServiceError(w, h.logger, err, "failed to authenticate")
		}
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Message: "login successful",
		Token:   session.Token,
		User: LoginUser{
			ID:       session.User.ID,
			Username: session.User.Username,
			Email:    session.User.Email,
			Role:     session.User.Roles,
		},
	})
}

// Profile returns the authenticated user.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.FindByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeServiceError(w, h.logger, err, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile edits the seller profile fields of the authenticated user.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ProfileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), claims.UserID, req.CompanyName, req.Experience)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeServiceError(w, h.logger, err, "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type SignupRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	MobileNo string   `json:"mobileNo"`
	Password string   `json:"password"`
	Role     roleList `json:"role"`
}

// roleList accepts either a single role string or an array of roles.
type roleList []string

func (l *roleList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = roleList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

type SignupResponse struct {
	Message string     `json:"message"`
	User    types.User `json:"user"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginUser struct {
	ID       string       `json:"id"`
	Username string       `json:"username"`
	Email    string       `json:"email"`
	Role     []types.Role `json:"role"`
}

type LoginResponse struct {
	Message string    `json:"message"`
	Token   string    `json:"token"`
	User    LoginUser `json:"user"`
}

type ProfileUpdateRequest struct {
	CompanyName string `json:"companyName"`
	Experience  int    `json:"experience"`
}
