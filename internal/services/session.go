package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agriland/marketplace/internal/store"
	"github.com/agriland/marketplace/types"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is the lifetime of an issued session token.
const TokenTTL = time.Hour

// Claims is the payload of a session token.
type Claims struct {
	UserID string       `json:"userId"`
	Roles  []types.Role `json:"role"`
	jwt.RegisteredClaims
}

// HasRole reports whether the token grants role.
func (c Claims) HasRole(role types.Role) bool {
	return types.ContainsRole(c.Roles, role)
}

// Session is the result of a successful login.
type Session struct {
	Token string
	User  types.User
}

// SessionIssuer authenticates users and issues and verifies their tokens.
type SessionIssuer struct {
	users  UserRepository
	secret []byte
	now    func() time.Time
}

func NewSessionIssuer(users UserRepository, secret string) *SessionIssuer {
	return &SessionIssuer{users: users, secret: []byte(secret), now: time.Now}
}

// WithClock replaces the issuer's time source.
func (s *SessionIssuer) WithClock(now func() time.Time) *SessionIssuer {
	s.now = now
	return s
}

// Authenticate checks, in order, that the email exists, the password matches
// and the requested role was granted, then signs a token.
func (s *SessionIssuer) Authenticate(ctx context.Context, email, password, role string) (Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return Session{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	requested := types.Role(strings.ToLower(strings.TrimSpace(role)))
	if !user.HasRole(requested) {
		return Session{}, fmt.Errorf("%w: role %q not granted", ErrForbidden, role)
	}

	token, err := s.issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

func (s *SessionIssuer) issue(user types.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: user.ID,
		Roles:  user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and expiry and returns its claims.
func (s *SessionIssuer) Verify(tokenString string) (Claims, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || strings.TrimSpace(claims.UserID) == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
