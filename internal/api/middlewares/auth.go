package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/markdave123-py/Clausewise/internal/logger"
	"github.com/markdave123-py/Clausewise/internal/models"
)

type ctxKey struct{}

var (
	ErrMissingToken = errors.New("missing or invalid authorization header")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Authenticator resolves the user a request runs as.
type Authenticator interface {
	CurrentUser(r *http.Request) (*models.User, error)
}

// StubAuthenticator signs every request in as the same user.
type StubAuthenticator struct {
	User models.User
}

func NewStubAuthenticator() *StubAuthenticator {
	return &StubAuthenticator{User: models.User{
		ID:           "mock-user",
		Email:        "user@example.com",
		Role:         "user",
		SessionToken: "mock-session-token",
	}}
}

func (a *StubAuthenticator) CurrentUser(*http.Request) (*models.User, error) {
	u := a.User
	return &u, nil
}

// Claims represents the JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuthenticator accepts HS256 bearer tokens signed with a shared secret.
type JWTAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

func (a *JWTAuthenticator) CurrentUser(r *http.Request) (*models.User, error) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid || claims.Email == "" {
		return nil, ErrInvalidToken
	}

	return &models.User{
		ID:           claims.UserID,
		Email:        claims.Email,
		Role:         claims.Role,
		SessionToken: parts[1],
	}, nil
}

// RequireUser rejects requests the authenticator cannot resolve and stores
// the user in the request context.
func RequireUser(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.CurrentUser(r)
			if err != nil {
				logger.Warn(r.Context(), "unauthenticated request", "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": "UNAUTHORIZED", "message": err.Error()},
				})
				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, user)
			ctx = context.WithValue(ctx, logger.UserEmailKey, user.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user stored by RequireUser, or nil.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxKey{}).(*models.User)
	return u
}
