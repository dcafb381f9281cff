package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "kyra/pkg/domain"
	"kyra/pkg/requestcontext"
)

// Claims are the token claims the gateway issues: the subject is the
// principal's UUID, the role selects the route group.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

const (
	RoleApplicant = "applicant"
	RoleAdmin     = "admin"
)

// TokenValidator verifies bearer tokens signed by the identity gateway.
type TokenValidator struct {
	signingKey []byte
}

func NewTokenValidator(signingKey string) *TokenValidator {
	return &TokenValidator{signingKey: []byte(signingKey)}
}

func (v *TokenValidator) validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token invalid")
	}
	return claims, nil
}

// RequireUser authenticates an applicant token and injects the user ID.
func RequireUser(validator *TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return requireRole(validator, logger, RoleApplicant, func(r *http.Request, subject string) (*http.Request, error) {
		userID, err := id.ParseUserID(subject)
		if err != nil {
			return nil, err
		}
		return r.WithContext(requestcontext.WithUserID(r.Context(), userID)), nil
	})
}

// RequireAdmin authenticates a reviewer token and injects the admin ID.
func RequireAdmin(validator *TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return requireRole(validator, logger, RoleAdmin, func(r *http.Request, subject string) (*http.Request, error) {
		adminID, err := id.ParseAdminID(subject)
		if err != nil {
			return nil, err
		}
		return r.WithContext(requestcontext.WithAdminID(r.Context(), adminID)), nil
	})
}

func requireRole(
	validator *TokenValidator,
	logger *slog.Logger,
	role string,
	inject func(r *http.Request, subject string) (*http.Request, error),
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				unauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.validate(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access, invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				unauthorized(w, "Invalid or expired token")
				return
			}
			if claims.Role != role {
				unauthorized(w, "Insufficient role")
				return
			}

			authed, err := inject(r, claims.Subject)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access, malformed subject",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				unauthorized(w, "Invalid token subject")
				return
			}
			next.ServeHTTP(w, authed)
		})
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
