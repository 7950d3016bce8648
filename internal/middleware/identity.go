package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"

	"vr-theatre-marketplace/internal/models"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Session values written by the identity provider
const (
	SessionUserID    = "user_id"
	SessionUserEmail = "user_email"
)

// IdentityConfig configures where caller identities come from. Either source
// may be left unset.
type IdentityConfig struct {
	Store       sessions.Store
	SessionName string
	JWTSecret   []byte
	Issuer      string
}

// identityClaims are the bearer token claims we read
type identityClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Identity attaches the caller's identity to the request context. Anonymous
// callers pass through with no identity; an invalid bearer token is rejected.
func Identity(cfg IdentityConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var identity *models.Identity

			if token, ok := bearerToken(r); ok {
				id, err := cfg.parseToken(token)
				if err != nil {
					logger.WarnContext(r.Context(), "rejected bearer token", "error", err)
					writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token.")
					return
				}
				identity = id
			} else {
				identity = cfg.fromSession(r)
			}

			if identity != nil {
				r = r.WithContext(WithIdentity(r.Context(), identity))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func (cfg IdentityConfig) parseToken(raw string) (*models.Identity, error) {
	if len(cfg.JWTSecret) == 0 {
		return nil, errors.New("bearer tokens are not accepted")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return cfg.JWTSecret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return &models.Identity{ID: claims.Subject, Email: claims.Email}, nil
}

func (cfg IdentityConfig) fromSession(r *http.Request) *models.Identity {
	if cfg.Store == nil {
		return nil
	}
	session, err := cfg.Store.Get(r, cfg.SessionName)
	if err != nil {
		return nil
	}

	userID, _ := session.Values[SessionUserID].(string)
	if userID == "" {
		return nil
	}
	email, _ := session.Values[SessionUserEmail].(string)
	return &models.Identity{ID: userID, Email: email}
}

// WithIdentity returns a context carrying identity
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext returns the caller's identity or nil when anonymous
func IdentityFromContext(ctx context.Context) *models.Identity {
	identity, _ := ctx.Value(identityContextKey).(*models.Identity)
	return identity
}
