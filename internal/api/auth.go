package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrUnauthorized is returned for a missing, malformed, or expired token.
var ErrUnauthorized = eris.New("api: unauthorized")

// Claims are the JWT claims the API accepts.
type Claims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

type tenantKey struct{}

// TenantFromContext returns the tenant set by the auth middleware.
func TenantFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tenantKey{}).(string)
	return t
}

// IssueToken signs an HS256 token for tenantID that expires after ttl.
func IssueToken(secret []byte, tenantID string, ttl time.Duration) (string, error) {
	if tenantID == "" {
		return "", eris.New("api: tenant id is required")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tenantID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", eris.Wrap(err, "api: sign token")
	}
	return signed, nil
}

// ParseToken validates a signed token and returns its claims.
func ParseToken(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, eris.Wrap(ErrUnauthorized, err.Error())
	}
	if !token.Valid || claims.TenantID == "" {
		return nil, eris.Wrap(ErrUnauthorized, "token carries no tenant")
	}
	return claims, nil
}

// authenticate requires a bearer token and stores its tenant on the request context.
func authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				fail(w, r, eris.Wrap(ErrUnauthorized, "missing bearer token"))
				return
			}
			claims, err := ParseToken(secret, strings.TrimSpace(raw))
			if err != nil {
				zap.L().Debug("api: rejected token", zap.Error(err))
				fail(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), tenantKey{}, claims.TenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
