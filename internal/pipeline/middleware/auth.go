package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"reqlog/internal/domain"
	"reqlog/internal/pipeline"
	"reqlog/internal/platform/telemetry"
)

const maxClockSkew = 30 * time.Second

// RequireBearer returns a guard that validates HS256 JWT Bearer tokens signed
// with secret. Failures are returned as access-denied errors, which Capture
// turns into 401 responses. Paths in publicPaths are exempt.
// The metrics parameter is optional; pass nil to skip metric recording.
func RequireBearer(secret []byte, publicPaths []string, m *telemetry.Metrics) pipeline.Guard {
	public := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = struct{}{}
	}
	record := func(r *http.Request, result string) {
		if m != nil {
			m.RecordAuthValidation(r.Context(), result)
		}
	}

	return func(next pipeline.Handler) pipeline.Handler {
		return pipeline.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
			if _, ok := public[r.URL.Path]; ok {
				return next.ServeHTTP(w, r)
			}

			tokenStr, ok := extractBearerToken(r)
			if !ok {
				record(r, "failure")
				return domain.AccessDenied("no token")
			}

			// Only HS256 is accepted; anything else is an algorithm confusion attempt.
			token, err := jwt.Parse(tokenStr, func(*jwt.Token) (any, error) {
				return secret, nil
			},
				jwt.WithValidMethods([]string{"HS256"}),
				jwt.WithLeeway(maxClockSkew),
			)
			if err != nil || !token.Valid {
				slog.Debug("auth validation failed", "error", err)
				record(r, "failure")
				denied := domain.AccessDenied("invalid or expired token")
				denied.Err = err
				return denied
			}

			principal, err := extractPrincipal(token.Claims)
			if err != nil {
				record(r, "failure")
				denied := domain.AccessDenied("invalid token claims")
				denied.Err = err
				return denied
			}

			record(r, "success")
			ctx := pipeline.ContextWithPrincipal(r.Context(), principal)
			return next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IssueToken signs an HS256 token for p that RequireBearer accepts until now+ttl.
func IssueToken(secret []byte, p domain.Principal, ttl time.Duration, now time.Time) (domain.TokenPair, error) {
	claims := jwt.MapClaims{
		"sub":    p.ID,
		"scopes": strings.Join(p.Scopes, " "),
		"iat":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
		"iss":    "reqlog",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("signing token: %w", err)
	}
	return domain.TokenPair{
		AccessToken: signed,
		ExpiresIn:   int(ttl.Seconds()),
		TokenType:   "Bearer",
	}, nil
}

func extractBearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", false
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func extractPrincipal(claims jwt.Claims) (domain.Principal, error) {
	mc, ok := claims.(jwt.MapClaims)
	if !ok {
		return domain.Principal{}, domain.ErrInvalidToken
	}

	sub, _ := mc["sub"].(string)
	if sub == "" {
		return domain.Principal{}, domain.ErrInvalidToken
	}

	var scopes []string
	if scopeStr, ok := mc["scopes"].(string); ok {
		scopes = strings.Fields(scopeStr)
	}

	return domain.Principal{ID: sub, Scopes: scopes}, nil
}
