package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/PabloGalante/quicknotes-agent/internal/domain"
	"github.com/PabloGalante/quicknotes-agent/internal/observability"
)

type ctxKey string

const ctxKeyUserID ctxKey = "user_id"

// Claims is the token payload. userId names the note owner.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens. With Bypass set every request
// runs as DevUserID.
type Authenticator struct {
	Secret    []byte
	Bypass    bool
	DevUserID domain.UserID
}

// Verify parses the Authorization header value and returns the owner.
func (a *Authenticator) Verify(header string) (domain.UserID, error) {
	if a.Bypass {
		return a.DevUserID, nil
	}

	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", errors.New("missing or invalid bearer token")
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) {
		return a.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return "", errors.New("token has no userId")
	}
	return domain.UserID(claims.UserID), nil
}

// Issue signs a token for userID. Used by the CLI and tests.
func (a *Authenticator) Issue(userID domain.UserID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: string(userID),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
}

// withAuth rejects unauthenticated requests and stores the owner in the context.
func withAuth(a *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := a.Verify(r.Header.Get("Authorization"))
			if err != nil {
				observability.LoggerFromContext(r.Context()).Info("request rejected", "reason", err.Error())
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyUserID, userID)))
		})
	}
}

func userFromContext(ctx context.Context) domain.UserID {
	id, _ := ctx.Value(ctxKeyUserID).(domain.UserID)
	return id
}
