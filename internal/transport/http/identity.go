package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

type ctxKey struct{}

// WithUserID stores the authenticated user ID on ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the authenticated user ID, or "" when the request carries none.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Identity resolves the current user. With a secret it accepts only HS256
// bearer tokens and uses the subject claim; without one it trusts the
// gateway header. Requests without identity pass through and are rejected
// by the operations that need a user.
type Identity struct {
	secret []byte
	header string
}

func NewIdentity(jwtSecret, userHeader string) *Identity {
	if userHeader == "" {
		userHeader = "X-User-ID"
	}
	var secret []byte
	if jwtSecret != "" {
		secret = []byte(jwtSecret)
	}
	return &Identity{secret: secret, header: userHeader}
}

var errInvalidToken = errors.New("invalid token")

func (i *Identity) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := i.resolve(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, APIResponse{Success: false, Error: err.Error()})
			return
		}
		if userID != "" {
			r = r.WithContext(WithUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}

func (i *Identity) resolve(r *http.Request) (string, error) {
	if i.secret == nil {
		id := strings.TrimSpace(r.Header.Get(i.header))
		if id == "" && websocket.IsWebSocketUpgrade(r) {
			// browsers cannot set headers on websocket upgrades
			id = r.URL.Query().Get("userId")
		}
		return id, nil
	}

	raw := bearerToken(r)
	if raw == "" {
		return "", nil
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

// SignToken issues an HS256 token for userID. Used by tooling and tests.
func SignToken(secret, userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: userID})
	return token.SignedString([]byte(secret))
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
