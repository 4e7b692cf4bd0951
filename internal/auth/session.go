// Package auth resolves the signed session cookie into a typed Principal.
// Verification fails closed: any signature, expiry, decode or role error
// yields "unauthenticated" without touching the database.
package auth

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/demenago/devis-saas/internal/scope"
)

type ctxKey string

const (
	sessionCookieName = "session"
	principalCtxKey   = ctxKey("principal")

	sessionTTL = 14 * 24 * time.Hour
)

// Principal is the authenticated identity derived from the session cookie.
// EntrepriseID is zero for roles without a tenant (admin, client).
type Principal struct {
	UserID       uint
	Email        string
	Role         scope.Role
	EntrepriseID uint
}

// AuthContext converts the principal into the gateway's visibility context.
func (p Principal) AuthContext() scope.AuthContext {
	return scope.AuthContext{UserID: p.UserID, Role: p.Role, EntrepriseID: p.EntrepriseID}
}

type sessionClaims struct {
	Email        string `json:"email"`
	Role         string `json:"role"`
	EntrepriseID uint   `json:"entreprise_id,omitempty"`
	jwt.RegisteredClaims
}

// Secret returns SESSION_SECRET or default dev value.
func Secret() string {
	if s := os.Getenv("SESSION_SECRET"); s != "" {
		return s
	}
	return "devsessionsecret"
}

// secureCookies reports whether cookies should carry the Secure flag.
func secureCookies() bool {
	return os.Getenv("APP_ENV") == "production"
}

// CreateSession sets a signed httponly cookie carrying the principal.
func CreateSession(w http.ResponseWriter, p Principal) error {
	now := time.Now()
	claims := sessionClaims{
		Email:        p.Email,
		Role:         string(p.Role),
		EntrepriseID: p.EntrepriseID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(p.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(Secret()))
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   secureCookies(),
		SameSite: http.SameSiteLaxMode,
		Expires:  now.Add(sessionTTL),
	})
	return nil
}

// ClearSession deletes the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

// ParseSession validates the cookie and returns the principal.
// Never returns a partially-trusted value: ok is false on any failure.
func ParseSession(r *http.Request) (Principal, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return Principal{}, false
	}
	return ParseToken(c.Value)
}

// ParseToken verifies a signed session token.
func ParseToken(token string) (Principal, bool) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(Secret()), nil
	})
	if err != nil || !parsed.Valid {
		return Principal{}, false
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || uid == 0 {
		return Principal{}, false
	}
	role := scope.Role(claims.Role)
	if !role.Valid() {
		return Principal{}, false
	}
	return Principal{UserID: uint(uid), Email: claims.Email, Role: role, EntrepriseID: claims.EntrepriseID}, true
}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// PrincipalFromContext extracts the principal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey).(Principal)
	return p, ok
}
