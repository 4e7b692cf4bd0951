package auth

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/demenago/devis-saas/internal/scope"
)

func sessionRequest(t *testing.T, p Principal) *http.Request {
	t.Helper()
	w := httptest.NewRecorder()
	if err := CreateSession(w, p); err != nil {
		t.Fatalf("create session: %v", err)
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no session cookie set")
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[0])
	return r
}

func TestSessionRoundTrip(t *testing.T) {
	p := Principal{UserID: 42, Email: "demo@acme.fr", Role: scope.RoleEntreprise, EntrepriseID: 7}
	got, ok := ParseSession(sessionRequest(t, p))
	if !ok {
		t.Fatalf("expected valid session")
	}
	if got != p {
		t.Fatalf("principal mismatch: got %#v want %#v", got, p)
	}
}

func TestSessionMissingCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := ParseSession(r); ok {
		t.Fatalf("expected unauthenticated without cookie")
	}
}

func TestSessionTamperedToken(t *testing.T) {
	r := sessionRequest(t, Principal{UserID: 1, Email: "a@b.fr", Role: scope.RoleAdmin})
	c, err := r.Cookie("session")
	if err != nil {
		t.Fatalf("cookie: %v", err)
	}
	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(&http.Cookie{Name: "session", Value: c.Value + "x"})
	if _, ok := ParseSession(r2); ok {
		t.Fatalf("expected tampered token to be rejected")
	}
}

func signClaims(t *testing.T, claims sessionClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(Secret()))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

// A correctly signed token with a role outside the closed set must still be
// unauthenticated, never a default role.
func TestSessionUnknownRoleRejected(t *testing.T) {
	token := signClaims(t, sessionClaims{
		Email: "evil@x.fr",
		Role:  "superadmin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "12",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	if _, ok := ParseToken(token); ok {
		t.Fatalf("expected unknown role to be rejected")
	}
}

func TestSessionExpiredRejected(t *testing.T) {
	token := signClaims(t, sessionClaims{
		Email: "demo@acme.fr",
		Role:  string(scope.RoleEntreprise),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "5",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	if _, ok := ParseToken(token); ok {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestSessionZeroUserRejected(t *testing.T) {
	token := signClaims(t, sessionClaims{
		Role: string(scope.RoleClient),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(0),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	if _, ok := ParseToken(token); ok {
		t.Fatalf("expected zero user id to be rejected")
	}
}

func TestClearSession(t *testing.T) {
	w := httptest.NewRecorder()
	ClearSession(w)
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "" || cookies[0].MaxAge != -1 {
		t.Fatalf("expected expired empty cookie, got %#v", cookies)
	}
}
