package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/demenago/devis-saas/internal/auth"
	"github.com/demenago/devis-saas/internal/mail"
	"github.com/demenago/devis-saas/internal/models"
)

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Entreprise{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newAuthMux(db *gorm.DB) (http.Handler, *mail.NopMailer) {
	mailer := &mail.NopMailer{}
	h := NewAuthHandler(db, mailer, zap.NewNop().Sugar())
	mux := http.NewServeMux()
	h.Register(mux)
	return auth.Middleware(mux), mailer
}

func postJSON(t *testing.T, srv http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestRegisterCreatesUserAndEntreprise(t *testing.T) {
	db := setupAuthTestDB(t)
	srv, _ := newAuthMux(db)

	w := postJSON(t, srv, "/api/auth/register",
		`{"email":"Contact@Acme.FR","password":"motdepasse1","nom_entreprise":"Acme Déménagements","telephone":"0298000000"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}

	var user models.User
	if err := db.Where("email = ?", "contact@acme.fr").First(&user).Error; err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if user.Role != models.RoleEntreprise {
		t.Fatalf("expected role entreprise got %q", user.Role)
	}
	if user.Password == "motdepasse1" {
		t.Fatalf("password stored in clear")
	}
	var e models.Entreprise
	if err := db.Where("user_id = ?", user.ID).First(&e).Error; err != nil {
		t.Fatalf("entreprise not created: %v", err)
	}
	if e.Slug != "acme-demenagements" {
		t.Fatalf("expected slug acme-demenagements got %q", e.Slug)
	}
	if e.Plan != models.PlanEssentiel {
		t.Fatalf("expected default plan got %q", e.Plan)
	}

	// a session cookie is set on registration
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" && c.Value != "" && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected httponly session cookie")
	}
}

// Registration writes the user and its entreprise in one transaction: when
// the entreprise insert fails, the user row must be rolled back too.
func TestRegisterRollsBackOnEntrepriseConflict(t *testing.T) {
	db := setupAuthTestDB(t)
	srv, _ := newAuthMux(db)

	// In a fresh DB the registered user takes id 1; this row makes the
	// entreprise insert collide on the unique user_id index.
	blocker := models.Entreprise{UserID: 1, Nom: "Occupant", Slug: "occupant"}
	if err := db.Create(&blocker).Error; err != nil {
		t.Fatalf("seed entreprise: %v", err)
	}

	w := postJSON(t, srv, "/api/auth/register",
		`{"email":"contact@acme.fr","password":"motdepasse1","nom_entreprise":"Acme"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "registration_failed") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if users != 0 {
		t.Fatalf("user row must be rolled back, found %d", users)
	}
	var entreprises int64
	if err := db.Model(&models.Entreprise{}).Count(&entreprises).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if entreprises != 1 {
		t.Fatalf("only the seeded entreprise should remain, found %d", entreprises)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupAuthTestDB(t)
	srv, _ := newAuthMux(db)

	body := `{"email":"contact@acme.fr","password":"motdepasse1","nom_entreprise":"Acme"}`
	if w := postJSON(t, srv, "/api/auth/register", body); w.Code != http.StatusCreated {
		t.Fatalf("first register got %d", w.Code)
	}
	w := postJSON(t, srv, "/api/auth/register", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "email_already_exists") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestRegisterSlugCollisionGetsSuffix(t *testing.T) {
	db := setupAuthTestDB(t)
	srv, _ := newAuthMux(db)

	if w := postJSON(t, srv, "/api/auth/register",
		`{"email":"a@acme.fr","password":"motdepasse1","nom_entreprise":"Acme"}`); w.Code != http.StatusCreated {
		t.Fatalf("first register got %d", w.Code)
	}
	if w := postJSON(t, srv, "/api/auth/register",
		`{"email":"b@acme.fr","password":"motdepasse1","nom_entreprise":"Acme"}`); w.Code != http.StatusCreated {
		t.Fatalf("second register got %d", w.Code)
	}
	var slugs []string
	if err := db.Model(&models.Entreprise{}).Order("id").Pluck("slug", &slugs).Error; err != nil {
		t.Fatalf("pluck: %v", err)
	}
	if len(slugs) != 2 || slugs[0] != "acme" {
		t.Fatalf("unexpected slugs %v", slugs)
	}
	if slugs[1] == "acme" || !strings.HasPrefix(slugs[1], "acme-") {
		t.Fatalf("expected suffixed slug, got %q", slugs[1])
	}
}

func TestRegisterValidation(t *testing.T) {
	db := setupAuthTestDB(t)
	srv, _ := newAuthMux(db)

	w := postJSON(t, srv, "/api/auth/register", `{"email":"pas-un-email","password":"court","nom_entreprise":""}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "validation_failed") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestLogin(t *testing.T) {
	db := setupAuthTestDB(t)
	srv, _ := newAuthMux(db)

	if w := postJSON(t, srv, "/api/auth/register",
		`{"email":"contact@acme.fr","password":"motdepasse1","nom_entreprise":"Acme"}`); w.Code != http.StatusCreated {
		t.Fatalf("register got %d", w.Code)
	}

	w := postJSON(t, srv, "/api/auth/login", `{"email":"contact@acme.fr","password":"motdepasse1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatalf("no session cookie on login")
	}
	p, ok := auth.ParseToken(cookie.Value)
	if !ok {
		t.Fatalf("session token does not parse")
	}
	if p.EntrepriseID == 0 {
		t.Fatalf("expected entreprise id in session")
	}

	if w := postJSON(t, srv, "/api/auth/login", `{"email":"contact@acme.fr","password":"mauvais"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", w.Code)
	}
	if w := postJSON(t, srv, "/api/auth/login", `{"email":"inconnu@acme.fr","password":"motdepasse1"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown email, got %d", w.Code)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	db := setupAuthTestDB(t)
	srv, mailer := newAuthMux(db)

	if w := postJSON(t, srv, "/api/auth/register",
		`{"email":"contact@acme.fr","password":"motdepasse1","nom_entreprise":"Acme"}`); w.Code != http.StatusCreated {
		t.Fatalf("register got %d", w.Code)
	}

	// unknown address still answers 200 and sends nothing
	if w := postJSON(t, srv, "/api/auth/forgot-password", `{"email":"inconnu@acme.fr"}`); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown email, got %d", w.Code)
	}
	if len(mailer.Sent) != 0 {
		t.Fatalf("no mail expected for unknown email")
	}

	if w := postJSON(t, srv, "/api/auth/forgot-password", `{"email":"contact@acme.fr"}`); w.Code != http.StatusOK {
		t.Fatalf("forgot got %d", w.Code)
	}
	if len(mailer.Sent) != 1 || mailer.Sent[0].To != "contact@acme.fr" {
		t.Fatalf("expected one reset mail, got %#v", mailer.Sent)
	}

	var user models.User
	if err := db.Where("email = ?", "contact@acme.fr").First(&user).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.ResetToken == "" || user.ResetExpiry == nil {
		t.Fatalf("reset token not stored")
	}

	if w := postJSON(t, srv, "/api/auth/reset-password", `{"token":"faux-token","password":"nouveaumotdepasse"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad token, got %d", w.Code)
	}
	w := postJSON(t, srv, "/api/auth/reset-password",
		`{"token":"`+user.ResetToken+`","password":"nouveaumotdepasse"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("reset got %d body=%s", w.Code, w.Body.String())
	}

	if w := postJSON(t, srv, "/api/auth/login", `{"email":"contact@acme.fr","password":"motdepasse1"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("old password should be rejected, got %d", w.Code)
	}
	if w := postJSON(t, srv, "/api/auth/login", `{"email":"contact@acme.fr","password":"nouveaumotdepasse"}`); w.Code != http.StatusOK {
		t.Fatalf("new password should log in, got %d", w.Code)
	}
}

func TestMe(t *testing.T) {
	db := setupAuthTestDB(t)
	srv, _ := newAuthMux(db)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", w.Code)
	}

	reg := postJSON(t, srv, "/api/auth/register",
		`{"email":"contact@acme.fr","password":"motdepasse1","nom_entreprise":"Acme"}`)
	if reg.Code != http.StatusCreated {
		t.Fatalf("register got %d", reg.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	for _, c := range reg.Result().Cookies() {
		if c.Name == "session" {
			req.AddCookie(c)
		}
	}
	w2 := httptest.NewRecorder()
	srv.ServeHTTP(w2, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w2.Code, w2.Body.String())
	}
	if !strings.Contains(w2.Body.String(), "contact@acme.fr") {
		t.Fatalf("identity missing from body: %s", w2.Body.String())
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	db := setupAuthTestDB(t)
	srv, _ := newAuthMux(db)

	w := postJSON(t, srv, "/api/auth/logout", `{}`)
	if w.Code != http.StatusOK {
		t.Fatalf("logout got %d", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" && c.MaxAge < 0 {
			return
		}
	}
	t.Fatalf("expected expired session cookie")
}
