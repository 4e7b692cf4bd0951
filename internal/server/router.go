package server

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/demenago/devis-saas/internal/auth"
	"github.com/demenago/devis-saas/internal/billing"
	"github.com/demenago/devis-saas/internal/config"
	"github.com/demenago/devis-saas/internal/handlers"
	"github.com/demenago/devis-saas/internal/httpx"
	"github.com/demenago/devis-saas/internal/mail"
	"github.com/demenago/devis-saas/internal/middleware"
	"github.com/demenago/devis-saas/internal/scope"
	"github.com/demenago/devis-saas/internal/services"
)

// Deps holds the composition-root collaborators. Everything is constructed
// in main and passed down; nothing here is a package-level singleton.
type Deps struct {
	DB      *gorm.DB
	Cfg     config.Config
	Mailer  mail.Mailer
	Billing billing.Provider
	Log     *zap.SugaredLogger
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()
	gw := scope.NewGateway(d.DB)

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := d.DB.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth endpoints
	authHandler := handlers.NewAuthHandler(d.DB, d.Mailer, d.Log)
	authHandler.Register(mux)

	// Public calculator surface
	devisSvc := services.NewDevisService()
	dh := handlers.NewDevisHandler(gw, devisSvc, d.Mailer, d.Log)
	eh := handlers.NewEntrepriseHandler(gw, d.Billing, d.Cfg, d.Log)
	mh := handlers.NewMeubleHandler(d.DB)

	mux.HandleFunc("GET /api/public/entreprise/{slug}", eh.PublicConfig)
	mux.HandleFunc("GET /api/public/meubles", mh.PublicList)
	mux.HandleFunc("POST /api/public/devis/{slug}", dh.SubmitPublic)

	// Entreprise-scoped endpoints
	entreprise := func(h http.HandlerFunc) http.Handler {
		return auth.RequireRole(scope.RoleEntreprise, h)
	}
	mux.Handle("GET /api/entreprise/devis", entreprise(dh.List))
	mux.Handle("GET /api/entreprise/devis/{id}", entreprise(dh.Get))
	mux.Handle("PATCH /api/entreprise/devis/{id}", entreprise(dh.UpdateStatut))
	mux.Handle("GET /api/entreprise/profile", entreprise(eh.Profile))
	mux.Handle("PUT /api/entreprise/profile", entreprise(eh.UpdateProfile))
	mux.Handle("POST /api/entreprise/billing/checkout", entreprise(eh.Checkout))
	mux.Handle("POST /api/entreprise/billing/portal", entreprise(eh.Portal))

	// Admin endpoints
	ah := handlers.NewAdminHandler(gw)
	admin := func(h http.HandlerFunc) http.Handler {
		return auth.RequireRole(scope.RoleAdmin, h)
	}
	mux.Handle("GET /api/admin/entreprises", admin(ah.Entreprises))
	mux.Handle("PATCH /api/admin/entreprises/{id}", admin(ah.UpdatePlan))
	mux.Handle("GET /api/admin/users", admin(ah.Users))
	mux.Handle("GET /api/admin/devis", admin(dh.AdminList))
	mux.Handle("GET /api/admin/audit/devis-orphelins", admin(ah.DevisOrphelins))
	mux.Handle("POST /api/admin/meubles", admin(mh.Create))
	mux.Handle("PUT /api/admin/meubles/{id}", admin(mh.Update))
	mux.Handle("DELETE /api/admin/meubles/{id}", admin(mh.Delete))
	mux.Handle("POST /api/admin/categories", admin(mh.CreateCategorie))

	root := auth.Middleware(mux)
	return middleware.Recover(d.Log, middleware.Logging(d.Log, root))
}
