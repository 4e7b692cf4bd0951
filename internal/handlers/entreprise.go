package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/demenago/devis-saas/internal/auth"
	"github.com/demenago/devis-saas/internal/billing"
	"github.com/demenago/devis-saas/internal/config"
	"github.com/demenago/devis-saas/internal/httpx"
	"github.com/demenago/devis-saas/internal/models"
	"github.com/demenago/devis-saas/internal/scope"
	"github.com/demenago/devis-saas/internal/validation"
)

type EntrepriseHandler struct {
	GW      *scope.Gateway
	Billing billing.Provider
	Cfg     config.Config
	Log     *zap.SugaredLogger
}

func NewEntrepriseHandler(gw *scope.Gateway, provider billing.Provider, cfg config.Config, log *zap.SugaredLogger) *EntrepriseHandler {
	return &EntrepriseHandler{GW: gw, Billing: provider, Cfg: cfg, Log: log}
}

// publicConfig is the branding payload served to the calculator page.
type publicConfig struct {
	Nom               string `json:"nom"`
	Slug              string `json:"slug"`
	Titre             string `json:"titre"`
	CouleurPrimaire   string `json:"couleur_primaire"`
	CouleurSecondaire string `json:"couleur_secondaire"`
	LogoURL           string `json:"logo_url"`
	Telephone         string `json:"telephone"`
}

// PublicConfig: GET /api/public/entreprise/{slug}
func (h *EntrepriseHandler) PublicConfig(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	var e models.Entreprise
	if err := h.GW.DB().Where("slug = ?", slug).First(&e).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "entreprise_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, publicConfig{
		Nom:               e.Nom,
		Slug:              e.Slug,
		Titre:             e.Titre,
		CouleurPrimaire:   e.CouleurPrimaire,
		CouleurSecondaire: e.CouleurSecondaire,
		LogoURL:           e.LogoURL,
		Telephone:         e.Telephone,
	})
}

func (h *EntrepriseHandler) loadOwn(r *http.Request) (*models.Entreprise, auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return nil, p, errUnauthorized
	}
	var e models.Entreprise
	ac := p.AuthContext()
	err := h.GW.Tx(r.Context(), ac, func(tx *gorm.DB) error {
		return tx.Where("id = ?", p.EntrepriseID).First(&e).Error
	})
	if err != nil {
		return nil, p, err
	}
	return &e, p, nil
}

var errUnauthorized = errors.New("unauthorized")

// Profile: GET /api/entreprise/profile
func (h *EntrepriseHandler) Profile(w http.ResponseWriter, r *http.Request) {
	e, _, err := h.loadOwn(r)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

// UpdateProfile: PUT /api/entreprise/profile (branding, contact, SMTP).
// The slug never changes once set: it is published in customer-facing URLs.
func (h *EntrepriseHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	e, p, err := h.loadOwn(r)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	var input struct {
		Nom               *string `json:"nom"`
		Titre             *string `json:"titre"`
		CouleurPrimaire   *string `json:"couleur_primaire"`
		CouleurSecondaire *string `json:"couleur_secondaire"`
		LogoURL           *string `json:"logo_url"`
		Email             *string `json:"email"`
		Telephone         *string `json:"telephone"`
		Adresse           *string `json:"adresse"`
		SMTPHost          *string `json:"smtp_host"`
		SMTPPort          *int    `json:"smtp_port"`
		SMTPUser          *string `json:"smtp_user"`
		SMTPPass          *string `json:"smtp_pass"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeInvalidJSON, nil)
		return
	}
	if input.SMTPPort != nil {
		v := validation.Violations{}
		validation.PositiveInt("smtp_port", *input.SMTPPort, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, v)
			return
		}
	}
	if input.Nom != nil && *input.Nom != "" {
		e.Nom = *input.Nom
	}
	if input.Titre != nil {
		e.Titre = *input.Titre
	}
	if input.CouleurPrimaire != nil {
		e.CouleurPrimaire = *input.CouleurPrimaire
	}
	if input.CouleurSecondaire != nil {
		e.CouleurSecondaire = *input.CouleurSecondaire
	}
	if input.LogoURL != nil {
		e.LogoURL = *input.LogoURL
	}
	if input.Email != nil {
		e.Email = *input.Email
	}
	if input.Telephone != nil {
		e.Telephone = *input.Telephone
	}
	if input.Adresse != nil {
		e.Adresse = *input.Adresse
	}
	if input.SMTPHost != nil {
		e.SMTPHost = *input.SMTPHost
	}
	if input.SMTPPort != nil {
		e.SMTPPort = *input.SMTPPort
	}
	if input.SMTPUser != nil {
		e.SMTPUser = *input.SMTPUser
	}
	if input.SMTPPass != nil {
		e.SMTPPass = *input.SMTPPass
	}

	ac := p.AuthContext()
	err = h.GW.Tx(r.Context(), ac, func(tx *gorm.DB) error {
		return tx.Save(e).Error
	})
	if err != nil {
		h.Log.Errorw("profile update failed", "entreprise", e.ID, "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

// Checkout: POST /api/entreprise/billing/checkout. Hosted subscription
// checkout, creating the provider customer on first use.
func (h *EntrepriseHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	e, p, err := h.loadOwn(r)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	custID, err := h.Billing.EnsureCustomer(r.Context(), e.StripeCustomerID, e.Email, e.Nom)
	if err != nil {
		h.Log.Errorw("customer create failed", "entreprise", e.ID, "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "billing_error", nil)
		return
	}
	if custID != e.StripeCustomerID {
		e.StripeCustomerID = custID
		ac := p.AuthContext()
		if err := h.GW.Tx(r.Context(), ac, func(tx *gorm.DB) error {
			return tx.Model(e).Update("stripe_customer_id", custID).Error
		}); err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "billing_error", nil)
			return
		}
	}
	url, err := h.Billing.CheckoutSession(r.Context(), custID, h.Cfg.StripePriceID,
		h.Cfg.BaseURL+"/abonnement/succes", h.Cfg.BaseURL+"/abonnement/annule")
	if err != nil {
		h.Log.Errorw("checkout session failed", "entreprise", e.ID, "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "billing_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"url": url})
}

// Portal: POST /api/entreprise/billing/portal
func (h *EntrepriseHandler) Portal(w http.ResponseWriter, r *http.Request) {
	e, _, err := h.loadOwn(r)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	if e.StripeCustomerID == "" {
		httpx.JSONError(w, http.StatusBadRequest, "no_subscription", nil)
		return
	}
	url, err := h.Billing.PortalSession(r.Context(), e.StripeCustomerID, h.Cfg.BaseURL+"/compte")
	if err != nil {
		h.Log.Errorw("portal session failed", "entreprise", e.ID, "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "billing_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"url": url})
}

func writeLoadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errUnauthorized):
		httpx.JSONError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, nil)
	case errors.Is(err, gorm.ErrRecordNotFound):
		httpx.JSONError(w, http.StatusNotFound, httpx.CodeNotFound, nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, httpx.CodeInternalError, nil)
	}
}
