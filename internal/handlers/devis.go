package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/demenago/devis-saas/internal/auth"
	"github.com/demenago/devis-saas/internal/httpx"
	"github.com/demenago/devis-saas/internal/mail"
	"github.com/demenago/devis-saas/internal/models"
	"github.com/demenago/devis-saas/internal/scope"
	"github.com/demenago/devis-saas/internal/services"
	"github.com/demenago/devis-saas/internal/validation"
)

type DevisHandler struct {
	GW     *scope.Gateway
	Svc    *services.DevisService
	Mailer mail.Mailer
	Log    *zap.SugaredLogger
}

func NewDevisHandler(gw *scope.Gateway, svc *services.DevisService, mailer mail.Mailer, log *zap.SugaredLogger) *DevisHandler {
	return &DevisHandler{GW: gw, Svc: svc, Mailer: mailer, Log: log}
}

type ligneReq struct {
	MeubleID uint `json:"meuble_id"`
	Quantite int  `json:"quantite"`
}

type submitDevisReq struct {
	NomClient        string     `json:"nom_client"`
	PrenomClient     string     `json:"prenom_client"`
	EmailClient      string     `json:"email_client"`
	TelephoneClient  string     `json:"telephone_client"`
	AdresseDepart    string     `json:"adresse_depart"`
	EtageDepart      int        `json:"etage_depart"`
	AscenseurDepart  bool       `json:"ascenseur_depart"`
	AdresseArrivee   string     `json:"adresse_arrivee"`
	EtageArrivee     int        `json:"etage_arrivee"`
	AscenseurArrivee bool       `json:"ascenseur_arrivee"`
	DateDemenagement *time.Time `json:"date_demenagement"`
	Lignes           []ligneReq `json:"lignes"`
}

func validateSubmit(req *submitDevisReq) validation.Violations {
	v := validation.Violations{}
	validation.Required("nom_client", req.NomClient, v)
	validation.Required("email_client", req.EmailClient, v)
	validation.Email("email_client", req.EmailClient, v)
	validation.Required("adresse_depart", req.AdresseDepart, v)
	validation.Required("adresse_arrivee", req.AdresseArrivee, v)
	if len(req.Lignes) == 0 {
		v["lignes"] = "required"
	}
	for _, l := range req.Lignes {
		if l.MeubleID == 0 || l.Quantite <= 0 {
			v["lignes"] = "invalid_meuble_or_quantite"
			break
		}
	}
	return v
}

// SubmitPublic: POST /api/public/devis/{slug}. A visitor submits a move
// request on an entreprise's public calculator.
func (h *DevisHandler) SubmitPublic(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	var e models.Entreprise
	if err := h.GW.DB().Where("slug = ?", slug).First(&e).Error; err != nil {
		// soft-deleted entreprises excluded by gorm, same 404 as unknown slug
		httpx.JSONError(w, http.StatusNotFound, "entreprise_not_found", nil)
		return
	}

	var req submitDevisReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeInvalidJSON, nil)
		return
	}
	if v := validateSubmit(&req); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, v)
		return
	}

	ids := make([]uint, 0, len(req.Lignes))
	for _, l := range req.Lignes {
		ids = append(ids, l.MeubleID)
	}
	var meubles []models.Meuble
	if err := h.GW.DB().Where("id IN ? AND actif = ?", ids, true).Find(&meubles).Error; err != nil || len(meubles) != len(ids) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_meubles", nil)
		return
	}
	meubleByID := map[uint]models.Meuble{}
	for _, m := range meubles {
		meubleByID[m.ID] = m
	}

	lignes := make([]models.DevisMeuble, 0, len(req.Lignes))
	for _, l := range req.Lignes {
		lignes = append(lignes, models.DevisMeuble{MeubleID: l.MeubleID, Quantite: l.Quantite, Meuble: meubleByID[l.MeubleID]})
	}
	volume, poids := h.Svc.ComputeTotaux(lignes)

	devis := models.Devis{
		EntrepriseID:     e.ID,
		NomClient:        strings.TrimSpace(req.NomClient),
		PrenomClient:     strings.TrimSpace(req.PrenomClient),
		EmailClient:      strings.TrimSpace(strings.ToLower(req.EmailClient)),
		TelephoneClient:  strings.TrimSpace(req.TelephoneClient),
		AdresseDepart:    req.AdresseDepart,
		EtageDepart:      req.EtageDepart,
		AscenseurDepart:  req.AscenseurDepart,
		AdresseArrivee:   req.AdresseArrivee,
		EtageArrivee:     req.EtageArrivee,
		AscenseurArrivee: req.AscenseurArrivee,
		DateDemenagement: req.DateDemenagement,
		Statut:           models.DevisNouveau,
		VolumeTotalM3:    volume,
		PoidsTotalKg:     poids,
	}
	// Devis et lignes dans la même transaction. L'insertion publique est
	// exécutée sous le contexte de l'entreprise résolue par le slug : les
	// policies RLS voient la ligne insérée.
	ac := scope.AuthContext{Role: scope.RoleEntreprise, EntrepriseID: e.ID}
	err := h.GW.Tx(r.Context(), ac, func(tx *gorm.DB) error {
		if err := tx.Create(&devis).Error; err != nil {
			return err
		}
		for i := range lignes {
			lignes[i].DevisID = devis.ID
			lignes[i].Meuble = models.Meuble{}
		}
		return tx.Create(&lignes).Error
	})
	if err != nil {
		h.Log.Errorw("devis create failed", "slug", slug, "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "devis_create_failed", nil)
		return
	}

	if e.Email != "" {
		msg := mail.Message{
			To:      e.Email,
			Subject: "Nouvelle demande de devis — " + devis.NomClient,
			Body: fmt.Sprintf("Nouvelle demande de devis (%s)\nVolume estimé : %.2f m³\nContact : %s %s — %s",
				devis.Reference, devis.VolumeTotalM3, devis.PrenomClient, devis.NomClient, devis.EmailClient),
		}
		if err := h.Mailer.Send(r.Context(), &e, msg); err != nil {
			h.Log.Warnw("devis notification failed", "entreprise", e.Slug, "error", err)
		}
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{
		"reference":       devis.Reference,
		"volume_total_m3": devis.VolumeTotalM3,
		"poids_total_kg":  devis.PoidsTotalKg,
	})
}

// List: GET /api/entreprise/devis. The authenticated entreprise's quotes.
func (h *DevisHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, nil)
		return
	}
	h.list(w, r, p.AuthContext())
}

// AdminList: GET /api/admin/devis. All quotes, sanctioned admin bypass.
func (h *DevisHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, nil)
		return
	}
	h.list(w, r, scope.Admin(p.UserID))
}

func (h *DevisHandler) list(w http.ResponseWriter, r *http.Request, ac scope.AuthContext) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	statut := strings.TrimSpace(r.URL.Query().Get("statut"))

	var devis []models.Devis
	var total int64
	err := h.GW.Tx(r.Context(), ac, func(tx *gorm.DB) error {
		q := tx.Model(&models.Devis{}).Scopes(scope.Tenant(ac))
		if statut != "" {
			q = q.Where("statut = ?", statut)
		}
		if err := q.Count(&total).Error; err != nil {
			return err
		}
		return tx.Scopes(scope.Tenant(ac)).
			Preload("Lignes.Meuble").
			Order("id desc").Limit(limit).Offset(offset).
			Find(&devis).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_devis", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": devis, "total": total, "limit": limit, "offset": offset})
}

// Get: GET /api/entreprise/devis/{id}. 404 outside the caller's tenant.
func (h *DevisHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, nil)
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	ac := p.AuthContext()
	var devis models.Devis
	err = h.GW.Tx(r.Context(), ac, func(tx *gorm.DB) error {
		return tx.Scopes(scope.Tenant(ac)).Preload("Lignes.Meuble").First(&devis, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, httpx.CodeNotFound, nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_devis", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, devis)
}

// UpdateStatut: PATCH /api/entreprise/devis/{id}
func (h *DevisHandler) UpdateStatut(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, nil)
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var input struct {
		Statut string `json:"statut"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeInvalidJSON, nil)
		return
	}
	switch input.Statut {
	case models.DevisNouveau, models.DevisTraite, models.DevisArchive:
	default:
		httpx.JSONError(w, http.StatusBadRequest, "invalid_statut", nil)
		return
	}
	ac := p.AuthContext()
	var devis models.Devis
	err = h.GW.Tx(r.Context(), ac, func(tx *gorm.DB) error {
		if err := tx.Scopes(scope.Tenant(ac)).First(&devis, id).Error; err != nil {
			return err
		}
		return tx.Model(&devis).Update("statut", input.Statut).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, httpx.CodeNotFound, nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_devis", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, devis)
}
