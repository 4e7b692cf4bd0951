package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/demenago/devis-saas/internal/auth"
	"github.com/demenago/devis-saas/internal/httpx"
	"github.com/demenago/devis-saas/internal/models"
	"github.com/demenago/devis-saas/internal/scope"
)

// AdminHandler exposes cross-tenant aggregates. Routes are mounted behind
// RequireRole(admin); data access still goes through the gateway so the
// admin bypass is an explicit context, not a missing one.
type AdminHandler struct {
	GW *scope.Gateway
}

func NewAdminHandler(gw *scope.Gateway) *AdminHandler { return &AdminHandler{GW: gw} }

func listParams(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	return
}

// Entreprises: GET /api/admin/entreprises. Soft-deleted rows stay hidden.
func (h *AdminHandler) Entreprises(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	limit, offset := listParams(r)
	var items []models.Entreprise
	var total int64
	err := h.GW.Tx(r.Context(), scope.Admin(p.UserID), func(tx *gorm.DB) error {
		if err := tx.Model(&models.Entreprise{}).Count(&total).Error; err != nil {
			return err
		}
		return tx.Order("id desc").Limit(limit).Offset(offset).Find(&items).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_entreprises", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total, "limit": limit, "offset": offset})
}

// Users: GET /api/admin/users
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	limit, offset := listParams(r)
	var items []models.User
	var total int64
	err := h.GW.Tx(r.Context(), scope.Admin(p.UserID), func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Count(&total).Error; err != nil {
			return err
		}
		return tx.Order("id desc").Limit(limit).Offset(offset).Find(&items).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_users", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total, "limit": limit, "offset": offset})
}

// UpdatePlan: PATCH /api/admin/entreprises/{id}. Plan changes are an admin
// operation until the payment provider's webhooks drive them.
func (h *AdminHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var input struct {
		Plan string `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeInvalidJSON, nil)
		return
	}
	switch input.Plan {
	case models.PlanEssentiel, models.PlanPro:
	default:
		httpx.JSONError(w, http.StatusBadRequest, "invalid_plan", nil)
		return
	}
	var e models.Entreprise
	err = h.GW.Tx(r.Context(), scope.Admin(p.UserID), func(tx *gorm.DB) error {
		if err := tx.First(&e, id).Error; err != nil {
			return err
		}
		return tx.Model(&e).Update("plan", input.Plan).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, httpx.CodeNotFound, nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "plan_update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

// DevisOrphelins: GET /api/admin/audit/devis-orphelins. Operational
// zero-check; the write-time invariant keeps this count at 0.
func (h *AdminHandler) DevisOrphelins(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	var count int64
	err := h.GW.Tx(r.Context(), scope.Admin(p.UserID), func(tx *gorm.DB) error {
		return tx.Model(&models.Devis{}).
			Where("entreprise_id IS NULL OR entreprise_id = 0").
			Count(&count).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "audit_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"devis_orphelins": count})
}
