package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/demenago/devis-saas/internal/httpx"
	"github.com/demenago/devis-saas/internal/models"
	"github.com/demenago/devis-saas/internal/validation"
)

// MeubleHandler serves the global furniture catalogue. Not tenant-scoped:
// every calculator shares the same inventory, so the plain query path applies.
type MeubleHandler struct {
	DB *gorm.DB
}

func NewMeubleHandler(db *gorm.DB) *MeubleHandler { return &MeubleHandler{DB: db} }

// PublicList: GET /api/public/meubles. Active items with their categories.
func (h *MeubleHandler) PublicList(w http.ResponseWriter, r *http.Request) {
	var categories []models.CategorieMeuble
	if err := h.DB.Order("nom asc").Find(&categories).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_categories", nil)
		return
	}
	var meubles []models.Meuble
	if err := h.DB.Where("actif = ?", true).Order("nom asc").Find(&meubles).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_meubles", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": categories, "meubles": meubles})
}

// Create: POST /api/admin/meubles
func (h *MeubleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Nom         string  `json:"nom"`
		CategorieID uint    `json:"categorie_id"`
		VolumeM3    float64 `json:"volume_m3"`
		PoidsKg     float64 `json:"poids_kg"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeInvalidJSON, nil)
		return
	}
	v := validation.Violations{}
	validation.Required("nom", input.Nom, v)
	validation.PositiveFloat("volume_m3", input.VolumeM3, v)
	if input.CategorieID == 0 {
		v["categorie_id"] = "required"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, v)
		return
	}
	var cat models.CategorieMeuble
	if err := h.DB.First(&cat, input.CategorieID).Error; err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "categorie_not_found", nil)
		return
	}
	m := models.Meuble{Nom: input.Nom, CategorieID: input.CategorieID, VolumeM3: input.VolumeM3, PoidsKg: input.PoidsKg, Actif: true}
	if err := h.DB.Create(&m).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "meuble_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

// Update: PUT /api/admin/meubles/{id} (name, volume, weight, active flag).
func (h *MeubleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var m models.Meuble
	if err := h.DB.First(&m, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, httpx.CodeNotFound, nil)
		return
	}
	var input struct {
		Nom         *string  `json:"nom"`
		CategorieID *uint    `json:"categorie_id"`
		VolumeM3    *float64 `json:"volume_m3"`
		PoidsKg     *float64 `json:"poids_kg"`
		Actif       *bool    `json:"actif"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeInvalidJSON, nil)
		return
	}
	if input.Nom != nil && *input.Nom != "" {
		m.Nom = *input.Nom
	}
	if input.CategorieID != nil && *input.CategorieID != 0 {
		m.CategorieID = *input.CategorieID
	}
	if input.VolumeM3 != nil && *input.VolumeM3 > 0 {
		m.VolumeM3 = *input.VolumeM3
	}
	if input.PoidsKg != nil {
		m.PoidsKg = *input.PoidsKg
	}
	if input.Actif != nil {
		m.Actif = *input.Actif
	}
	if err := h.DB.Save(&m).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

// Delete: DELETE /api/admin/meubles/{id}. Deactivates rather than removes,
// existing devis lines keep referencing the row.
func (h *MeubleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	res := h.DB.Model(&models.Meuble{}).Where("id = ?", id).Update("actif", false)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, httpx.CodeNotFound, nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deactivated": id})
}

// CreateCategorie: POST /api/admin/categories
func (h *MeubleHandler) CreateCategorie(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Nom string `json:"nom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeInvalidJSON, nil)
		return
	}
	v := validation.Violations{}
	validation.Required("nom", input.Nom, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, v)
		return
	}
	c := models.CategorieMeuble{Nom: input.Nom}
	if err := h.DB.Create(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			httpx.JSONError(w, http.StatusConflict, "categorie_already_exists", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "categorie_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}
