package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/demenago/devis-saas/internal/auth"
	"github.com/demenago/devis-saas/internal/httpx"
	"github.com/demenago/devis-saas/internal/mail"
	"github.com/demenago/devis-saas/internal/models"
	"github.com/demenago/devis-saas/internal/scope"
	"github.com/demenago/devis-saas/internal/services"
	"github.com/demenago/devis-saas/internal/validation"
)

const resetTokenTTL = time.Hour

type AuthHandler struct {
	DB     *gorm.DB
	Mailer mail.Mailer
	Log    *zap.SugaredLogger
}

func NewAuthHandler(db *gorm.DB, mailer mail.Mailer, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{DB: db, Mailer: mailer, Log: log}
}

func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.HandleFunc("POST /api/auth/logout", h.logout)
	mux.HandleFunc("POST /api/auth/forgot-password", h.forgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", h.resetPassword)
	mux.Handle("GET /api/me", auth.RequireAuth(http.HandlerFunc(h.me)))
}

// me: GET /api/me. The authenticated caller's identity, any role.
func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":       p.UserID,
		"email":         p.Email,
		"role":          p.Role,
		"entreprise_id": p.EntrepriseID,
	})
}

// register creates the company user and its entreprise atomically.
func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email         string `json:"email"`
		Password      string `json:"password"`
		NomEntreprise string `json:"nom_entreprise"`
		Telephone     string `json:"telephone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeInvalidJSON, nil)
		return
	}
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	input.NomEntreprise = strings.TrimSpace(input.NomEntreprise)
	v := validation.Violations{}
	validation.Required("email", input.Email, v)
	validation.Email("email", input.Email, v)
	validation.Required("password", input.Password, v)
	validation.MinLen("password", input.Password, 8, v)
	validation.Required("nom_entreprise", input.NomEntreprise, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, v)
		return
	}

	var count int64
	if err := h.DB.Model(&models.User{}).Where("email = ?", input.Email).Count(&count).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, httpx.CodeInternalError, nil)
		return
	}
	if count > 0 {
		httpx.JSONError(w, http.StatusConflict, "email_already_exists", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, httpx.CodeInternalError, nil)
		return
	}

	slug := services.Slugify(input.NomEntreprise)
	var slugCount int64
	if err := h.DB.Model(&models.Entreprise{}).Unscoped().Where("slug = ?", slug).Count(&slugCount).Error; err == nil && slugCount > 0 {
		slug = services.UniqueSuffix(slug)
	}

	user := models.User{Email: input.Email, Password: string(hash), Role: models.RoleEntreprise}
	entreprise := models.Entreprise{
		Nom:       input.NomEntreprise,
		Slug:      slug,
		Titre:     "Calculez le volume de votre déménagement",
		Email:     input.Email,
		Telephone: input.Telephone,
		Plan:      models.PlanEssentiel,
	}
	// Un seul commit pour l'utilisateur et son entreprise.
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		entreprise.UserID = user.ID
		return tx.Create(&entreprise).Error
	})
	if err != nil {
		h.Log.Errorw("register failed", "email", input.Email, "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "registration_failed", nil)
		return
	}

	p := auth.Principal{UserID: user.ID, Email: user.Email, Role: scope.RoleEntreprise, EntrepriseID: entreprise.ID}
	if err := auth.CreateSession(w, p); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, httpx.CodeInternalError, nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"user": user, "entreprise": entreprise})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeInvalidJSON, nil)
		return
	}
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" || input.Password == "" {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, map[string]string{"email": "required", "password": "required"})
		return
	}
	var user models.User
	if err := h.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if !models.ValidRole(user.Role) {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}

	p := auth.Principal{UserID: user.ID, Email: user.Email, Role: scope.Role(user.Role)}
	if user.Role == models.RoleEntreprise {
		var e models.Entreprise
		if err := h.DB.Where("user_id = ?", user.ID).First(&e).Error; err == nil {
			p.EntrepriseID = e.ID
		}
	}
	if err := auth.CreateSession(w, p); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, httpx.CodeInternalError, nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": user, "entreprise_id": p.EntrepriseID})
}

func (h *AuthHandler) logout(w http.ResponseWriter, _ *http.Request) {
	auth.ClearSession(w)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// forgotPassword always answers 200 so the endpoint does not reveal which
// addresses exist.
func (h *AuthHandler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeInvalidJSON, nil)
		return
	}
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, map[string]string{"email": "required"})
		return
	}
	var user models.User
	if err := h.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, httpx.CodeInternalError, nil)
		return
	}
	token := uuid.NewString()
	expiry := time.Now().Add(resetTokenTTL)
	if err := h.DB.Model(&user).Updates(map[string]any{"reset_token": token, "reset_expiry": expiry}).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, httpx.CodeInternalError, nil)
		return
	}
	msg := mail.Message{
		To:      user.Email,
		Subject: "Réinitialisation de votre mot de passe",
		Body:    "Votre code de réinitialisation : " + token + " (valable 1 heure)",
	}
	if err := h.Mailer.Send(r.Context(), nil, msg); err != nil {
		// best-effort, single attempt
		h.Log.Warnw("reset mail failed", "email", user.Email, "error", err)
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeInvalidJSON, nil)
		return
	}
	v := validation.Violations{}
	validation.Required("token", input.Token, v)
	validation.Required("password", input.Password, v)
	validation.MinLen("password", input.Password, 8, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, v)
		return
	}
	var user models.User
	if err := h.DB.Where("reset_token = ?", input.Token).First(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_token", nil)
		return
	}
	if user.ResetExpiry == nil || time.Now().After(*user.ResetExpiry) {
		httpx.JSONError(w, http.StatusBadRequest, "token_expired", nil)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, httpx.CodeInternalError, nil)
		return
	}
	updates := map[string]any{"password": string(hash), "reset_token": "", "reset_expiry": nil}
	if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, httpx.CodeInternalError, nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "password_updated"})
}
