package models

import (
	"time"

	"gorm.io/gorm"
)

// Plans d'abonnement
const (
	PlanEssentiel = "essentiel"
	PlanPro       = "pro"
)

// Entreprise (tenant) : société de déménagement titulaire d'un calculateur.
// Le Slug identifie la page publique; une fois publié il ne change plus.
type Entreprise struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"uniqueIndex" json:"user_id"` // propriétaire (1:1), optionnel tant que l'inscription n'est pas finalisée
	User   User `gorm:"foreignKey:UserID" json:"-"`

	Nom  string `gorm:"not null;index" json:"nom"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`

	// Personnalisation du formulaire public
	Titre             string `json:"titre"`
	CouleurPrimaire   string `gorm:"default:'#1f6feb'" json:"couleur_primaire"`
	CouleurSecondaire string `gorm:"default:'#f6f8fa'" json:"couleur_secondaire"`
	LogoURL           string `json:"logo_url"`

	// Contact
	Email     string `json:"email"`
	Telephone string `json:"telephone"`
	Adresse   string `json:"adresse"`

	// Abonnement (fournisseur de paiement)
	StripeCustomerID string `gorm:"index" json:"-"`
	Plan             string `gorm:"not null;default:'essentiel'" json:"plan"`

	// SMTP sortant personnalisé (sinon credentials plateforme)
	SMTPHost string `json:"-"`
	SMTPPort int    `json:"-"`
	SMTPUser string `json:"-"`
	SMTPPass string `json:"-"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SMTPConfigured reports whether the entreprise carries its own outbound
// mail credentials.
func (e *Entreprise) SMTPConfigured() bool {
	return e.SMTPHost != "" && e.SMTPUser != ""
}
