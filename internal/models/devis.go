package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Statuts d'un devis
const (
	DevisNouveau = "nouveau"
	DevisTraite  = "traite"
	DevisArchive = "archive"
)

// ErrDevisSansEntreprise is returned when a quote is written without a tenant.
// Every devis row must carry its entreprise: isolation depends on it.
var ErrDevisSansEntreprise = errors.New("devis sans entreprise")

// Devis : demande de devis calculée pour une entreprise.
type Devis struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Reference string `gorm:"size:36;uniqueIndex;not null" json:"reference"`

	EntrepriseID uint       `gorm:"not null;index" json:"entreprise_id"`
	Entreprise   Entreprise `gorm:"foreignKey:EntrepriseID" json:"-"`

	// Demandeur
	NomClient       string `gorm:"not null" json:"nom_client"`
	PrenomClient    string `json:"prenom_client"`
	EmailClient     string `gorm:"not null;index" json:"email_client"`
	TelephoneClient string `json:"telephone_client"`

	// Adresses
	AdresseDepart    string `gorm:"not null" json:"adresse_depart"`
	EtageDepart      int    `json:"etage_depart"`
	AscenseurDepart  bool   `json:"ascenseur_depart"`
	AdresseArrivee   string `gorm:"not null" json:"adresse_arrivee"`
	EtageArrivee     int    `json:"etage_arrivee"`
	AscenseurArrivee bool   `json:"ascenseur_arrivee"`

	DateDemenagement *time.Time `json:"date_demenagement"`

	Statut        string  `gorm:"not null;default:'nouveau';index" json:"statut"`
	VolumeTotalM3 float64 `json:"volume_total_m3"`
	PoidsTotalKg  float64 `json:"poids_total_kg"`

	Lignes []DevisMeuble `gorm:"foreignKey:DevisID" json:"lignes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate enforces the tenant invariant at write time and assigns a
// public reference.
func (d *Devis) BeforeCreate(_ *gorm.DB) error {
	if d.EntrepriseID == 0 {
		return ErrDevisSansEntreprise
	}
	if d.Reference == "" {
		d.Reference = uuid.NewString()
	}
	return nil
}

// DevisMeuble : ligne de sélection (meuble + quantité) d'un devis.
type DevisMeuble struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	DevisID  uint   `gorm:"not null;index" json:"devis_id"`
	MeubleID uint   `gorm:"not null" json:"meuble_id"`
	Quantite int    `gorm:"not null" json:"quantite"`
	Meuble   Meuble `gorm:"foreignKey:MeubleID" json:"meuble"`
}
