package models

import "time"

// Catalogue global (non partitionné par entreprise).
type CategorieMeuble struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Nom       string `gorm:"unique;not null" json:"nom"` // ex: Salon, Chambre, Cuisine
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Meuble struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Nom         string          `gorm:"not null;index" json:"nom"`
	CategorieID uint            `gorm:"not null;index" json:"categorie_id"`
	Categorie   CategorieMeuble `gorm:"foreignKey:CategorieID" json:"-"`
	VolumeM3    float64         `gorm:"not null" json:"volume_m3"` // volume unitaire
	PoidsKg     float64         `json:"poids_kg"`
	Actif       bool            `gorm:"not null;default:true;index" json:"actif"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
