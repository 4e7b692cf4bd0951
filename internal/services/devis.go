package services

import (
	"math"

	"github.com/demenago/devis-saas/internal/models"
)

// DevisService computes quote totals from selected catalogue lines.
type DevisService struct{}

func NewDevisService() *DevisService { return &DevisService{} }

// ComputeTotaux sums volume and weight over line items. Each line must carry
// its Meuble (preloaded or attached by the caller). Results are rounded to
// two decimals so stored totals are stable across recomputation.
func (s *DevisService) ComputeTotaux(lignes []models.DevisMeuble) (volumeM3, poidsKg float64) {
	for _, l := range lignes {
		q := float64(l.Quantite)
		volumeM3 += q * l.Meuble.VolumeM3
		poidsKg += q * l.Meuble.PoidsKg
	}
	return round2(volumeM3), round2(poidsKg)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
