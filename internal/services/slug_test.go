package services

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Acme Déménagements", "acme-demenagements"},
		{"  L'Équipe & Co  ", "l-equipe-co"},
		{"Breizh---Transit", "breizh-transit"},
		{"Çà et Là", "ca-et-la"},
		{"Œuvre Mobile", "oeuvre-mobile"},
		{"123 Cartons", "123-cartons"},
		{"***", "entreprise"},
		{"", "entreprise"},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Fatalf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestUniqueSuffix(t *testing.T) {
	a := UniqueSuffix("acme")
	b := UniqueSuffix("acme")
	if !strings.HasPrefix(a, "acme-") || len(a) != len("acme-")+8 {
		t.Fatalf("unexpected suffix format %q", a)
	}
	if a == b {
		t.Fatalf("suffixes should differ: %q", a)
	}
}
