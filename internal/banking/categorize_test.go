package banking

import (
	"testing"

	"github.com/GregMSThompson/treasury-backend/internal/models"
)

func TestCategorize(t *testing.T) {
	cases := []struct {
		description string
		want        models.Category
	}{
		{"Frais de transaction", models.CategoryFrais},
		{"Commission Orange Money", models.CategoryFrais},
		{"Don anonyme", models.CategoryDon},
		{"DONS collecte été", models.CategoryDon},
		{"Soutien mairie", models.CategoryDon},
		{"Cotisation annuelle", models.CategoryDon},
		{"Salaire animateur", models.CategorySalaire},
		{"Paie mars", models.CategorySalaire},
		{"Paiement carte", models.CategoryAutre},
		{"Loyers local", models.CategoryLoyer},
		{"Courses Carrefour", models.CategoryCourses},
		{"Aide alimentaire", models.CategoryCourses},
		{"Virement association", models.CategoryAutre},
		{"London transfer", models.CategoryAutre},
		{"", models.CategoryAutre},
	}
	for _, tc := range cases {
		if got := Categorize(tc.description); got != tc.want {
			t.Errorf("Categorize(%q) = %s, want %s", tc.description, got, tc.want)
		}
	}
}

func TestTaxonomyOrderWins(t *testing.T) {
	if got := Categorize("Frais de don"); got != models.CategoryDon {
		t.Fatalf("expected first rule to win, got %s", got)
	}

	custom := Taxonomy{{Category: models.CategoryLoyer, Keywords: []string{"rent"}}}
	if got := custom.Categorize("Office rent"); got != models.CategoryLoyer {
		t.Fatalf("custom taxonomy not applied, got %s", got)
	}
}
