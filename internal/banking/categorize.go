package banking

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/GregMSThompson/treasury-backend/internal/models"
)

// Rule assigns Category when any keyword matches a word of the description.
type Rule struct {
	Category models.Category
	Keywords []string
}

// Taxonomy is evaluated in order; the first matching rule wins.
type Taxonomy []Rule

// DefaultTaxonomy is the French keyword table used for synced and imported rows.
var DefaultTaxonomy = Taxonomy{
	{Category: models.CategoryDon, Keywords: []string{"don", "donation", "soutien", "cotisation"}},
	{Category: models.CategoryFrais, Keywords: []string{"frais", "commission"}},
	{Category: models.CategorySalaire, Keywords: []string{"salaire", "paie"}},
	{Category: models.CategoryLoyer, Keywords: []string{"loyer"}},
	{Category: models.CategoryCourses, Keywords: []string{"course", "aliment"}},
}

// Categorize applies DefaultTaxonomy.
func Categorize(description string) models.Category {
	return DefaultTaxonomy.Categorize(description)
}

func (t Taxonomy) Categorize(description string) models.Category {
	words := strings.FieldsFunc(Fold(description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, rule := range t {
		for _, kw := range rule.Keywords {
			for _, w := range words {
				if keywordMatches(w, kw) {
					return rule.Category
				}
			}
		}
	}
	return models.CategoryAutre
}

// keywordMatches accepts the keyword itself or its plural. Keywords of five
// letters or more also match as a prefix (loyers, alimentation), short ones
// do not, so "paie" stays clear of "paiement".
func keywordMatches(word, kw string) bool {
	if word == kw || word == kw+"s" || word == kw+"x" {
		return true
	}
	return len(kw) >= 5 && strings.HasPrefix(word, kw)
}

// Fold lower-cases s and strips accents, so "Libellé" and "LIBELLE" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
