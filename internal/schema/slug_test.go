package schema

import (
	"strings"
	"testing"
)

func TestNormalizeSlug(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"accents and punctuation", "Pharmacie de l'Étoile!", "pharmacie_de_l_etoile"},
		{"already a slug", "pharmaceutical_products", "pharmaceutical_products"},
		{"uppercase", "Dermocosmétique", "dermocosmetique"},
		{"runs collapse", "a  --  b", "a_b"},
		{"leading and trailing noise", "  ***produits***  ", "produits"},
		{"digits kept", "vitamine B12", "vitamine_b12"},
		{"empty input", "", ""},
		{"only symbols", "!!??", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeSlug(tc.input); got != tc.want {
				t.Errorf("NormalizeSlug(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeSlugLengthCap(t *testing.T) {
	long := strings.Repeat("abcde ", 20)

	slug := NormalizeSlug(long)

	if len(slug) > maxSlugLength {
		t.Errorf("slug length %d exceeds cap %d", len(slug), maxSlugLength)
	}
	if strings.HasSuffix(slug, "_") || strings.HasPrefix(slug, "_") {
		t.Errorf("slug %q has a dangling underscore after truncation", slug)
	}
}
