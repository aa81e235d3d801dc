package resolve

import (
	"testing"

	"github.com/NikSht/help-drugix/registry/entities"
)

func TestProductIdentityIsVerbatimID(t *testing.T) {
	ref := Product(entities.NormalizedProduct{
		Row: entities.ProductRow{ProductID: " 21.3.417 ", TradeName: "Нурофен"},
	})

	if ref.Kind != KindProduct {
		t.Errorf("Kind = %q, want product", ref.Kind)
	}
	if ref.ProductID != "21.3.417" {
		t.Errorf("ProductID = %q, want trimmed id", ref.ProductID)
	}
	if ref.Key != "" {
		t.Errorf("Key = %q, want empty for products", ref.Key)
	}
}

func TestIngredientKey(t *testing.T) {
	tests := []struct {
		name     string
		inn      string
		strength float64
		unit     string
		expected string
	}{
		{"basic", "ibuprofen", 400, "mg", "ibuprofen|400|mg"},
		{"case folded", "Ibuprofen", 400, "MG", "ibuprofen|400|mg"},
		{"fractional strength", "paracetamol", 32.5, "mg", "paracetamol|32.5|mg"},
		{"zero strength", "aqua", 0, "", "aqua|0|"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IngredientKey(tt.inn, tt.strength, tt.unit); got != tt.expected {
				t.Errorf("IngredientKey = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestIngredientRefUsesCanonicalInn(t *testing.T) {
	ref := Ingredient(entities.NormalizedIngredient{
		Row:      entities.IngredientRow{ProductID: "P1", InnRaw: "Ибупрофен", Unit: "mg"},
		Inn:      "ibuprofen",
		Strength: 400,
	})

	if ref.Key != "ibuprofen|400|mg" {
		t.Errorf("Key = %q, identity must use the canonical INN, not the raw text", ref.Key)
	}
}

func TestPriceKey(t *testing.T) {
	ref := Price(entities.NormalizedPrice{
		Row: entities.PriceRow{ProductID: "P1", Pack: " №20 ", PriceDate: "2026-08-01"},
	})
	if ref.Key != "№20|2026-08-01" {
		t.Errorf("Key = %q, want №20|2026-08-01", ref.Key)
	}
}

func TestAtcLinkKeyUppercasesCode(t *testing.T) {
	if got := AtcLinkKey("m01ae01", "esklp"); got != "M01AE01|esklp" {
		t.Errorf("AtcLinkKey = %q, want M01AE01|esklp", got)
	}
}
