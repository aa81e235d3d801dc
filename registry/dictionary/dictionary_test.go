package dictionary

import (
	"errors"
	"testing"

	"github.com/NikSht/help-drugix/registry/entities"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "Ibuprofen", "ibuprofen"},
		{"trim", "  ибупрофен  ", "ибупрофен"},
		{"collapse inner spaces", "таблетки,  покрытые   оболочкой", "таблетки, покрытые оболочкой"},
		{"tabs and newlines", "a\tb\nc", "a b c"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeKey(tt.input); got != tt.expected {
				t.Errorf("NormalizeKey(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLookupIsCaseAndSpaceInsensitive(t *testing.T) {
	store, err := NewStore(
		[]entities.InnSynonymRow{{InnRaw: "Ибупрофен", Inn: "ibuprofen"}},
		[]entities.FormNormalizationRow{{FormRaw: "таблетки,  покрытые оболочкой", Form: "tablets"}},
	)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	inn, ok := store.LookupInn("  ибупрофен ")
	if !ok || inn != "ibuprofen" {
		t.Errorf("LookupInn = (%q, %v), want (ibuprofen, true)", inn, ok)
	}

	form, ok := store.LookupForm("Таблетки, покрытые   оболочкой")
	if !ok || form != "tablets" {
		t.Errorf("LookupForm = (%q, %v), want (tablets, true)", form, ok)
	}

	if _, ok := store.LookupInn("paracetamol"); ok {
		t.Error("expected miss for unknown raw name")
	}
}

func TestExactDuplicatesTolerated(t *testing.T) {
	store, err := NewStore(
		[]entities.InnSynonymRow{
			{InnRaw: "ибупрофен", Inn: "ibuprofen"},
			{InnRaw: "Ибупрофен", Inn: "ibuprofen"},
		},
		nil,
	)
	if err != nil {
		t.Fatalf("NewStore failed on exact duplicate: %v", err)
	}
	if store.InnCount() != 1 {
		t.Errorf("InnCount = %d, want 1", store.InnCount())
	}
}

func TestConflictFailsWholeLoad(t *testing.T) {
	_, err := NewStore(
		[]entities.InnSynonymRow{
			{InnRaw: "ибупрофен", Inn: "ibuprofen"},
			{InnRaw: "ибупрофен", Inn: "paracetamol"},
		},
		nil,
	)
	if err == nil {
		t.Fatal("expected conflict error, got nil")
	}

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected *ConflictError, got %T", err)
	}
	if conflict.Dictionary != DictInnSynonyms {
		t.Errorf("conflict dictionary = %q, want %q", conflict.Dictionary, DictInnSynonyms)
	}
	if conflict.Existing != "ibuprofen" || conflict.Incoming != "paracetamol" {
		t.Errorf("conflict values = (%q, %q), want (ibuprofen, paracetamol)", conflict.Existing, conflict.Incoming)
	}
}

func TestFormConflictFailsLoad(t *testing.T) {
	_, err := NewStore(nil, []entities.FormNormalizationRow{
		{FormRaw: "таб.", Form: "tablets"},
		{FormRaw: "ТАБ.", Form: "capsules"},
	})
	if err == nil {
		t.Fatal("expected conflict error for form dictionary")
	}
}

func TestEmptyRowsSkipped(t *testing.T) {
	store, err := NewStore(
		[]entities.InnSynonymRow{
			{InnRaw: "", Inn: "ibuprofen"},
			{InnRaw: "ибупрофен", Inn: ""},
			{InnRaw: "   ", Inn: "ibuprofen"},
		},
		nil,
	)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if store.InnCount() != 0 {
		t.Errorf("InnCount = %d, want 0 (all rows incomplete)", store.InnCount())
	}
}
