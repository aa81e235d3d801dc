// Package dictionary holds the two normalization dictionaries used by the
// registry: INN synonym mapping and dosage-form normalization. A Store is
// immutable after construction, so ingestion workers share it without
// synchronization; reloading means building a new Store at a batch boundary.
package dictionary

import (
	"fmt"
	"strings"

	"github.com/NikSht/help-drugix/registry/entities"
)

// Dictionary names used in conflict errors.
const (
	DictInnSynonyms       = "inn_synonyms"
	DictFormNormalization = "form_normalization"
)

// ConflictError reports an ambiguous mapping: the same raw text mapped to two
// different canonical values within one dictionary. A dictionary that fails
// this check must not be used at all.
type ConflictError struct {
	Dictionary string
	Raw        string
	Existing   string
	Incoming   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("dictionary %s: raw %q maps to both %q and %q",
		e.Dictionary, e.Raw, e.Existing, e.Incoming)
}

// Store is a pair of read-only lookup tables keyed by normalized raw text.
type Store struct {
	inn  map[string]string
	form map[string]string
}

// NewStore builds a Store from dictionary rows. Rows with an empty raw or
// canonical side are skipped. Exact duplicates are tolerated; a raw text
// mapped to two different canonical values fails the whole load with a
// *ConflictError.
func NewStore(innRows []entities.InnSynonymRow, formRows []entities.FormNormalizationRow) (*Store, error) {
	s := &Store{
		inn:  make(map[string]string, len(innRows)),
		form: make(map[string]string, len(formRows)),
	}

	for _, row := range innRows {
		if err := insert(s.inn, DictInnSynonyms, row.InnRaw, row.Inn); err != nil {
			return nil, err
		}
	}
	for _, row := range formRows {
		if err := insert(s.form, DictFormNormalization, row.FormRaw, row.Form); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func insert(m map[string]string, dict, raw, canonical string) error {
	key := NormalizeKey(raw)
	canonical = strings.TrimSpace(canonical)
	if key == "" || canonical == "" {
		return nil
	}

	if existing, ok := m[key]; ok {
		if existing == canonical {
			return nil
		}
		return &ConflictError{Dictionary: dict, Raw: key, Existing: existing, Incoming: canonical}
	}

	m[key] = canonical
	return nil
}

// LookupInn returns the canonical INN for a raw ingredient name. A miss is
// not an error; the caller falls back to the raw text with a review flag.
func (s *Store) LookupInn(raw string) (string, bool) {
	inn, ok := s.inn[NormalizeKey(raw)]
	return inn, ok
}

// LookupForm returns the canonical dosage form for a raw form string.
func (s *Store) LookupForm(raw string) (string, bool) {
	form, ok := s.form[NormalizeKey(raw)]
	return form, ok
}

// InnCount returns the number of INN synonym entries.
func (s *Store) InnCount() int { return len(s.inn) }

// FormCount returns the number of form normalization entries.
func (s *Store) FormCount() int { return len(s.form) }

// NormalizeKey prepares raw text for dictionary matching: trim, lowercase,
// collapse internal whitespace runs to a single space.
func NormalizeKey(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}
