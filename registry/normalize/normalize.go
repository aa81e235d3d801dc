// Package normalize canonicalizes raw feed rows before entity resolution.
// Free-text fields go through the dictionary store; numeric fields are parsed
// with locale-aware decimal handling (the feeds mix comma and dot separators).
// A parse failure is carried as a row-level error so the ingestor can
// quarantine the single row instead of aborting the batch.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NikSht/help-drugix/registry/dictionary"
	"github.com/NikSht/help-drugix/registry/entities"
)

// MalformedNumericError marks a row whose numeric field could not be parsed.
type MalformedNumericError struct {
	Field string
	Value string
	Err   error
}

func (e *MalformedNumericError) Error() string {
	return fmt.Sprintf("malformed numeric %s: %q: %v", e.Field, e.Value, e.Err)
}

func (e *MalformedNumericError) Unwrap() error { return e.Err }

// Normalizer applies the dictionaries to raw rows. The store is injected at
// construction so tests run against fixture dictionaries.
type Normalizer struct {
	dict *dictionary.Store
}

// New creates a Normalizer over the given dictionary store.
func New(dict *dictionary.Store) *Normalizer {
	return &Normalizer{dict: dict}
}

// Product resolves form_raw into a canonical dosage form and normalizes the
// status and ATC code. Unmatched forms fall back to the trimmed raw text with
// the review flag set.
func (n *Normalizer) Product(row entities.ProductRow) entities.NormalizedProduct {
	np := entities.NormalizedProduct{
		Row:       row,
		RegStatus: entities.ParseRegStatus(row.RegStatus),
		AtcCode:   strings.ToUpper(strings.TrimSpace(row.AtcCode)),
	}

	if form, ok := n.dict.LookupForm(row.FormRaw); ok {
		np.DosageForm = form
	} else {
		np.DosageForm = strings.TrimSpace(row.FormRaw)
		np.FormNeedsReview = np.DosageForm != ""
	}

	return np
}

// Ingredient resolves inn_raw into a canonical INN and parses the strength.
func (n *Normalizer) Ingredient(row entities.IngredientRow) (entities.NormalizedIngredient, error) {
	ni := entities.NormalizedIngredient{Row: row}

	if inn, ok := n.dict.LookupInn(row.InnRaw); ok {
		ni.Inn = inn
	} else {
		ni.Inn = strings.TrimSpace(row.InnRaw)
		ni.InnNeedsReview = true
	}

	if strings.TrimSpace(row.Strength) != "" {
		strength, err := ParseDecimal(row.Strength)
		if err != nil {
			return ni, &MalformedNumericError{Field: "strength", Value: row.Strength, Err: err}
		}
		ni.Strength = strength
	}

	return ni, nil
}

// Price parses the ZNVLP price value.
func (n *Normalizer) Price(row entities.PriceRow) (entities.NormalizedPrice, error) {
	np := entities.NormalizedPrice{Row: row}

	price, err := ParseDecimal(row.ZnvlpPriceRub)
	if err != nil {
		return np, &MalformedNumericError{Field: "znvlp_price_rub", Value: row.ZnvlpPriceRub, Err: err}
	}
	np.ZnvlpPriceRub = price

	return np, nil
}

// AtcLink normalizes the asserted ATC code to upper case.
func (n *Normalizer) AtcLink(row entities.AtcLinkRow) entities.NormalizedAtcLink {
	return entities.NormalizedAtcLink{
		Row:     row,
		AtcCode: strings.ToUpper(strings.TrimSpace(row.AtcCode)),
	}
}

// ParseDecimal parses a decimal that may use either a comma or a dot as the
// separator. Space and NBSP group separators are stripped first, so values
// like "1 234,56" from spreadsheet exports parse cleanly.
func ParseDecimal(s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	if cleaned == "" {
		return 0, fmt.Errorf("empty value")
	}
	if strings.Count(cleaned, ".") > 1 {
		return 0, fmt.Errorf("multiple decimal separators in %q", s)
	}

	return strconv.ParseFloat(cleaned, 64)
}
