// Package check validates a committed snapshot after a batch. It runs only at
// batch boundaries so rows arriving out of order inside one batch do not raise
// transient violations, and it never repairs anything: violations are returned
// for the caller to act on.
package check

import (
	"fmt"

	"github.com/NikSht/help-drugix/registry/merge"
	"github.com/NikSht/help-drugix/registry/resolve"
)

// Kind enumerates the violation types.
type Kind string

const (
	// OrphanReference: an ingredient/price/ATC row references a product id
	// with no committed product record.
	OrphanReference Kind = "orphan_reference"
	// MissingZnvlpPrice: a product flagged is_znvlp has no price history.
	// Warning only.
	MissingZnvlpPrice Kind = "missing_znvlp_price"
	// DuplicateIngredient: two ingredients on one product share the same
	// (inn, strength, unit) tuple post-merge. Structurally impossible if the
	// resolver is correct, so this signals a resolver defect.
	DuplicateIngredient Kind = "duplicate_ingredient"
)

// Severity separates hard integrity failures from advisory findings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Violation is one finding of the consistency checker.
type Violation struct {
	Kind      Kind     `json:"kind"`
	Severity  Severity `json:"severity"`
	ProductID string   `json:"product_id"`
	Detail    string   `json:"detail"`
}

// Run validates referential integrity and data-quality invariants over a
// committed snapshot. The snapshot is read-only here.
func Run(snap *merge.Snapshot) []Violation {
	var violations []Violation

	for id, bundle := range snap.Bundles {
		if !bundle.HasProduct {
			// Child rows arrived for a product id never seen in the
			// products feed. They are held, not dropped: once the product
			// row arrives the bundle becomes queryable as-is.
			for _, ing := range bundle.Ingredients {
				violations = append(violations, Violation{
					Kind: OrphanReference, Severity: SeverityError, ProductID: id,
					Detail: fmt.Sprintf("ingredient %q references unknown product", ing.Inn),
				})
			}
			for _, pr := range bundle.Prices {
				violations = append(violations, Violation{
					Kind: OrphanReference, Severity: SeverityError, ProductID: id,
					Detail: fmt.Sprintf("price for pack %q on %s references unknown product", pr.Pack, pr.PriceDate),
				})
			}
			for _, link := range bundle.AtcLinks {
				violations = append(violations, Violation{
					Kind: OrphanReference, Severity: SeverityError, ProductID: id,
					Detail: fmt.Sprintf("atc link %s from %q references unknown product", link.AtcCode, link.Source),
				})
			}
			continue
		}

		if bundle.Product.IsZnvlp && len(bundle.Prices) == 0 {
			violations = append(violations, Violation{
				Kind: MissingZnvlpPrice, Severity: SeverityWarning, ProductID: id,
				Detail: "product is flagged is_znvlp but has no price history",
			})
		}

		seen := make(map[string]bool, len(bundle.Ingredients))
		for _, ing := range bundle.Ingredients {
			key := resolve.IngredientKey(ing.Inn, ing.Strength, ing.Unit)
			if seen[key] {
				violations = append(violations, Violation{
					Kind: DuplicateIngredient, Severity: SeverityError, ProductID: id,
					Detail: fmt.Sprintf("duplicate ingredient tuple %q", key),
				})
			}
			seen[key] = true
		}
	}

	return violations
}
