// Package resolve decides which entity an incoming normalized row belongs to.
// Product identity is the upstream product_id verbatim; there is no fuzzy
// matching and two distinct product ids are never merged, whatever their other
// fields look like. Child rows get a deterministic identity key within their
// product so identical facts from re-delivered feeds land on the same entity.
package resolve

import (
	"strconv"
	"strings"

	"github.com/NikSht/help-drugix/registry/entities"
)

// Kind enumerates the four entity tables.
type Kind string

const (
	KindProduct    Kind = "product"
	KindIngredient Kind = "ingredient"
	KindPrice      Kind = "price"
	KindAtcLink    Kind = "atc_link"
)

// EntityRef names the entity a row creates or updates. Key is empty for
// products (the product id is the whole identity) and the identity tuple for
// child records.
type EntityRef struct {
	Kind      Kind
	ProductID string
	Key       string
}

// Product resolves a product row. The id is taken as authoritative.
func Product(np entities.NormalizedProduct) EntityRef {
	return EntityRef{Kind: KindProduct, ProductID: strings.TrimSpace(np.Row.ProductID)}
}

// Ingredient resolves an ingredient row to its (inn, strength, unit) slot on
// the product. Matching rows update the existing ingredient; anything else is
// a new component of a combination drug.
func Ingredient(ni entities.NormalizedIngredient) EntityRef {
	return EntityRef{
		Kind:      KindIngredient,
		ProductID: strings.TrimSpace(ni.Row.ProductID),
		Key:       IngredientKey(ni.Inn, ni.Strength, ni.Row.Unit),
	}
}

// Price resolves a price row to its (pack, price_date) history slot.
func Price(np entities.NormalizedPrice) EntityRef {
	return EntityRef{
		Kind:      KindPrice,
		ProductID: strings.TrimSpace(np.Row.ProductID),
		Key:       PriceKey(np.Row.Pack, np.Row.PriceDate),
	}
}

// AtcLink resolves an ATC assertion to its (atc_code, source) slot.
func AtcLink(na entities.NormalizedAtcLink) EntityRef {
	return EntityRef{
		Kind:      KindAtcLink,
		ProductID: strings.TrimSpace(na.Row.ProductID),
		Key:       AtcLinkKey(na.AtcCode, na.Row.Source),
	}
}

// IngredientKey builds the identity tuple for an ingredient. The canonical
// INN is case-folded so a dictionary miss that preserved raw casing still
// collides with the same ingredient spelled differently only in case.
func IngredientKey(inn string, strength float64, unit string) string {
	return strings.ToLower(strings.TrimSpace(inn)) + "|" +
		strconv.FormatFloat(strength, 'f', -1, 64) + "|" +
		strings.ToLower(strings.TrimSpace(unit))
}

// PriceKey builds the identity tuple for a price history entry.
func PriceKey(pack, priceDate string) string {
	return strings.TrimSpace(pack) + "|" + strings.TrimSpace(priceDate)
}

// AtcLinkKey builds the identity tuple for an ATC assertion.
func AtcLinkKey(atcCode, source string) string {
	return strings.ToUpper(strings.TrimSpace(atcCode)) + "|" + strings.TrimSpace(source)
}
