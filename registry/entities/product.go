package entities

import "time"

// Product is the merged, conflict-resolved view of one registry product.
type Product struct {
	ProductID       string    `json:"product_id"`
	TradeName       string    `json:"trade_name"`
	RegNumber       string    `json:"reg_number"`
	RegStatus       RegStatus `json:"reg_status"`
	DosageForm      string    `json:"dosage_form"`
	FormRaw         string    `json:"form_raw"`
	FormNeedsReview bool      `json:"form_needs_review,omitempty"`
	AtcCode         string    `json:"atc_code"`
	Pack            string    `json:"pack"`
	Country         string    `json:"country"`
	Holder          string    `json:"holder"`
	Manufacturer    string    `json:"manufacturer"`
	InstructionURL  string    `json:"instruction_url"`
	RegistryURL     string    `json:"registry_url"`
	IsZnvlp         bool      `json:"is_znvlp"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Ingredient is one active component of a product. Combination drugs carry
// several, distinguished by (inn, strength, unit).
type Ingredient struct {
	Inn            string    `json:"inn"`
	InnRaw         string    `json:"inn_raw"`
	InnNeedsReview bool      `json:"inn_needs_review,omitempty"`
	Strength       float64   `json:"strength"`
	Unit           string    `json:"unit"`
	PerUnit        string    `json:"per_unit"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Price is one point of the ZNVLP price history for a product/pack pair.
// History entries accumulate; they are never replaced by later dates.
type Price struct {
	Pack          string    `json:"pack"`
	PriceDate     string    `json:"price_date"`
	ZnvlpPriceRub float64   `json:"znvlp_price_rub"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AtcLink is one ATC code assertion for a product, with provenance. Different
// sources may disagree; all assertions are retained.
type AtcLink struct {
	AtcCode   string    `json:"atc_code"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductBundle is a product together with its owned records, as served by
// the query API. HasProduct is false while only child rows have arrived for
// the product id; such bundles are held back from queries and reported as
// orphan references by the consistency checker.
type ProductBundle struct {
	Product     Product      `json:"product"`
	HasProduct  bool         `json:"-"`
	Ingredients []Ingredient `json:"ingredients"`
	Prices      []Price      `json:"prices"`
	AtcLinks    []AtcLink    `json:"atc_links"`
}

// NormalizedProduct is a product row after dictionary canonicalization.
type NormalizedProduct struct {
	Row             ProductRow
	RegStatus       RegStatus
	DosageForm      string
	FormNeedsReview bool
	AtcCode         string
}

// NormalizedIngredient is an ingredient row after INN canonicalization and
// strength parsing.
type NormalizedIngredient struct {
	Row            IngredientRow
	Inn            string
	InnNeedsReview bool
	Strength       float64
}

// NormalizedPrice is a price row after decimal parsing.
type NormalizedPrice struct {
	Row           PriceRow
	ZnvlpPriceRub float64
}

// NormalizedAtcLink is an ATC link row after code normalization.
type NormalizedAtcLink struct {
	Row     AtcLinkRow
	AtcCode string
}
