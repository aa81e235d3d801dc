// Package entities defines the row and entity types for the drug registry.
// Row types mirror the source CSV tables column for column; entity types are
// the merged, conflict-resolved views served to consumers.
package entities

import "time"

// ProductRow is one line of the products feed.
// Columns: product_id, trade_name, reg_number, reg_status, form_raw, atc_code,
// pack, country, holder, manufacturer, instruction_url, registry_url,
// is_znvlp, updated_at.
type ProductRow struct {
	ProductID      string    `json:"product_id"`
	TradeName      string    `json:"trade_name"`
	RegNumber      string    `json:"reg_number"`
	RegStatus      string    `json:"reg_status"`
	FormRaw        string    `json:"form_raw"`
	AtcCode        string    `json:"atc_code"`
	Pack           string    `json:"pack"`
	Country        string    `json:"country"`
	Holder         string    `json:"holder"`
	Manufacturer   string    `json:"manufacturer"`
	InstructionURL string    `json:"instruction_url"`
	RegistryURL    string    `json:"registry_url"`
	IsZnvlp        bool      `json:"is_znvlp"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IngredientRow is one line of the ingredients feed.
// Strength stays a string here: the feeds carry both comma and dot decimal
// separators and parsing is the normalizer's job.
type IngredientRow struct {
	ProductID string    `json:"product_id"`
	InnRaw    string    `json:"inn_raw"`
	Strength  string    `json:"strength"`
	Unit      string    `json:"unit"`
	PerUnit   string    `json:"per_unit"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PriceRow is one line of the ZNVLP prices feed. PriceDate is kept as the
// verbatim YYYY-MM-DD string because it is part of the row identity.
type PriceRow struct {
	ProductID     string    `json:"product_id"`
	Pack          string    `json:"pack"`
	ZnvlpPriceRub string    `json:"znvlp_price_rub"`
	PriceDate     string    `json:"price_date"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AtcLinkRow is one line of the ATC links feed. Source identifies which
// upstream registry asserted the code.
type AtcLinkRow struct {
	ProductID string    `json:"product_id"`
	AtcCode   string    `json:"atc_code"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InnSynonymRow maps a raw ingredient-name variant to its canonical INN.
type InnSynonymRow struct {
	InnRaw string `json:"inn_raw"`
	Inn    string `json:"inn"`
}

// FormNormalizationRow maps a raw dosage-form string to its canonical token.
type FormNormalizationRow struct {
	FormRaw string `json:"form_raw"`
	Form    string `json:"form"`
}
