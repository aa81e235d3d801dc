package feeds

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/NikSht/help-drugix/logging"
	"github.com/NikSht/help-drugix/registry/entities"
	"github.com/NikSht/help-drugix/registry/ingest"
)

// Parser fetches and parses all six feeds.
type Parser struct {
	config Config
}

// NewParser creates a Parser over the given feed configuration.
func NewParser(config Config) *Parser {
	return &Parser{config: config}
}

// ParseAll fetches the four row feeds concurrently and parses them into
// typed rows. Numeric cells stay raw strings here; the normalizer owns
// their parsing and the quarantine decision.
func (p *Parser) ParseAll() (ingest.Rows, error) {
	var rows ingest.Rows
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		products, err := p.parseProducts()
		if err != nil {
			fail(err)
			return
		}
		rows.Products = products
	}()
	go func() {
		defer wg.Done()
		ingredients, err := p.parseIngredients()
		if err != nil {
			fail(err)
			return
		}
		rows.Ingredients = ingredients
	}()
	go func() {
		defer wg.Done()
		prices, err := p.parsePrices()
		if err != nil {
			fail(err)
			return
		}
		rows.Prices = prices
	}()
	go func() {
		defer wg.Done()
		atcLinks, err := p.parseAtcLinks()
		if err != nil {
			fail(err)
			return
		}
		rows.AtcLinks = atcLinks
	}()
	wg.Wait()

	if len(errs) > 0 {
		return ingest.Rows{}, fmt.Errorf("feed fetch failed: %v", errs)
	}

	return rows, nil
}

// ParseDictionaries fetches and parses the two dictionary feeds.
func (p *Parser) ParseDictionaries() ([]entities.InnSynonymRow, []entities.FormNormalizationRow, error) {
	innRecords, err := p.records(FeedInnSynonyms)
	if err != nil {
		return nil, nil, err
	}
	innRows := make([]entities.InnSynonymRow, 0, len(innRecords))
	for _, rec := range innRecords {
		innRows = append(innRows, entities.InnSynonymRow{
			InnRaw: rec.get("inn_raw"),
			Inn:    rec.get("inn"),
		})
	}

	formRecords, err := p.records(FeedFormNormalization)
	if err != nil {
		return nil, nil, err
	}
	formRows := make([]entities.FormNormalizationRow, 0, len(formRecords))
	for _, rec := range formRecords {
		formRows = append(formRows, entities.FormNormalizationRow{
			FormRaw: rec.get("form_raw"),
			Form:    rec.get("form"),
		})
	}

	return innRows, formRows, nil
}

func (p *Parser) parseProducts() ([]entities.ProductRow, error) {
	records, err := p.records(FeedProducts)
	if err != nil {
		return nil, err
	}

	rows := make([]entities.ProductRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, entities.ProductRow{
			ProductID:      rec.get("product_id"),
			TradeName:      rec.get("trade_name"),
			RegNumber:      rec.get("reg_number"),
			RegStatus:      rec.get("reg_status"),
			FormRaw:        rec.get("form_raw"),
			AtcCode:        rec.get("atc_code"),
			Pack:           rec.get("pack"),
			Country:        rec.get("country"),
			Holder:         rec.get("holder"),
			Manufacturer:   rec.get("manufacturer"),
			InstructionURL: rec.get("instruction_url"),
			RegistryURL:    rec.get("registry_url"),
			IsZnvlp:        parseBool(rec.get("is_znvlp")),
			UpdatedAt:      parseTime(rec.get("updated_at")),
		})
	}
	return rows, nil
}

func (p *Parser) parseIngredients() ([]entities.IngredientRow, error) {
	records, err := p.records(FeedIngredients)
	if err != nil {
		return nil, err
	}

	rows := make([]entities.IngredientRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, entities.IngredientRow{
			ProductID: rec.get("product_id"),
			InnRaw:    rec.get("inn_raw"),
			Strength:  rec.get("strength"),
			Unit:      rec.get("unit"),
			PerUnit:   rec.get("per_unit"),
			UpdatedAt: parseTime(rec.get("updated_at")),
		})
	}
	return rows, nil
}

func (p *Parser) parsePrices() ([]entities.PriceRow, error) {
	records, err := p.records(FeedPrices)
	if err != nil {
		return nil, err
	}

	rows := make([]entities.PriceRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, entities.PriceRow{
			ProductID:     rec.get("product_id"),
			Pack:          rec.get("pack"),
			ZnvlpPriceRub: rec.get("znvlp_price_rub"),
			PriceDate:     rec.get("price_date"),
			UpdatedAt:     parseTime(rec.get("updated_at")),
		})
	}
	return rows, nil
}

func (p *Parser) parseAtcLinks() ([]entities.AtcLinkRow, error) {
	records, err := p.records(FeedAtcLinks)
	if err != nil {
		return nil, err
	}

	rows := make([]entities.AtcLinkRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, entities.AtcLinkRow{
			ProductID: rec.get("product_id"),
			AtcCode:   rec.get("atc_code"),
			Source:    rec.get("source"),
			UpdatedAt: parseTime(rec.get("updated_at")),
		})
	}
	return rows, nil
}

// record is one CSV line addressed by header name.
type record struct {
	columns map[string]int
	fields  []string
}

func (r record) get(name string) string {
	idx, ok := r.columns[name]
	if !ok || idx >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[idx])
}

// records fetches one feed and splits it into header-addressed lines.
// Structurally broken lines are logged and skipped; they cannot be
// quarantined meaningfully because their column layout is unknown.
func (p *Parser) records(feed string) ([]record, error) {
	body, err := p.config.fetch(feed)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("feed %s: failed to read header: %w", feed, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var out []record
	var badLines int
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			badLines++
			continue
		}
		out = append(out, record{columns: columns, fields: fields})
	}

	if badLines > 0 {
		logging.Warn("Skipped malformed CSV lines", "feed", feed, "count", badLines)
	}
	logging.Debug(fmt.Sprintf("%s feed parsed without errors", feed))

	return out, nil
}

// parseBool accepts the truthy spellings seen across the feeds.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "да", "y", "yes":
		return true
	default:
		return false
	}
}

// parseTime accepts the timestamp layouts the feeds use. An absent or
// unparseable value becomes the zero time, which loses every merge against a
// real timestamp.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
