// Package store exports each committed snapshot to a SQLite database so
// downstream consumers (the mini-app frontend, ad-hoc SQL) read a stable file
// instead of hitting the API. The whole export is one transaction: readers
// see either the previous batch or the new one, never a mix.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/NikSht/help-drugix/registry/ingest"
	"github.com/NikSht/help-drugix/registry/merge"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	product_id TEXT PRIMARY KEY,
	trade_name TEXT NOT NULL,
	reg_number TEXT NOT NULL,
	reg_status TEXT NOT NULL,
	dosage_form TEXT NOT NULL,
	form_raw TEXT NOT NULL,
	form_needs_review INTEGER NOT NULL,
	atc_code TEXT NOT NULL,
	pack TEXT NOT NULL,
	country TEXT NOT NULL,
	holder TEXT NOT NULL,
	manufacturer TEXT NOT NULL,
	instruction_url TEXT NOT NULL,
	registry_url TEXT NOT NULL,
	is_znvlp INTEGER NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS ingredients (
	product_id TEXT NOT NULL,
	inn TEXT NOT NULL,
	inn_raw TEXT NOT NULL,
	inn_needs_review INTEGER NOT NULL,
	strength REAL NOT NULL,
	unit TEXT NOT NULL,
	per_unit TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS prices (
	product_id TEXT NOT NULL,
	pack TEXT NOT NULL,
	price_date TEXT NOT NULL,
	znvlp_price_rub REAL NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS atc_links (
	product_id TEXT NOT NULL,
	atc_code TEXT NOT NULL,
	source TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS quarantine (
	batch_id TEXT NOT NULL,
	feed_table TEXT NOT NULL,
	raw TEXT NOT NULL,
	reason TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS violations (
	batch_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	severity TEXT NOT NULL,
	product_id TEXT NOT NULL,
	detail TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS batches (
	batch_id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	rows INTEGER NOT NULL,
	created INTEGER NOT NULL,
	updated INTEGER NOT NULL,
	noops INTEGER NOT NULL
);
`

// Store writes snapshots to a SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the snapshot database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// SaveSnapshot replaces the exported dataset with the given snapshot and
// appends the batch's quarantine, violations and stats.
func (s *Store) SaveSnapshot(snap *merge.Snapshot, report *ingest.Report) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin export tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"products", "ingredients", "prices", "atc_links"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := s.insertBundles(tx, snap); err != nil {
		return err
	}

	for _, q := range report.Quarantined {
		if _, err := tx.Exec(
			"INSERT INTO quarantine (batch_id, feed_table, raw, reason) VALUES (?, ?, ?, ?)",
			report.BatchID, q.Table, q.Raw, q.Reason,
		); err != nil {
			return fmt.Errorf("insert quarantine row: %w", err)
		}
	}

	for _, v := range report.Violations {
		if _, err := tx.Exec(
			"INSERT INTO violations (batch_id, kind, severity, product_id, detail) VALUES (?, ?, ?, ?, ?)",
			report.BatchID, string(v.Kind), string(v.Severity), v.ProductID, v.Detail,
		); err != nil {
			return fmt.Errorf("insert violation: %w", err)
		}
	}

	if _, err := tx.Exec(
		"INSERT INTO batches (batch_id, started_at, duration_ms, rows, created, updated, noops) VALUES (?, ?, ?, ?, ?, ?, ?)",
		report.BatchID, report.StartedAt.UTC().Format(time.RFC3339),
		report.Duration.Milliseconds(), report.Rows, report.Created, report.Updated, report.Noops,
	); err != nil {
		return fmt.Errorf("insert batch stats: %w", err)
	}

	return tx.Commit()
}

func (s *Store) insertBundles(tx *sql.Tx, snap *merge.Snapshot) error {
	insertProduct, err := tx.Prepare(`INSERT INTO products
		(product_id, trade_name, reg_number, reg_status, dosage_form, form_raw,
		 form_needs_review, atc_code, pack, country, holder, manufacturer,
		 instruction_url, registry_url, is_znvlp, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare products insert: %w", err)
	}
	defer insertProduct.Close()

	insertIngredient, err := tx.Prepare(`INSERT INTO ingredients
		(product_id, inn, inn_raw, inn_needs_review, strength, unit, per_unit, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ingredients insert: %w", err)
	}
	defer insertIngredient.Close()

	insertPrice, err := tx.Prepare(`INSERT INTO prices
		(product_id, pack, price_date, znvlp_price_rub, updated_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare prices insert: %w", err)
	}
	defer insertPrice.Close()

	insertAtc, err := tx.Prepare(`INSERT INTO atc_links
		(product_id, atc_code, source, updated_at)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare atc_links insert: %w", err)
	}
	defer insertAtc.Close()

	// Only committed products are exported; orphan bundles stay in memory
	// until their product row arrives and are reported via violations.
	for _, id := range snap.Order {
		bundle := snap.Bundles[id]
		p := bundle.Product

		if _, err := insertProduct.Exec(
			p.ProductID, p.TradeName, p.RegNumber, string(p.RegStatus), p.DosageForm,
			p.FormRaw, boolToInt(p.FormNeedsReview), p.AtcCode, p.Pack, p.Country,
			p.Holder, p.Manufacturer, p.InstructionURL, p.RegistryURL,
			boolToInt(p.IsZnvlp), p.UpdatedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("insert product %s: %w", p.ProductID, err)
		}

		for _, ing := range bundle.Ingredients {
			if _, err := insertIngredient.Exec(
				p.ProductID, ing.Inn, ing.InnRaw, boolToInt(ing.InnNeedsReview),
				ing.Strength, ing.Unit, ing.PerUnit, ing.UpdatedAt.UTC().Format(time.RFC3339),
			); err != nil {
				return fmt.Errorf("insert ingredient for %s: %w", p.ProductID, err)
			}
		}

		for _, pr := range bundle.Prices {
			if _, err := insertPrice.Exec(
				p.ProductID, pr.Pack, pr.PriceDate, pr.ZnvlpPriceRub,
				pr.UpdatedAt.UTC().Format(time.RFC3339),
			); err != nil {
				return fmt.Errorf("insert price for %s: %w", p.ProductID, err)
			}
		}

		for _, link := range bundle.AtcLinks {
			if _, err := insertAtc.Exec(
				p.ProductID, link.AtcCode, link.Source,
				link.UpdatedAt.UTC().Format(time.RFC3339),
			); err != nil {
				return fmt.Errorf("insert atc link for %s: %w", p.ProductID, err)
			}
		}
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
