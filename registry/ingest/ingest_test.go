package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/NikSht/help-drugix/registry/check"
	"github.com/NikSht/help-drugix/registry/dictionary"
	"github.com/NikSht/help-drugix/registry/entities"
)

var batchTime = time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)

func fixtureDict(t *testing.T) *dictionary.Store {
	t.Helper()
	store, err := dictionary.NewStore(
		[]entities.InnSynonymRow{{InnRaw: "ибупрофен", Inn: "ibuprofen"}},
		[]entities.FormNormalizationRow{{FormRaw: "таблетки", Form: "tablets"}},
	)
	if err != nil {
		t.Fatalf("fixture dictionary failed: %v", err)
	}
	return store
}

func TestRunEndToEnd(t *testing.T) {
	p := NewPipeline(4)

	rows := Rows{
		Products: []entities.ProductRow{
			{ProductID: "P1", TradeName: "Нурофен", FormRaw: "таблетки", IsZnvlp: true, UpdatedAt: batchTime},
			{ProductID: "P2", TradeName: "Парацетамол", FormRaw: "сироп", UpdatedAt: batchTime},
		},
		Ingredients: []entities.IngredientRow{
			{ProductID: "P1", InnRaw: "Ибупрофен", Strength: "400", Unit: "mg", UpdatedAt: batchTime},
		},
		Prices: []entities.PriceRow{
			{ProductID: "P1", Pack: "№20", ZnvlpPriceRub: "99,90", PriceDate: "2026-07-01", UpdatedAt: batchTime},
		},
		AtcLinks: []entities.AtcLinkRow{
			{ProductID: "P1", AtcCode: "m01ae01", Source: "esklp", UpdatedAt: batchTime},
		},
	}

	report, snap := p.Run(context.Background(), fixtureDict(t), rows)

	if report.Rows != 5 {
		t.Errorf("Rows = %d, want 5", report.Rows)
	}
	if report.Created != 5 {
		t.Errorf("Created = %d, want 5, report: %+v", report.Created, report)
	}
	if len(report.Quarantined) != 0 {
		t.Errorf("Quarantined = %v, want none", report.Quarantined)
	}
	if report.BatchID == "" {
		t.Error("BatchID must be set")
	}

	bundle := snap.Bundles["P1"]
	if !bundle.HasProduct {
		t.Fatal("P1 must be committed")
	}
	if bundle.Product.DosageForm != "tablets" {
		t.Errorf("DosageForm = %q, want tablets", bundle.Product.DosageForm)
	}
	if len(bundle.Ingredients) != 1 || bundle.Ingredients[0].Inn != "ibuprofen" {
		t.Errorf("ingredients = %v, want canonical ibuprofen", bundle.Ingredients)
	}
	if len(bundle.Prices) != 1 || bundle.Prices[0].ZnvlpPriceRub != 99.90 {
		t.Errorf("prices = %v, want 99.90", bundle.Prices)
	}
	if len(bundle.AtcLinks) != 1 || bundle.AtcLinks[0].AtcCode != "M01AE01" {
		t.Errorf("atc links = %v, want M01AE01", bundle.AtcLinks)
	}

	// P2's form is not in the dictionary: committed anyway, flagged for review.
	p2 := snap.Bundles["P2"]
	if !p2.Product.FormNeedsReview {
		t.Error("unmatched form must set the review flag")
	}

	if len(report.Violations) != 0 {
		t.Errorf("violations = %v, want none", report.Violations)
	}
}

func TestRunQuarantinesMalformedRows(t *testing.T) {
	p := NewPipeline(2)

	rows := Rows{
		Products: []entities.ProductRow{
			{ProductID: "P1", TradeName: "Нурофен", UpdatedAt: batchTime},
			{TradeName: "без идентификатора", UpdatedAt: batchTime}, // no product_id
			{ProductID: "   ", TradeName: "пробельный идентификатор", UpdatedAt: batchTime},
		},
		Ingredients: []entities.IngredientRow{
			{ProductID: "P1", InnRaw: "ибупрофен", Strength: "4O0", UpdatedAt: batchTime}, // letter O
		},
		Prices: []entities.PriceRow{
			{ProductID: "P1", Pack: "№20", ZnvlpPriceRub: "free", PriceDate: "2026-07-01", UpdatedAt: batchTime},
		},
	}

	report, snap := p.Run(context.Background(), fixtureDict(t), rows)

	if len(report.Quarantined) != 4 {
		t.Fatalf("Quarantined = %d rows, want 4: %+v", len(report.Quarantined), report.Quarantined)
	}

	tables := make(map[string]int)
	for _, q := range report.Quarantined {
		tables[q.Table]++
		if q.Raw == "" || q.Reason == "" {
			t.Errorf("quarantined row missing raw content or reason: %+v", q)
		}
	}
	if tables["products"] != 2 || tables["ingredients"] != 1 || tables["prices"] != 1 {
		t.Errorf("quarantine tables = %v", tables)
	}

	// The good product row still committed.
	if report.Created != 1 {
		t.Errorf("Created = %d, want 1", report.Created)
	}
	if !snap.Bundles["P1"].HasProduct {
		t.Error("valid row in a batch with quarantined rows must still commit")
	}
	// A whitespace-only id must not create an entity keyed by the empty string.
	if _, ok := snap.Bundles[""]; ok {
		t.Error("whitespace-only product_id created an empty-keyed entity")
	}
}

func TestRunReportsOrphans(t *testing.T) {
	p := NewPipeline(2)

	rows := Rows{
		Prices: []entities.PriceRow{
			{ProductID: "P999", Pack: "№10", ZnvlpPriceRub: "50", PriceDate: "2026-07-01", UpdatedAt: batchTime},
		},
	}

	report, _ := p.Run(context.Background(), fixtureDict(t), rows)

	found := false
	for _, v := range report.Violations {
		if v.Kind == check.OrphanReference && v.ProductID == "P999" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected orphan_reference for P999, got %v", report.Violations)
	}
}

func TestDatasetPersistsAcrossBatches(t *testing.T) {
	p := NewPipeline(2)
	dict := fixtureDict(t)

	// Batch 1: product only.
	p.Run(context.Background(), dict, Rows{
		Products: []entities.ProductRow{{ProductID: "P1", TradeName: "Нурофен", UpdatedAt: batchTime}},
	})

	// Batch 2: a newer revision of the same product.
	later := batchTime.Add(12 * time.Hour)
	report, snap := p.Run(context.Background(), dict, Rows{
		Products: []entities.ProductRow{{ProductID: "P1", TradeName: "Нурофен Экспресс", UpdatedAt: later}},
	})

	if report.Updated != 1 {
		t.Errorf("Updated = %d, want 1 (second batch revises, not creates)", report.Updated)
	}
	if got := snap.Bundles["P1"].Product.TradeName; got != "Нурофен Экспресс" {
		t.Errorf("TradeName = %q, want the batch-2 value", got)
	}
}

func TestRerunningSameBatchIsAllNoops(t *testing.T) {
	p := NewPipeline(4)
	dict := fixtureDict(t)

	rows := Rows{
		Products: []entities.ProductRow{
			{ProductID: "P1", TradeName: "Нурофен", UpdatedAt: batchTime},
		},
		Ingredients: []entities.IngredientRow{
			{ProductID: "P1", InnRaw: "ибупрофен", Strength: "400", Unit: "mg", UpdatedAt: batchTime},
		},
	}

	p.Run(context.Background(), dict, rows)
	report, _ := p.Run(context.Background(), dict, rows)

	if report.Created != 0 || report.Updated != 0 {
		t.Errorf("re-run: Created = %d, Updated = %d, want all noops", report.Created, report.Updated)
	}
	if report.Noops != 2 {
		t.Errorf("re-run: Noops = %d, want 2", report.Noops)
	}
}

func TestManyProductsAcrossShards(t *testing.T) {
	p := NewPipeline(8)
	dict := fixtureDict(t)

	var rows Rows
	for i := 0; i < 200; i++ {
		id := "P" + strings.Repeat("x", i%7) + string(rune('A'+i%26))
		rows.Products = append(rows.Products, entities.ProductRow{
			ProductID: id, TradeName: "Препарат " + id, UpdatedAt: batchTime,
		})
	}

	report, snap := p.Run(context.Background(), dict, rows)

	if report.Created+report.Noops != len(rows.Products) {
		t.Errorf("created %d + noops %d != %d rows", report.Created, report.Noops, len(rows.Products))
	}
	if snap.ProductCount != report.Created {
		t.Errorf("ProductCount = %d, want %d", snap.ProductCount, report.Created)
	}
	if len(snap.Order) != snap.ProductCount {
		t.Errorf("Order length = %d, want %d", len(snap.Order), snap.ProductCount)
	}
}
