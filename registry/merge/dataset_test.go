package merge

import (
	"testing"
	"time"

	"github.com/NikSht/help-drugix/registry/entities"
)

func productAt(id, tradeName string, at time.Time) entities.NormalizedProduct {
	return entities.NormalizedProduct{
		Row: entities.ProductRow{
			ProductID: id,
			TradeName: tradeName,
			Pack:      "№20",
			UpdatedAt: at,
		},
		RegStatus:  entities.RegStatusRegistered,
		DosageForm: "tablets",
		AtcCode:    "M01AE01",
	}
}

func ingredientAt(id, inn string, strength float64, unit string, at time.Time) entities.NormalizedIngredient {
	return entities.NormalizedIngredient{
		Row: entities.IngredientRow{
			ProductID: id,
			InnRaw:    inn,
			Unit:      unit,
			UpdatedAt: at,
		},
		Inn:      inn,
		Strength: strength,
	}
}

func priceAt(id, pack, date string, value float64, at time.Time) entities.NormalizedPrice {
	return entities.NormalizedPrice{
		Row: entities.PriceRow{
			ProductID: id,
			Pack:      pack,
			PriceDate: date,
			UpdatedAt: at,
		},
		ZnvlpPriceRub: value,
	}
}

func TestApplyProductFieldLevelLWW(t *testing.T) {
	d := NewDataset(4)

	// Older row carries the full record, newer row revises only trade_name
	// context: the newer timestamp wins per field, not per row.
	d.ApplyProduct(productAt("P1", "Нурофен", t1))

	newer := productAt("P1", "Нурофен Экспресс", t2)
	res := d.ApplyProduct(newer)
	if res.Op != OpUpdated {
		t.Fatalf("Op = %q, want updated", res.Op)
	}

	product := res.Entity.(entities.Product)
	if product.TradeName != "Нурофен Экспресс" {
		t.Errorf("TradeName = %q, want the newer value", product.TradeName)
	}

	// The older row re-delivered must not roll anything back.
	res = d.ApplyProduct(productAt("P1", "Нурофен", t1))
	if res.Op != OpNoop {
		t.Errorf("Op = %q, want noop for stale re-delivery", res.Op)
	}
	if got := res.Entity.(entities.Product).TradeName; got != "Нурофен Экспресс" {
		t.Errorf("TradeName = %q, stale row overwrote newer value", got)
	}
}

func TestApplyProductIdempotent(t *testing.T) {
	d := NewDataset(4)

	first := d.ApplyProduct(productAt("P1", "Нурофен", t1))
	if first.Op != OpCreated {
		t.Fatalf("first apply Op = %q, want created", first.Op)
	}

	second := d.ApplyProduct(productAt("P1", "Нурофен", t1))
	if second.Op != OpNoop {
		t.Errorf("second apply Op = %q, want noop", second.Op)
	}
}

func TestOrderIndependence(t *testing.T) {
	rows := []entities.NormalizedProduct{
		productAt("P1", "A", t1),
		productAt("P1", "B", t2),
		productAt("P1", "C", t1.Add(time.Hour)),
	}

	permutations := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}

	for _, perm := range permutations {
		d := NewDataset(4)
		for _, idx := range perm {
			d.ApplyProduct(rows[idx])
		}

		snap := d.Snapshot()
		got := snap.Bundles["P1"].Product.TradeName
		if got != "B" {
			t.Errorf("permutation %v: TradeName = %q, want B (newest write)", perm, got)
		}
	}
}

func TestIngredientIdentityTupleSeparatesComponents(t *testing.T) {
	d := NewDataset(4)

	// Combination drug: same product, two (inn, strength, unit) tuples.
	d.ApplyIngredient(ingredientAt("P1", "ibuprofen", 400, "mg", t1))
	d.ApplyIngredient(ingredientAt("P1", "paracetamol", 325, "mg", t1))
	// Matching tuple again: update, not a third component.
	res := d.ApplyIngredient(ingredientAt("P1", "ibuprofen", 400, "mg", t1))
	if res.Op != OpNoop {
		t.Errorf("matching tuple Op = %q, want noop", res.Op)
	}

	snap := d.Snapshot()
	if got := len(snap.Bundles["P1"].Ingredients); got != 2 {
		t.Errorf("ingredient count = %d, want 2", got)
	}
}

func TestIngredientCaseInsensitiveIdentity(t *testing.T) {
	d := NewDataset(4)

	d.ApplyIngredient(ingredientAt("P1", "Ibuprofen", 400, "MG", t1))
	res := d.ApplyIngredient(ingredientAt("P1", "ibuprofen", 400, "mg", t1))
	if res.Op == OpCreated {
		t.Error("case-only difference must resolve to the same ingredient")
	}
}

func TestPriceHistoryAccumulates(t *testing.T) {
	d := NewDataset(4)

	d.ApplyPrice(priceAt("P1", "№20", "2026-07-01", 99.90, t1))
	d.ApplyPrice(priceAt("P1", "№20", "2026-08-01", 104.50, t2))

	snap := d.Snapshot()
	prices := snap.Bundles["P1"].Prices
	if len(prices) != 2 {
		t.Fatalf("price history length = %d, want 2 (history accumulates)", len(prices))
	}
	// Sorted by date.
	if prices[0].PriceDate != "2026-07-01" || prices[1].PriceDate != "2026-08-01" {
		t.Errorf("price history out of order: %v", prices)
	}
}

func TestPriceCorrectionNeedsNewerTimestamp(t *testing.T) {
	d := NewDataset(4)

	d.ApplyPrice(priceAt("P1", "№20", "2026-07-01", 99.90, t2))

	// Same (pack, date) slot with an older updated_at: value stays.
	res := d.ApplyPrice(priceAt("P1", "№20", "2026-07-01", 11.11, t1))
	if res.Op != OpNoop {
		t.Errorf("stale correction Op = %q, want noop", res.Op)
	}
	if got := res.Entity.(entities.Price).ZnvlpPriceRub; got != 99.90 {
		t.Errorf("price = %v, stale row overwrote value", got)
	}

	// Newer correction of the same historical fact wins.
	res = d.ApplyPrice(priceAt("P1", "№20", "2026-07-01", 100.00, t2.Add(time.Hour)))
	if res.Op != OpUpdated {
		t.Errorf("newer correction Op = %q, want updated", res.Op)
	}
}

func TestAtcLinksKeepAllSources(t *testing.T) {
	d := NewDataset(4)

	apply := func(code, source string, at time.Time) CommitResult {
		return d.ApplyAtcLink(entities.NormalizedAtcLink{
			Row:     entities.AtcLinkRow{ProductID: "P1", Source: source, UpdatedAt: at},
			AtcCode: code,
		})
	}

	apply("M01AE01", "esklp", t1)
	apply("M01AE01", "who", t1)
	apply("N02BE01", "esklp", t1)

	// Re-assertion advances updated_at only.
	res := apply("M01AE01", "esklp", t2)
	if res.Op != OpUpdated {
		t.Errorf("re-assertion Op = %q, want updated", res.Op)
	}

	snap := d.Snapshot()
	if got := len(snap.Bundles["P1"].AtcLinks); got != 3 {
		t.Errorf("atc link count = %d, want 3 (all sources retained)", got)
	}
}

func TestShardForIsStable(t *testing.T) {
	d := NewDataset(8)

	for _, id := range []string{"P1", "P2", "abc-123", "21.3.417"} {
		first := d.ShardFor(id)
		for i := 0; i < 10; i++ {
			if got := d.ShardFor(id); got != first {
				t.Fatalf("ShardFor(%q) unstable: %d then %d", id, first, got)
			}
		}
		if first < 0 || first >= d.ShardCount() {
			t.Fatalf("ShardFor(%q) = %d out of range", id, first)
		}
	}
}

func TestSnapshotOrderStable(t *testing.T) {
	d := NewDataset(4)

	d.ApplyProduct(productAt("P2", "Бромгексин", t1))
	d.ApplyProduct(productAt("P1", "Анальгин", t1))
	d.ApplyProduct(productAt("P3", "Анальгин", t1)) // ties broken by id

	snap := d.Snapshot()
	want := []string{"P1", "P3", "P2"}
	if len(snap.Order) != len(want) {
		t.Fatalf("Order length = %d, want %d", len(snap.Order), len(want))
	}
	for i, id := range want {
		if snap.Order[i] != id {
			t.Errorf("Order[%d] = %q, want %q", i, snap.Order[i], id)
		}
	}
}

func TestChildRowsBeforeProductHeldBack(t *testing.T) {
	d := NewDataset(4)

	d.ApplyIngredient(ingredientAt("P9", "ibuprofen", 400, "mg", t1))

	snap := d.Snapshot()
	bundle, ok := snap.Bundles["P9"]
	if !ok {
		t.Fatal("orphan bundle must be held, not dropped")
	}
	if bundle.HasProduct {
		t.Error("HasProduct must be false before the product row arrives")
	}
	if len(snap.Order) != 0 {
		t.Error("orphan bundles must not appear in the committed order")
	}

	// Product arrives in a later batch: the bundle becomes committed with its
	// previously-held children attached.
	d.ApplyProduct(productAt("P9", "Нурофен", t2))
	snap = d.Snapshot()
	bundle = snap.Bundles["P9"]
	if !bundle.HasProduct {
		t.Fatal("HasProduct must flip once the product row arrives")
	}
	if len(bundle.Ingredients) != 1 {
		t.Errorf("held ingredient lost: count = %d, want 1", len(bundle.Ingredients))
	}
}
