package merge

import (
	"sort"
	"time"

	"github.com/NikSht/help-drugix/registry/entities"
)

// Snapshot is an immutable view of the dataset taken at a batch boundary.
// Bundles holds every known product id, including ids seen only through child
// rows (HasProduct false); Order lists committed products sorted for paging
// the way the exported dataset has always been sorted: trade name, dosage
// form, pack, id.
type Snapshot struct {
	Bundles map[string]entities.ProductBundle
	Order   []string

	ProductCount    int
	IngredientCount int
	PriceCount      int
	AtcLinkCount    int
}

// Snapshot materializes the current dataset. Must only be called at a batch
// boundary, after all shard workers have finished.
func (d *Dataset) Snapshot() *Snapshot {
	snap := &Snapshot{Bundles: make(map[string]entities.ProductBundle)}

	for _, sh := range d.shards {
		for id, st := range sh.products {
			bundle := st.bundle()
			snap.Bundles[id] = bundle
			if bundle.HasProduct {
				snap.ProductCount++
				snap.Order = append(snap.Order, id)
			}
			snap.IngredientCount += len(bundle.Ingredients)
			snap.PriceCount += len(bundle.Prices)
			snap.AtcLinkCount += len(bundle.AtcLinks)
		}
	}

	sort.Slice(snap.Order, func(i, j int) bool {
		a := snap.Bundles[snap.Order[i]].Product
		b := snap.Bundles[snap.Order[j]].Product
		if a.TradeName != b.TradeName {
			return a.TradeName < b.TradeName
		}
		if a.DosageForm != b.DosageForm {
			return a.DosageForm < b.DosageForm
		}
		if a.Pack != b.Pack {
			return a.Pack < b.Pack
		}
		return a.ProductID < b.ProductID
	})

	return snap
}

func (st *productState) bundle() entities.ProductBundle {
	bundle := entities.ProductBundle{
		Product:     st.productView(),
		HasProduct:  st.hasProduct,
		Ingredients: make([]entities.Ingredient, 0, len(st.ingredients)),
		Prices:      make([]entities.Price, 0, len(st.prices)),
		AtcLinks:    make([]entities.AtcLink, 0, len(st.atcLinks)),
	}

	for _, ing := range st.ingredients {
		bundle.Ingredients = append(bundle.Ingredients, ing.view())
	}
	sort.Slice(bundle.Ingredients, func(i, j int) bool {
		a, b := bundle.Ingredients[i], bundle.Ingredients[j]
		if a.Inn != b.Inn {
			return a.Inn < b.Inn
		}
		if a.Strength != b.Strength {
			return a.Strength < b.Strength
		}
		return a.Unit < b.Unit
	})

	for _, pr := range st.prices {
		bundle.Prices = append(bundle.Prices, pr.view())
	}
	sort.Slice(bundle.Prices, func(i, j int) bool {
		a, b := bundle.Prices[i], bundle.Prices[j]
		if a.PriceDate != b.PriceDate {
			return a.PriceDate < b.PriceDate
		}
		return a.Pack < b.Pack
	})

	for _, link := range st.atcLinks {
		bundle.AtcLinks = append(bundle.AtcLinks, link.view())
	}
	sort.Slice(bundle.AtcLinks, func(i, j int) bool {
		a, b := bundle.AtcLinks[i], bundle.AtcLinks[j]
		if a.AtcCode != b.AtcCode {
			return a.AtcCode < b.AtcCode
		}
		return a.Source < b.Source
	})

	return bundle
}

func (st *productState) productView() entities.Product {
	form := st.form.Value()
	return entities.Product{
		ProductID:       st.id,
		TradeName:       st.tradeName.Value(),
		RegNumber:       st.regNumber.Value(),
		RegStatus:       st.regStatus.Value(),
		DosageForm:      form.Form,
		FormRaw:         form.Raw,
		FormNeedsReview: form.NeedsReview,
		AtcCode:         st.atcCode.Value(),
		Pack:            st.pack.Value(),
		Country:         st.country.Value(),
		Holder:          st.holder.Value(),
		Manufacturer:    st.manufacturer.Value(),
		InstructionURL:  st.instructionURL.Value(),
		RegistryURL:     st.registryURL.Value(),
		IsZnvlp:         st.isZnvlp.Value(),
		UpdatedAt:       st.lastWrite(),
	}
}

// lastWrite is the newest per-field timestamp, the effective updated_at of
// the merged product row.
func (st *productState) lastWrite() time.Time {
	last := st.tradeName.UpdatedAt()
	for _, at := range []time.Time{
		st.regNumber.UpdatedAt(), st.regStatus.UpdatedAt(), st.form.UpdatedAt(),
		st.atcCode.UpdatedAt(), st.pack.UpdatedAt(), st.country.UpdatedAt(),
		st.holder.UpdatedAt(), st.manufacturer.UpdatedAt(),
		st.instructionURL.UpdatedAt(), st.registryURL.UpdatedAt(),
		st.isZnvlp.UpdatedAt(),
	} {
		if at.After(last) {
			last = at
		}
	}
	return last
}

func (ing *ingredientState) view() entities.Ingredient {
	innRaw := ing.innRaw.Value()
	last := ing.innRaw.UpdatedAt()
	if ing.perUnit.UpdatedAt().After(last) {
		last = ing.perUnit.UpdatedAt()
	}
	return entities.Ingredient{
		Inn:            ing.inn,
		InnRaw:         innRaw.Raw,
		InnNeedsReview: innRaw.NeedsReview,
		Strength:       ing.strength,
		Unit:           ing.unit,
		PerUnit:        ing.perUnit.Value(),
		UpdatedAt:      last,
	}
}

func (pr *priceState) view() entities.Price {
	return entities.Price{
		Pack:          pr.pack,
		PriceDate:     pr.priceDate,
		ZnvlpPriceRub: pr.value.Value(),
		UpdatedAt:     pr.value.UpdatedAt(),
	}
}

func (link *atcLinkState) view() entities.AtcLink {
	return entities.AtcLink{
		AtcCode:   link.atcCode,
		Source:    link.source,
		UpdatedAt: link.updatedAt,
	}
}
