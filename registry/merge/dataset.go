package merge

import (
	"hash/fnv"
	"strings"
	"time"

	"github.com/NikSht/help-drugix/registry/entities"
	"github.com/NikSht/help-drugix/registry/resolve"
)

// Op classifies the outcome of applying one row.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpNoop    Op = "noop"
)

// CommitResult reports what a single apply did.
type CommitResult struct {
	Ref resolve.EntityRef
	Op  Op
	// Entity is the post-merge view of the affected record: an
	// entities.Product, entities.Ingredient, entities.Price or
	// entities.AtcLink.
	Entity any
}

// formField keeps the canonical form together with the raw text and review
// flag it was derived from; the three always travel as one write.
type formField struct {
	Form        string
	Raw         string
	NeedsReview bool
}

// innRawField is the non-identity part of an ingredient's INN resolution.
type innRawField struct {
	Raw         string
	NeedsReview bool
}

type productState struct {
	id         string
	hasProduct bool

	tradeName      Register[string]
	regNumber      Register[string]
	regStatus      Register[entities.RegStatus]
	form           Register[formField]
	atcCode        Register[string]
	pack           Register[string]
	country        Register[string]
	holder         Register[string]
	manufacturer   Register[string]
	instructionURL Register[string]
	registryURL    Register[string]
	isZnvlp        Register[bool]

	ingredients map[string]*ingredientState
	prices      map[string]*priceState
	atcLinks    map[string]*atcLinkState
}

// ingredientState: (inn, strength, unit) is the identity and never changes;
// the remaining fields are LWW registers.
type ingredientState struct {
	inn      string
	strength float64
	unit     string

	innRaw  Register[innRawField]
	perUnit Register[string]
}

// priceState: (pack, priceDate) is an immutable historical fact; only the
// value may be corrected by a newer updated_at.
type priceState struct {
	pack      string
	priceDate string

	value Register[float64]
}

// atcLinkState: (atcCode, source) is the whole identity. updatedAt tracks the
// newest assertion of the fact.
type atcLinkState struct {
	atcCode   string
	source    string
	updatedAt time.Time
}

type shard struct {
	products map[string]*productState
}

// Dataset is the committed registry state, partitioned into shards keyed by
// product id. The Dataset itself does no locking: callers must serialize
// applies per product id, which the ingest pipeline guarantees by routing all
// rows of one product to the worker owning its shard.
type Dataset struct {
	shards []*shard
}

// NewDataset creates an empty dataset with the given shard count.
func NewDataset(shardCount int) *Dataset {
	if shardCount < 1 {
		shardCount = 1
	}
	d := &Dataset{shards: make([]*shard, shardCount)}
	for i := range d.shards {
		d.shards[i] = &shard{products: make(map[string]*productState)}
	}
	return d
}

// ShardCount returns the number of shards.
func (d *Dataset) ShardCount() int { return len(d.shards) }

// ShardFor maps a product id to its owning shard.
func (d *Dataset) ShardFor(productID string) int {
	h := fnv.New32a()
	h.Write([]byte(strings.TrimSpace(productID)))
	return int(h.Sum32() % uint32(len(d.shards)))
}

func (d *Dataset) state(productID string) *productState {
	sh := d.shards[d.ShardFor(productID)]
	st, ok := sh.products[productID]
	if !ok {
		st = &productState{
			id:          productID,
			ingredients: make(map[string]*ingredientState),
			prices:      make(map[string]*priceState),
			atcLinks:    make(map[string]*atcLinkState),
		}
		sh.products[productID] = st
	}
	return st
}

// ApplyProduct upserts the product entity. Each field merges independently
// against its own register using the row's updated_at.
func (d *Dataset) ApplyProduct(np entities.NormalizedProduct) CommitResult {
	ref := resolve.Product(np)
	st := d.state(ref.ProductID)

	created := !st.hasProduct
	st.hasProduct = true

	at := np.Row.UpdatedAt
	changed := false
	changed = st.tradeName.merge(np.Row.TradeName, at) || changed
	changed = st.regNumber.merge(np.Row.RegNumber, at) || changed
	changed = st.regStatus.merge(np.RegStatus, at) || changed
	changed = st.form.merge(formField{
		Form:        np.DosageForm,
		Raw:         np.Row.FormRaw,
		NeedsReview: np.FormNeedsReview,
	}, at) || changed
	changed = st.atcCode.merge(np.AtcCode, at) || changed
	changed = st.pack.merge(np.Row.Pack, at) || changed
	changed = st.country.merge(np.Row.Country, at) || changed
	changed = st.holder.merge(np.Row.Holder, at) || changed
	changed = st.manufacturer.merge(np.Row.Manufacturer, at) || changed
	changed = st.instructionURL.merge(np.Row.InstructionURL, at) || changed
	changed = st.registryURL.merge(np.Row.RegistryURL, at) || changed
	changed = st.isZnvlp.merge(np.Row.IsZnvlp, at) || changed

	return CommitResult{Ref: ref, Op: opFor(created, changed), Entity: st.productView()}
}

// ApplyIngredient upserts one ingredient slot on the product. A row matching
// an existing (inn, strength, unit) tuple updates that ingredient's mutable
// fields; anything else appends a new ingredient.
func (d *Dataset) ApplyIngredient(ni entities.NormalizedIngredient) CommitResult {
	ref := resolve.Ingredient(ni)
	st := d.state(ref.ProductID)

	ing, ok := st.ingredients[ref.Key]
	created := !ok
	if created {
		ing = &ingredientState{inn: ni.Inn, strength: ni.Strength, unit: strings.TrimSpace(ni.Row.Unit)}
		st.ingredients[ref.Key] = ing
	}

	at := ni.Row.UpdatedAt
	changed := false
	changed = ing.innRaw.merge(innRawField{Raw: ni.Row.InnRaw, NeedsReview: ni.InnNeedsReview}, at) || changed
	changed = ing.perUnit.merge(ni.Row.PerUnit, at) || changed

	return CommitResult{Ref: ref, Op: opFor(created, changed), Entity: ing.view()}
}

// ApplyPrice inserts a price history entry, or corrects the value of an
// existing entry when the incoming row is newer. The historical fact itself,
// pack and date, is never altered.
func (d *Dataset) ApplyPrice(np entities.NormalizedPrice) CommitResult {
	ref := resolve.Price(np)
	st := d.state(ref.ProductID)

	pr, ok := st.prices[ref.Key]
	created := !ok
	if created {
		pr = &priceState{pack: strings.TrimSpace(np.Row.Pack), priceDate: strings.TrimSpace(np.Row.PriceDate)}
		st.prices[ref.Key] = pr
	}

	changed := pr.value.merge(np.ZnvlpPriceRub, np.Row.UpdatedAt)

	return CommitResult{Ref: ref, Op: opFor(created, changed), Entity: pr.view()}
}

// ApplyAtcLink records an ATC assertion. All (atc_code, source) combinations
// are retained with provenance; a re-assertion only advances updated_at.
func (d *Dataset) ApplyAtcLink(na entities.NormalizedAtcLink) CommitResult {
	ref := resolve.AtcLink(na)
	st := d.state(ref.ProductID)

	link, ok := st.atcLinks[ref.Key]
	created := !ok
	if created {
		link = &atcLinkState{atcCode: na.AtcCode, source: strings.TrimSpace(na.Row.Source)}
		st.atcLinks[ref.Key] = link
	}

	changed := false
	if na.Row.UpdatedAt.After(link.updatedAt) {
		link.updatedAt = na.Row.UpdatedAt
		changed = !created
	}

	return CommitResult{Ref: ref, Op: opFor(created, changed), Entity: link.view()}
}

func opFor(created, changed bool) Op {
	switch {
	case created:
		return OpCreated
	case changed:
		return OpUpdated
	default:
		return OpNoop
	}
}
