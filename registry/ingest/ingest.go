// Package ingest drives a batch of feed rows through normalization, entity
// resolution and the merge engine. Rows are partitioned by product id onto
// worker shards, so all rows of one product are applied by one goroutine in
// arrival order and no per-entity locking is needed; rows for different
// products never coordinate. Malformed rows are quarantined with their raw
// content and reason instead of halting the batch. After all shards drain,
// the consistency checker runs over the committed snapshot.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NikSht/help-drugix/registry/check"
	"github.com/NikSht/help-drugix/registry/dictionary"
	"github.com/NikSht/help-drugix/registry/entities"
	"github.com/NikSht/help-drugix/registry/merge"
	"github.com/NikSht/help-drugix/registry/normalize"
)

// Rows is one batch of feed rows, one slice per source table.
type Rows struct {
	Products    []entities.ProductRow
	Ingredients []entities.IngredientRow
	Prices      []entities.PriceRow
	AtcLinks    []entities.AtcLinkRow
}

// Total returns the number of rows in the batch.
func (r Rows) Total() int {
	return len(r.Products) + len(r.Ingredients) + len(r.Prices) + len(r.AtcLinks)
}

// QuarantinedRow is a single rejected row with enough context to replay it by
// hand after the feed is fixed.
type QuarantinedRow struct {
	Table  string `json:"table"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

// Report summarizes one batch run.
type Report struct {
	BatchID     string            `json:"batch_id"`
	StartedAt   time.Time         `json:"started_at"`
	Duration    time.Duration     `json:"duration"`
	Rows        int               `json:"rows"`
	Created     int               `json:"created"`
	Updated     int               `json:"updated"`
	Noops       int               `json:"noops"`
	Quarantined []QuarantinedRow  `json:"quarantined"`
	Violations  []check.Violation `json:"violations"`
}

// Pipeline owns the merge dataset across batches: later feeds revise the
// entities earlier feeds created.
type Pipeline struct {
	dataset *merge.Dataset
	workers int
}

// NewPipeline creates a pipeline with the given worker count, which is also
// the dataset's shard count.
func NewPipeline(workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{dataset: merge.NewDataset(workers), workers: workers}
}

// job carries exactly one typed row to a shard worker.
type job struct {
	product    *entities.ProductRow
	ingredient *entities.IngredientRow
	price      *entities.PriceRow
	atcLink    *entities.AtcLinkRow
}

// workerResult is owned by a single worker; no locking needed.
type workerResult struct {
	created     int
	updated     int
	noops       int
	quarantined []QuarantinedRow
}

// Run applies a batch and returns the report plus the committed snapshot.
// The dictionary store is taken once per batch and shared read-only by every
// shard; reloading the dictionaries means running the next batch with a new
// store. Cancelling the context aborts the batch between row applications,
// leaving every already-applied merge intact.
func (p *Pipeline) Run(ctx context.Context, dict *dictionary.Store, rows Rows) (*Report, *merge.Snapshot) {
	report := &Report{
		BatchID:   uuid.NewString(),
		StartedAt: time.Now(),
		Rows:      rows.Total(),
	}

	norm := normalize.New(dict)

	channels := make([]chan job, p.workers)
	results := make([]workerResult, p.workers)
	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		channels[i] = make(chan job, 64)
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := range channels[idx] {
				select {
				case <-ctx.Done():
					// Drain without applying; prior commits stay intact.
					continue
				default:
				}
				p.apply(norm, j, &results[idx])
			}
		}(i)
	}

	route := func(productID string, j job) {
		channels[p.dataset.ShardFor(productID)] <- j
	}

	for i := range rows.Products {
		row := rows.Products[i]
		route(row.ProductID, job{product: &row})
	}
	for i := range rows.Ingredients {
		row := rows.Ingredients[i]
		route(row.ProductID, job{ingredient: &row})
	}
	for i := range rows.Prices {
		row := rows.Prices[i]
		route(row.ProductID, job{price: &row})
	}
	for i := range rows.AtcLinks {
		row := rows.AtcLinks[i]
		route(row.ProductID, job{atcLink: &row})
	}

	for _, ch := range channels {
		close(ch)
	}
	wg.Wait()

	// Barrier reached: every shard is done, the snapshot is consistent.
	for _, res := range results {
		report.Created += res.created
		report.Updated += res.updated
		report.Noops += res.noops
		report.Quarantined = append(report.Quarantined, res.quarantined...)
	}

	snap := p.dataset.Snapshot()
	report.Violations = check.Run(snap)
	report.Duration = time.Since(report.StartedAt)

	return report, snap
}

func (p *Pipeline) apply(norm *normalize.Normalizer, j job, res *workerResult) {
	// Guards trim like the resolver does: a whitespace-only id is missing.
	switch {
	case j.product != nil:
		if strings.TrimSpace(j.product.ProductID) == "" {
			res.quarantine("products", j.product, fmt.Errorf("missing product_id"))
			return
		}
		res.count(p.dataset.ApplyProduct(norm.Product(*j.product)))

	case j.ingredient != nil:
		if strings.TrimSpace(j.ingredient.ProductID) == "" {
			res.quarantine("ingredients", j.ingredient, fmt.Errorf("missing product_id"))
			return
		}
		ni, err := norm.Ingredient(*j.ingredient)
		if err != nil {
			res.quarantine("ingredients", j.ingredient, err)
			return
		}
		res.count(p.dataset.ApplyIngredient(ni))

	case j.price != nil:
		if strings.TrimSpace(j.price.ProductID) == "" {
			res.quarantine("prices", j.price, fmt.Errorf("missing product_id"))
			return
		}
		np, err := norm.Price(*j.price)
		if err != nil {
			res.quarantine("prices", j.price, err)
			return
		}
		res.count(p.dataset.ApplyPrice(np))

	case j.atcLink != nil:
		if strings.TrimSpace(j.atcLink.ProductID) == "" {
			res.quarantine("atc_links", j.atcLink, fmt.Errorf("missing product_id"))
			return
		}
		res.count(p.dataset.ApplyAtcLink(norm.AtcLink(*j.atcLink)))
	}
}

func (res *workerResult) count(cr merge.CommitResult) {
	switch cr.Op {
	case merge.OpCreated:
		res.created++
	case merge.OpUpdated:
		res.updated++
	default:
		res.noops++
	}
}

func (res *workerResult) quarantine(table string, row any, reason error) {
	raw, err := json.Marshal(row)
	if err != nil {
		raw = []byte(fmt.Sprintf("%+v", row))
	}
	res.quarantined = append(res.quarantined, QuarantinedRow{
		Table:  table,
		Raw:    string(raw),
		Reason: reason.Error(),
	})
}
