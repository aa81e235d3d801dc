// Package interfaces defines core abstractions for the registry service
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"time"

	"github.com/NikSht/help-drugix/registry/check"
	"github.com/NikSht/help-drugix/registry/entities"
	"github.com/NikSht/help-drugix/registry/ingest"
)

// DataStore defines the contract for committed-dataset storage.
// It provides thread-safe access with atomic snapshot swaps for
// zero-downtime updates.
type DataStore interface {
	// Data retrieval methods
	GetBundles() map[string]entities.ProductBundle
	GetOrder() []string
	GetViolations() []check.Violation
	GetQuarantine() []ingest.QuarantinedRow
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	// Data update methods
	UpdateData(bundles map[string]entities.ProductBundle, order []string,
		violations []check.Violation, quarantine []ingest.QuarantinedRow)
	BeginUpdate() bool
	EndUpdate()
}

// FeedParser defines the contract for fetching and parsing the registry
// feeds into typed rows.
type FeedParser interface {
	// ParseAll fetches and parses the four row feeds.
	ParseAll() (ingest.Rows, error)

	// ParseDictionaries fetches and parses the two dictionary feeds.
	ParseDictionaries() ([]entities.InnSynonymRow, []entities.FormNormalizationRow, error)
}

// Scheduler defines the contract for job scheduling and health monitoring.
// It manages automated feed refreshes and staleness checks.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// DataValidator defines the contract for query-input validation.
type DataValidator interface {
	// ValidateProductID validates a product id path parameter.
	ValidateProductID(input string) (string, error)

	// ValidateSearchInput validates free-text search input.
	ValidateSearchInput(input string) error
}
