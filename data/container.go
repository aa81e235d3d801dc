// Package data provides thread-safe storage for the committed registry
// dataset. The DataContainer swaps whole snapshots atomically so readers get
// zero-downtime updates: a query sees either the previous batch or the new
// one, never a half-applied state.
package data

import (
	"sync/atomic"
	"time"

	"github.com/NikSht/help-drugix/interfaces"
	"github.com/NikSht/help-drugix/logging"
	"github.com/NikSht/help-drugix/registry/check"
	"github.com/NikSht/help-drugix/registry/entities"
	"github.com/NikSht/help-drugix/registry/ingest"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// DataContainer holds the committed dataset with atomic pointers for
// zero-downtime updates.
type DataContainer struct {
	bundles         atomic.Value // map[string]entities.ProductBundle
	order           atomic.Value // []string, committed product ids in page order
	violations      atomic.Value // []check.Violation
	quarantine      atomic.Value // []ingest.QuarantinedRow
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a new DataContainer with empty data
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.bundles.Store(make(map[string]entities.ProductBundle))
	dc.order.Store(make([]string, 0))
	dc.violations.Store(make([]check.Violation, 0))
	dc.quarantine.Store(make([]ingest.QuarantinedRow, 0))
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

// Thread-safe getters with type check

// GetBundles returns the committed bundle map for O(1) product lookups.
func (dc *DataContainer) GetBundles() map[string]entities.ProductBundle {
	if v := dc.bundles.Load(); v != nil {
		if bundles, ok := v.(map[string]entities.ProductBundle); ok {
			return bundles
		}
	}

	logging.Warn("Bundle map is empty or invalid")
	return make(map[string]entities.ProductBundle)
}

// GetOrder returns committed product ids in stable page order.
func (dc *DataContainer) GetOrder() []string {
	if v := dc.order.Load(); v != nil {
		if order, ok := v.([]string); ok {
			return order
		}
	}

	logging.Warn("Product order is empty or invalid")
	return []string{}
}

// GetViolations returns the consistency findings of the last batch.
func (dc *DataContainer) GetViolations() []check.Violation {
	if v := dc.violations.Load(); v != nil {
		if violations, ok := v.([]check.Violation); ok {
			return violations
		}
	}

	logging.Warn("Violation list is empty or invalid")
	return []check.Violation{}
}

// GetQuarantine returns the rows quarantined by the last batch.
func (dc *DataContainer) GetQuarantine() []ingest.QuarantinedRow {
	if v := dc.quarantine.Load(); v != nil {
		if quarantine, ok := v.([]ingest.QuarantinedRow); ok {
			return quarantine
		}
	}

	logging.Warn("Quarantine list is empty or invalid")
	return []ingest.QuarantinedRow{}
}

// GetLastUpdated returns the timestamp of the last committed batch.
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a batch is currently being ingested.
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateData atomically swaps in a new committed snapshot.
func (dc *DataContainer) UpdateData(bundles map[string]entities.ProductBundle, order []string,
	violations []check.Violation, quarantine []ingest.QuarantinedRow) {

	// Atomic swap (zero downtime replacement)
	dc.bundles.Store(bundles)
	dc.order.Store(order)
	dc.violations.Store(violations)
	dc.quarantine.Store(quarantine)
	dc.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a batch ingestion.
// Returns true if the batch can proceed, false if another is in progress.
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a batch ingestion.
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
