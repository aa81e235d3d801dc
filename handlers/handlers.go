// Package handlers provides HTTP request handlers for the registry API
// endpoints: product lookup, paged listing, trade-name search, violation and
// quarantine reports, and the health check. Handlers read only the committed
// snapshot; they never touch in-flight batch state.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/NikSht/help-drugix/interfaces"
	"github.com/NikSht/help-drugix/logging"
	"github.com/NikSht/help-drugix/registry/entities"
	"github.com/NikSht/help-drugix/scheduler"
	"github.com/go-chi/chi/v5"
)

// PageSize is the number of products per listing page.
const PageSize = 100

// Handler serves the query API over the committed dataset.
type Handler struct {
	dataStore interfaces.DataStore
	validator interfaces.DataValidator
}

// New creates a Handler with injected dependencies.
func New(dataStore interfaces.DataStore, validator interfaces.DataValidator) *Handler {
	return &Handler{dataStore: dataStore, validator: validator}
}

// RespondWithJSON writes a JSON response.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]interface{}{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	})
}

// pagedResponse wraps one page of products with paging metadata.
type pagedResponse struct {
	Page       int                      `json:"page"`
	PageSize   int                      `json:"page_size"`
	TotalPages int                      `json:"total_pages"`
	Total      int                      `json:"total"`
	Products   []entities.ProductBundle `json:"products"`
}

// ServePagedProducts serves one page of the committed dataset in stable
// order (trade name, dosage form, pack).
func (h *Handler) ServePagedProducts(w http.ResponseWriter, r *http.Request) {
	pageStr := chi.URLParam(r, "pageNumber")
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("invalid page number: %s", pageStr))
		return
	}

	order := h.dataStore.GetOrder()
	bundles := h.dataStore.GetBundles()

	totalPages := (len(order) + PageSize - 1) / PageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		RespondWithError(w, http.StatusNotFound, fmt.Sprintf("page %d out of range, last page is %d", page, totalPages))
		return
	}

	start := (page - 1) * PageSize
	end := start + PageSize
	if end > len(order) {
		end = len(order)
	}

	products := make([]entities.ProductBundle, 0, end-start)
	for _, id := range order[start:end] {
		products = append(products, bundles[id])
	}

	RespondWithJSON(w, http.StatusOK, pagedResponse{
		Page:       page,
		PageSize:   PageSize,
		TotalPages: totalPages,
		Total:      len(order),
		Products:   products,
	})
}

// FindProductByID serves the merged bundle for one product id.
func (h *Handler) FindProductByID(w http.ResponseWriter, r *http.Request) {
	productID, err := h.validator.ValidateProductID(chi.URLParam(r, "productID"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	bundle, ok := h.dataStore.GetBundles()[productID]
	if !ok || !bundle.HasProduct {
		RespondWithError(w, http.StatusNotFound, fmt.Sprintf("product %s not found", productID))
		return
	}

	RespondWithJSON(w, http.StatusOK, bundle)
}

// FindProducts searches committed products by trade-name substring,
// case-insensitive.
func (h *Handler) FindProducts(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "tradeName")
	if err := h.validator.ValidateSearchInput(query); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	order := h.dataStore.GetOrder()
	bundles := h.dataStore.GetBundles()

	var matches []entities.ProductBundle
	for _, id := range order {
		bundle := bundles[id]
		if strings.Contains(strings.ToLower(bundle.Product.TradeName), needle) {
			matches = append(matches, bundle)
		}
	}

	if len(matches) == 0 {
		RespondWithError(w, http.StatusNotFound, fmt.Sprintf("no products matching %q", query))
		return
	}

	RespondWithJSON(w, http.StatusOK, matches)
}

// ServeViolations serves the consistency findings of the last batch.
func (h *Handler) ServeViolations(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count":      len(h.dataStore.GetViolations()),
		"violations": h.dataStore.GetViolations(),
	})
}

// ServeQuarantine serves the rows quarantined by the last batch.
func (h *Handler) ServeQuarantine(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(h.dataStore.GetQuarantine()),
		"quarantined": h.dataStore.GetQuarantine(),
	})
}

// HealthCheck reports service and dataset health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	lastUpdate := h.dataStore.GetLastUpdated()
	uptime := time.Since(h.dataStore.GetServerStartTime())

	status := "healthy"
	if lastUpdate.IsZero() {
		status = "starting"
	} else if time.Since(lastUpdate) > 25*time.Hour {
		status = "stale"
	}

	RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":           status,
		"uptime":           formatUptimeHuman(uptime),
		"memory_usage_mb":  int(m.Alloc / 1024 / 1024),
		"last_update":      lastUpdate.Format(time.RFC3339),
		"next_update":      scheduler.CalculateNextUpdate().Format(time.RFC3339),
		"updating":         h.dataStore.IsUpdating(),
		"product_count":    len(h.dataStore.GetOrder()),
		"violation_count":  len(h.dataStore.GetViolations()),
		"quarantine_count": len(h.dataStore.GetQuarantine()),
	})
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
