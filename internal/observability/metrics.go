package observability

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational counters for the extraction service.
type Metrics struct {
	// Parse request metrics
	ParseRequestsTotal  atomic.Int64
	ParseRequestsFailed atomic.Int64

	// Fetch metrics by failure category
	FetchesTotal  atomic.Int64
	FetchTimeouts atomic.Int64
	FetchHTTPErrs atomic.Int64
	FetchOtherErr atomic.Int64

	// Extraction metrics
	NamesFound     atomic.Int64
	NamesNotFound  atomic.Int64
	PricesFound    atomic.Int64
	PricesNotFound atomic.Int64

	// Storage metrics
	OrdersSaved       atomic.Int64
	OrderSaveFailures atomic.Int64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"pricescout_parse_requests_total", "Total parse requests received", m.ParseRequestsTotal.Load()},
		{"pricescout_parse_requests_failed_total", "Parse requests answered with 5xx", m.ParseRequestsFailed.Load()},
		{"pricescout_fetches_total", "Total page fetches attempted", m.FetchesTotal.Load()},
		{"pricescout_fetch_timeouts_total", "Fetches that timed out", m.FetchTimeouts.Load()},
		{"pricescout_fetch_http_errors_total", "Fetches answered with a non-2xx status", m.FetchHTTPErrs.Load()},
		{"pricescout_fetch_other_errors_total", "Fetches failed for network or parse reasons", m.FetchOtherErr.Load()},
		{"pricescout_names_found_total", "Extractions that located a product name", m.NamesFound.Load()},
		{"pricescout_names_not_found_total", "Extractions that returned the name sentinel", m.NamesNotFound.Load()},
		{"pricescout_prices_found_total", "Extractions that located a price", m.PricesFound.Load()},
		{"pricescout_prices_not_found_total", "Extractions that returned the price sentinel", m.PricesNotFound.Load()},
		{"pricescout_orders_saved_total", "Order records appended to the store", m.OrdersSaved.Load()},
		{"pricescout_order_save_failures_total", "Order store writes that failed", m.OrderSaveFailures.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}
