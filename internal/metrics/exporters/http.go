// Package exporters serves the registered collectors over HTTP.
package exporters

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler returns the Prometheus scrape handler for all promauto collectors.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}
