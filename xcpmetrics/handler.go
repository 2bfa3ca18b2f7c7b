package xcpmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the net/http handler serving the metrics registered via
// InitProvider's Prometheus bridge, for cmd/xcpdemo to mount at "/metrics".
func Handler() http.Handler {
	return promhttp.Handler()
}
