package resource

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK            = "ok"
	outcomeError         = "error"
	outcomeAuthRequired  = "auth_required"
	outcomeShapeMismatch = "shape_mismatch"
	outcomeStale         = "stale"
)

var (
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_store_fetches_total",
			Help: "List fetches by collection and outcome",
		},
		[]string{"resource", "outcome"},
	)

	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_store_mutations_total",
			Help: "Confirmed and failed mutations by collection, method and outcome",
		},
		[]string{"resource", "method", "outcome"},
	)
)
