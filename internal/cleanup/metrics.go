package cleanup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cleanupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "postpilot_cleanups_total",
	Help: "Cleanup invocations by scope kind.",
}, []string{"scope"})
