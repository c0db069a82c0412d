package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postpilot_pipeline_runs_total",
		Help: "Pipeline runs by terminal outcome code.",
	}, []string{"outcome"})

	vectorsStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postpilot_vectors_stored_total",
		Help: "Vectors upserted into the store across all runs.",
	})

	chunksSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postpilot_chunks_skipped_total",
		Help: "Chunks dropped because their embedding failed.",
	})
)
