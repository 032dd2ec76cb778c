package ovaldb

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryLabels = []string{"table", "success"}
	queryTimer  = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vmaas_oval",
		Subsystem: "ovaldb",
		Name:      "query_duration_seconds",
		Help:      "Duration of a single startup fetch against the OVAL store, by source table.",
	}, queryLabels)
	queryCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vmaas_oval",
		Subsystem: "ovaldb",
		Name:      "query_total",
		Help:      "Count of startup fetches against the OVAL store, by source table.",
	}, queryLabels)
)

// instrumentQuery records the duration and outcome of a single fetch,
// labeled by the source table being read. Every query here is a one-shot
// full-table read issued exactly once at startup, so this is where cache
// construction shows up in the query_duration_seconds histogram.
func instrumentQuery(table string) func(err error) {
	var success string
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		queryTimer.WithLabelValues(table, success).Observe(v)
	}))
	return func(err error) {
		success = strconv.FormatBool(err == nil)
		queryCounter.WithLabelValues(table, success).Inc()
		timer.ObserveDuration()
	}
}
