// Package metrics exposes the daemon's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipforge_jobs_created_total",
		Help: "Clip jobs accepted.",
	})

	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipforge_jobs_completed_total",
		Help: "Clip jobs that reached completed.",
	})

	JobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipforge_jobs_failed_total",
		Help: "Clip jobs that failed, by stage.",
	}, []string{"stage"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clipforge_stage_duration_seconds",
		Help:    "Wall time per pipeline stage.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"stage"})

	Regenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipforge_regenerations_total",
		Help: "Caption regenerations, by outcome.",
	}, []string{"outcome"})

	AnonymousSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipforge_anonymous_sweeps_total",
		Help: "Expired anonymous clip rows removed.",
	})
)
