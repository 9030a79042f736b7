// Package metrics provides Prometheus metrics for the Clover service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MailSyncRunsTotal tracks mail sync runs by outcome
	MailSyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "mailsync",
			Name:      "runs_total",
			Help:      "Total number of mail sync runs by outcome",
		},
		[]string{"outcome"},
	)

	// MailSyncDuration tracks mail sync run duration in seconds
	MailSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "mailsync",
			Name:      "run_duration_seconds",
			Help:      "Duration of mail sync runs in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// MessagesIngested tracks messages seen during sync by mailbox and disposition
	MessagesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "mailsync",
			Name:      "messages_total",
			Help:      "Total number of messages seen during sync by disposition",
		},
		[]string{"mailbox", "disposition"},
	)

	// ClassificationsTotal tracks reply classifications by stage and decision
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "classify",
			Name:      "classifications_total",
			Help:      "Total number of reply classifications by stage and decision",
		},
		[]string{"stage", "decision"},
	)

	// PropagationsTotal tracks status propagations by outcome
	PropagationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "propagate",
			Name:      "propagations_total",
			Help:      "Total number of reply propagations by outcome",
		},
		[]string{"outcome"},
	)

	// RelationshipEdges tracks relationship edge creates and deletes
	RelationshipEdges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "relationships",
			Name:      "edges_total",
			Help:      "Total number of relationship edge operations",
		},
		[]string{"operation"},
	)

	// AIRequestDuration tracks AI classification request duration
	AIRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "classify",
			Name:      "ai_request_duration_seconds",
			Help:      "Duration of AI classification requests in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
	)
)
