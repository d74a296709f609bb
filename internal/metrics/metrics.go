// Package metrics holds the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "blogtalk",
		Name:      "comments_created_total",
		Help:      "Comments created.",
	})

	CommentsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "blogtalk",
		Name:      "comments_deleted_total",
		Help:      "Comments deleted (replies removed by cascade are not counted).",
	})

	ReactionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blogtalk",
		Name:      "reaction_toggles_total",
		Help:      "Reaction toggles by kind: like, dislike, author_like.",
	}, []string{"kind"})

	NotificationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "blogtalk",
		Name:      "notifications_created_total",
		Help:      "Mention notifications stored.",
	})

	MentionJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blogtalk",
		Name:      "mention_jobs_total",
		Help:      "Mention dispatch jobs by outcome: done, failed, dropped.",
	}, []string{"outcome"})

	HTTPRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blogtalk",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
