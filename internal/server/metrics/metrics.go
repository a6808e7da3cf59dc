// Package metrics registers the gateway's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CredentialsMinted counts signed URLs issued, by operation.
	CredentialsMinted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetgate_credentials_minted_total",
			Help: "Number of signed URL credentials minted, by operation",
		},
		[]string{"operation"},
	)

	// UploadsStarted counts upload sessions created.
	UploadsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assetgate_uploads_started_total",
			Help: "Number of upload sessions created",
		},
	)

	// UploadsResolved counts terminal upload session outcomes.
	UploadsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetgate_uploads_resolved_total",
			Help: "Number of upload sessions resolved, by outcome",
		},
		[]string{"outcome"},
	)

	// ListingFailures counts failed tier listing operations.
	ListingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assetgate_listing_failures_total",
			Help: "Number of failed accessible-file listing calls",
		},
	)
)
