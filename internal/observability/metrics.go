package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockhub_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// PostOperations counts post lifecycle operations by kind and outcome.
	PostOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockhub_post_operations_total",
		Help: "Total number of post lifecycle operations",
	}, []string{"operation", "outcome"})

	// OrphanedImageFiles counts stored files left behind because a
	// best-effort delete failed.
	OrphanedImageFiles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockhub_orphaned_image_files_total",
		Help: "Total number of image files orphaned by failed deletes",
	})
)
