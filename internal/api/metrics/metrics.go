// Package metrics defines the custom Prometheus metrics of the storefront
// service. Everything registers with the default registry through promauto,
// which is what the /metrics endpoint serves.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/724parcabul/storefront/internal/core/store"
	"github.com/724parcabul/storefront/internal/infrastructure/queue"
)

const namespace = "storefront"

// ── Session store ────────────────────────────────────────────────────────────

// CartMutationsTotal counts cart operations.
// Labels:
//   - op: add, remove, update, clear or checkout
//   - outcome: applied, clamped, removed, unchanged or rejected
var CartMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_mutations_total",
		Help:      "Total number of cart mutations, by operation and outcome.",
	},
	[]string{"op", "outcome"},
)

// SessionsActive is the number of session stores held in memory.
var SessionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Number of live session stores.",
	},
)

// SnapshotWritesTotal counts background snapshot writes.
// Label:
//   - result: "ok", "error", "superseded" (replaced by a newer snapshot before
//     it was written) or "stopped" (arrived after shutdown)
var SnapshotWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_writes_total",
		Help:      "Total number of snapshot writes, by result.",
	},
	[]string{"result"},
)

// SnapshotQueueDepth tracks pending snapshots per writer worker.
var SnapshotQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "snapshot_queue_depth",
		Help:      "Current number of keys waiting in each writer worker queue.",
	},
	[]string{"worker_id"},
)

// ── Orders ───────────────────────────────────────────────────────────────────

// OrdersCreatedTotal counts orders appended to the ledger.
// Label:
//   - customer: "guest" or "registered"
var OrdersCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Total number of orders placed, by customer type.",
	},
	[]string{"customer"},
)

// CheckoutReplaysTotal counts checkouts answered from an idempotency key.
var CheckoutReplaysTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_replays_total",
		Help:      "Total number of checkouts that returned an existing order.",
	},
)

// CheckoutDuration measures checkout latency.
// Label:
//   - result: "ok", "replay" or "error"
var CheckoutDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "checkout_duration_seconds",
		Help:      "Duration of checkout from request to ledger append.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)

// OrderTransitionsTotal counts admin status changes.
// Label:
//   - to: the new order status
var OrderTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transitions_total",
		Help:      "Total number of order status transitions, by target status.",
	},
	[]string{"to"},
)

// ReturnRequestsTotal counts return requests on delivered orders.
var ReturnRequestsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "return_requests_total",
		Help:      "Total number of return requests.",
	},
)

// ── Adapters ─────────────────────────────────────────────────────────────────

// StoreObserver feeds CartMutationsTotal from every session store.
func StoreObserver() store.Observer {
	return func(op string, r store.Result) {
		CartMutationsTotal.WithLabelValues(op, string(r.Outcome)).Inc()
	}
}

// WriterHooks feeds the snapshot metrics from the background writer.
func WriterHooks() queue.WriteHooks {
	return queue.WriteHooks{
		OnWrite: func(err error) {
			if err != nil {
				SnapshotWritesTotal.WithLabelValues("error").Inc()
				return
			}
			SnapshotWritesTotal.WithLabelValues("ok").Inc()
		},
		OnDiscard: func(reason string) {
			SnapshotWritesTotal.WithLabelValues(reason).Inc()
		},
		OnQueueDepth: func(workerID string, depth int) {
			SnapshotQueueDepth.WithLabelValues(workerID).Set(float64(depth))
		},
	}
}

// CustomerLabel returns the orders_created_total label for an order owner.
func CustomerLabel(guest bool) string {
	if guest {
		return "guest"
	}
	return "registered"
}
