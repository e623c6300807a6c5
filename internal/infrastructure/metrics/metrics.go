// Package metrics defines and registers the custom Prometheus metrics of the
// rental auth API. It is the single source of truth for metric names, labels,
// and help strings.
//
// All collectors register with the default Prometheus registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/excavator/rental-api/internal/core/domain"
)

const namespace = "rental"

// ── Auth service ──────────────────────────────────────────────────────────────

// AuthOperationsTotal counts auth service calls.
// Labels:
//   - operation: "register", "sign_in", "refresh", "logout"
//   - result: "ok", or a short failure reason (e.g. "duplicate_email", "invalid_credentials", "internal")
var AuthOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_operations_total",
		Help:      "Total number of auth service operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// TokensIssuedTotal counts signed tokens.
// Label:
//   - kind: "access" or "refresh"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of tokens issued, by kind.",
	},
	[]string{"kind"},
)

// ── Guards ────────────────────────────────────────────────────────────────────

// GuardDecisionsTotal counts guard outcomes.
// Labels:
//   - guard: "access", "refresh", or "role"
//   - decision: "allow" or "deny"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of guard decisions, by guard and outcome.",
	},
	[]string{"guard", "decision"},
)

// ── Audit pipeline ────────────────────────────────────────────────────────────

// AuditQueueDepth tracks the number of decisions waiting in each audit worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of access decisions pending in each audit worker channel.",
	},
	[]string{"worker_id"},
)

// AuditRecordsTotal counts audit records by outcome.
// Label:
//   - result: "stored", "failed", or "dropped" (worker buffer full)
var AuditRecordsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_records_total",
		Help:      "Total number of access decisions handled by the audit pipeline, by result.",
	},
	[]string{"result"},
)

// ── Identity cache ────────────────────────────────────────────────────────────

// IdentityCacheTotal counts identity cache lookups.
// Label:
//   - result: "hit", "miss", or "error"
var IdentityCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identity_cache_total",
		Help:      "Total number of identity cache lookups, labelled by result.",
	},
	[]string{"result"},
)

// ── Recorders ─────────────────────────────────────────────────────────────────

// AuthRecorder feeds the auth service counters into the collectors above.
type AuthRecorder struct{}

func (AuthRecorder) AuthOperation(operation, result string) {
	AuthOperationsTotal.WithLabelValues(operation, result).Inc()
}

func (AuthRecorder) TokenIssued(kind domain.TokenKind) {
	TokensIssuedTotal.WithLabelValues(string(kind)).Inc()
}
