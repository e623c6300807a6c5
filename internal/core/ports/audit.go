package ports

import (
	"context"

	"github.com/excavator/rental-api/internal/core/domain"
)

// AuditRepository persists role guard decisions.
type AuditRepository interface {
	InsertDecision(ctx context.Context, decision *domain.AccessDecision) error
	// ListRecent returns at most limit decisions, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.AccessDecision, error)
}

// AuditRecorder accepts decisions without blocking the request that produced them.
type AuditRecorder interface {
	Enqueue(decision domain.AccessDecision)
}
