package ports

import "github.com/excavator/rental-api/internal/core/domain"

// AuthMetrics receives counters from the auth service.
type AuthMetrics interface {
	AuthOperation(operation, result string)
	TokenIssued(kind domain.TokenKind)
}
