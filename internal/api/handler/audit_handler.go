package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/excavator/rental-api/internal/core/domain"
	"github.com/excavator/rental-api/internal/core/ports"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditHandler exposes recorded role guard decisions to administrators.
type AuditHandler struct {
	repo ports.AuditRepository
}

func NewAuditHandler(repo ports.AuditRepository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

type auditListResponse struct {
	Decisions []*domain.AccessDecision `json:"decisions"`
	Count     int                      `json:"count"`
}

// List returns the most recent decisions, newest first.
func (h *AuditHandler) List(c echo.Context) error {
	limit := defaultAuditLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxAuditLimit)
	}

	decisions, err := h.repo.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	if decisions == nil {
		decisions = []*domain.AccessDecision{}
	}
	return c.JSON(http.StatusOK, auditListResponse{Decisions: decisions, Count: len(decisions)})
}
