package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/learnhub/learnhub-backend/internal/model"
	"github.com/learnhub/learnhub-backend/internal/response"
)

// AuditService lists the audit trail of a tenant.
type AuditService struct {
	logs AuditStore
}

// NewAuditService creates a new AuditService.
func NewAuditService(logs AuditStore) *AuditService {
	return &AuditService{logs: logs}
}

// List retrieves the caller's tenant audit entries, newest first.
func (s *AuditService) List(ctx context.Context, p model.Principal, userID *uuid.UUID, action model.AuditAction, entity string, page, perPage int) ([]model.AuditLog, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)

	logs, total, err := s.logs.List(ctx, model.AuditFilter{
		TenantID: p.TenantID,
		UserID:   userID,
		Action:   action,
		Entity:   entity,
		Limit:    perPage,
		Offset:   (page - 1) * perPage,
	})
	if err != nil {
		return nil, nil, err
	}
	if logs == nil {
		logs = []model.AuditLog{}
	}
	return logs, response.NewPagination(page, perPage, total), nil
}
