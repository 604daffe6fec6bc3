package service

import (
	"context"

	"giftbook/internal/domain"
	"giftbook/internal/repository"
)

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 200
)

// AuditService reads the append-only action log.
type AuditService interface {
	Recent(ctx context.Context, userID int64, limit int) ([]domain.LogEntry, error)
}

type auditService struct {
	logs repository.LogRepository
}

func NewAuditService(logs repository.LogRepository) AuditService {
	return &auditService{logs: logs}
}

func (s *auditService) Recent(ctx context.Context, userID int64, limit int) ([]domain.LogEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultAuditLimit
	case limit > MaxAuditLimit:
		limit = MaxAuditLimit
	}
	return s.logs.ListByUser(ctx, userID, limit)
}

func recordAction(ctx context.Context, logs repository.LogRepository, userID, eventID int64, action string) error {
	_, err := logs.Append(ctx, &domain.LogEntry{
		UserID:  userID,
		EventID: eventID,
		Action:  action,
	})
	return err
}
