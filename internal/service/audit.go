package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/edupay/remit-orders/internal/models"
)

// AuditService writes immutable audit trail entries.
type AuditService struct {
	store Store
}

func NewAuditService(store Store) *AuditService {
	return &AuditService{store: store}
}

// Write stores a single immutable audit record.
func (s *AuditService) Write(ctx context.Context, entityType string, entityID uuid.UUID, actorID *uuid.UUID, action, prevState, nextState string, metadata []byte) error {
	if err := s.store.InsertAuditLog(ctx, models.AuditRecord{
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Action:     action,
		PrevState:  prevState,
		NextState:  nextState,
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}
