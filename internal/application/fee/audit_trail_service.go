package fee

import (
	"context"
	"fmt"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/audit"
	"github.com/google/uuid"
)

// AuditTrailReader reads audit entries of one entity, newest first
type AuditTrailReader interface {
	FindByEntity(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID, filter shared.Filter) ([]audit.Entry, error)
}

// AuditEntryResponse is one audit log row
type AuditEntryResponse struct {
	ID         uuid.UUID      `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   uuid.UUID      `json:"entity_id"`
	UserID     *uuid.UUID     `json:"user_id,omitempty"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// AuditTrailService exposes the audit history of fee calculations, payments and disputes
type AuditTrailService struct {
	reader AuditTrailReader
}

// NewAuditTrailService creates a new AuditTrailService
func NewAuditTrailService(reader AuditTrailReader) *AuditTrailService {
	return &AuditTrailService{reader: reader}
}

var auditedEntityTypes = map[string]bool{
	fee.AggregateTypeFeeCalculation: true,
	fee.AggregateTypeActualPayment:  true,
	fee.AggregateTypePaymentDispute: true,
}

// History returns the audit entries of an entity
func (s *AuditTrailService) History(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID, filter shared.Filter) ([]AuditEntryResponse, error) {
	if !auditedEntityTypes[entityType] {
		return nil, fee.NewValidationError(fee.CodeValidation, "entity_type", fmt.Sprintf("unknown entity type %q", entityType))
	}
	entries, err := s.reader.FindByEntity(ctx, tenantID, entityType, entityID, filter.Normalize())
	if err != nil {
		return nil, fmt.Errorf("failed to load audit trail: %w", err)
	}
	out := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = AuditEntryResponse{
			ID:         e.ID,
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			UserID:     e.UserID,
			Payload:    e.Payload,
			OccurredAt: e.OccurredAt,
		}
	}
	return out, nil
}
