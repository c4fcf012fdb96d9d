package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/feeledger/backend/internal/infrastructure/audit"
	"github.com/google/uuid"
)

// AuditLogModel is an append-only audit row
type AuditLogModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_logs_tenant_entity,priority:1"`
	Action     string     `gorm:"type:varchar(64);not null"`
	EntityType string     `gorm:"type:varchar(64);not null;index:idx_audit_logs_tenant_entity,priority:2"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_logs_tenant_entity,priority:3"`
	UserID     *uuid.UUID `gorm:"type:uuid"`
	EventID    uuid.UUID  `gorm:"type:uuid;not null"`
	Payload    string     `gorm:"type:jsonb;not null;default:'{}'"`
	OccurredAt time.Time  `gorm:"not null"`
	CreatedAt  time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// AuditLogModelFromEntry builds a row from an audit entry
func AuditLogModelFromEntry(e *audit.Entry) (*AuditLogModel, error) {
	payload := []byte("{}")
	if len(e.Payload) > 0 {
		var err error
		payload, err = json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode audit payload: %w", err)
		}
	}
	return &AuditLogModel{
		ID:         e.ID,
		TenantID:   e.TenantID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		UserID:     e.UserID,
		EventID:    e.EventID,
		Payload:    string(payload),
		OccurredAt: e.OccurredAt,
		CreatedAt:  time.Now(),
	}, nil
}

// ToEntry converts the row back to an audit entry
func (m *AuditLogModel) ToEntry() (*audit.Entry, error) {
	e := &audit.Entry{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Action:     m.Action,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		UserID:     m.UserID,
		EventID:    m.EventID,
		OccurredAt: m.OccurredAt,
	}
	if m.Payload != "" {
		if err := json.Unmarshal([]byte(m.Payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("decode audit payload: %w", err)
		}
	}
	return e, nil
}
