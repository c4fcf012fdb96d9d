package fee

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Client is a firm client that fees are billed to
type Client struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
	TaxID    string
	GroupID  *uuid.UUID
	// PayerClientID is set when another client pays this client's fee
	PayerClientID *uuid.UUID
	// LegacyRef is the identifier used by branch-based records
	LegacyRef string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Group is a named set of related clients
type Group struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
}

// GroupCalculation is a fee calculated for a whole group for one year
type GroupCalculation struct {
	ID                   uuid.UUID
	TenantID             uuid.UUID
	GroupID              uuid.UUID
	TaxYear              int
	Status               FeeStatus
	SentAt               *time.Time
	FinalAmountBeforeVAT *decimal.Decimal
	TotalWithVAT         *decimal.Decimal
}

// ClientResolver maps an external client reference to the canonical client ID.
// A reference is either a UUID or a legacy branch reference.
type ClientResolver interface {
	Resolve(ctx context.Context, tenantID uuid.UUID, ref string) (uuid.UUID, error)
}

// legacyRefPrefixes are accepted in front of legacy branch identifiers
var legacyRefPrefixes = []string{"branch:", "legacy:"}

// ParseClientRef splits a reference into a canonical ID or a normalized legacy ref.
// Exactly one of the results is set for a non-empty input.
func ParseClientRef(ref string) (uuid.UUID, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return uuid.Nil, "", NewValidationError(CodeValidation, "client_ref", "client reference is required")
	}
	if id, err := uuid.Parse(ref); err == nil {
		return id, "", nil
	}
	legacy := ref
	lower := strings.ToLower(ref)
	for _, prefix := range legacyRefPrefixes {
		if strings.HasPrefix(lower, prefix) {
			legacy = ref[len(prefix):]
			break
		}
	}
	legacy = strings.TrimSpace(legacy)
	if legacy == "" {
		return uuid.Nil, "", NewValidationError(CodeValidation, "client_ref", "client reference is empty")
	}
	return uuid.Nil, legacy, nil
}
