package persistence

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// tenantScope restricts a query to one tenant's rows.
// Panics on the nil UUID; an unscoped query here is a programming error.
func tenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	if tenantID == uuid.Nil {
		panic("tenant scope requested without a tenant ID")
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// FeeCalculationSortFields contains allowed sort fields for fee calculation listings
var FeeCalculationSortFields = map[string]bool{
	"created_at":              true,
	"updated_at":              true,
	"tax_year":                true,
	"status":                  true,
	"sent_at":                 true,
	"final_amount_before_vat": true,
	"total_with_vat":          true,
}

// DisputeSortFields contains allowed sort fields for dispute listings
var DisputeSortFields = map[string]bool{
	"created_at":  true,
	"updated_at":  true,
	"status":      true,
	"resolved_at": true,
}
