package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormClientRepository implements fee.ClientRepository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByIDForTenant finds a client by ID within a tenant
func (r *GormClientRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fee.Client, error) {
	var model models.ClientModel
	err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fee.NewPersistenceError("find client", err)
	}
	return model.ToDomain(), nil
}

// FindByLegacyRef finds a client by its legacy branch reference
func (r *GormClientRepository) FindByLegacyRef(ctx context.Context, tenantID uuid.UUID, legacyRef string) (*fee.Client, error) {
	var model models.ClientModel
	err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("legacy_ref = ?", legacyRef).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fee.NewPersistenceError("find client by legacy ref", err)
	}
	return model.ToDomain(), nil
}

// Save inserts or fully updates a client row
func (r *GormClientRepository) Save(ctx context.Context, client *fee.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	now := time.Now().UTC()
	if client.CreatedAt.IsZero() {
		client.CreatedAt = now
	}
	client.UpdatedAt = now

	model := models.ClientModelFromDomain(client)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "tax_id", "group_id", "payer_client_id", "legacy_ref", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		return fee.NewPersistenceError("save client", err)
	}
	return nil
}

var _ fee.ClientRepository = (*GormClientRepository)(nil)

// CachedClientResolver maps client references to canonical IDs, caching legacy
// lookups per tenant
type CachedClientResolver struct {
	clients fee.ClientRepository
	cache   shared.Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCachedClientResolver creates a resolver. A nil cache disables caching.
func NewCachedClientResolver(clients fee.ClientRepository, cache shared.Cache, ttl time.Duration, logger *zap.Logger) *CachedClientResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedClientResolver{clients: clients, cache: cache, ttl: ttl, logger: logger}
}

func clientRefKey(tenantID uuid.UUID, legacyRef string) string {
	return fmt.Sprintf("client-ref:%s:%s", tenantID, legacyRef)
}

// Resolve implements fee.ClientResolver. UUID references must belong to the tenant.
func (r *CachedClientResolver) Resolve(ctx context.Context, tenantID uuid.UUID, ref string) (uuid.UUID, error) {
	id, legacy, err := fee.ParseClientRef(ref)
	if err != nil {
		return uuid.Nil, err
	}

	if id != uuid.Nil {
		client, err := r.clients.FindByIDForTenant(ctx, tenantID, id)
		if err != nil {
			return uuid.Nil, err
		}
		if client == nil {
			return uuid.Nil, shared.ErrNotFound
		}
		return client.ID, nil
	}

	key := clientRefKey(tenantID, legacy)
	if r.cache != nil {
		var cached uuid.UUID
		found, err := r.cache.Get(ctx, key, &cached)
		if err != nil {
			r.logger.Warn("Client reference cache read failed", zap.String("key", key), zap.Error(err))
		} else if found {
			return cached, nil
		}
	}

	client, err := r.clients.FindByLegacyRef(ctx, tenantID, legacy)
	if err != nil {
		return uuid.Nil, err
	}
	if client == nil {
		return uuid.Nil, shared.ErrNotFound
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, client.ID, r.ttl); err != nil {
			r.logger.Warn("Client reference cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return client.ID, nil
}

var _ fee.ClientResolver = (*CachedClientResolver)(nil)
