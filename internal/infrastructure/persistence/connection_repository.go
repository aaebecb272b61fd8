package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adboard/backend/internal/domain/integration"
	"github.com/adboard/backend/internal/infrastructure/persistence/models"
)

// GormConnectionRepository implements integration.ConnectionRepository using GORM
type GormConnectionRepository struct {
	db *gorm.DB
}

// NewGormConnectionRepository creates a new GormConnectionRepository
func NewGormConnectionRepository(db *gorm.DB) *GormConnectionRepository {
	return &GormConnectionRepository{db: db}
}

// Save persists the connection, creating or updating by ID
func (r *GormConnectionRepository) Save(ctx context.Context, conn *integration.Connection) error {
	model := models.ConnectionModelFromDomain(conn)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

// FindByID finds a connection by its ID
func (r *GormConnectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Connection, error) {
	var model models.ConnectionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrConnectionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTenantAndPlatform finds the tenant's connection for one platform
func (r *GormConnectionRepository) FindByTenantAndPlatform(ctx context.Context, tenantID uuid.UUID, code integration.PlatformCode) (*integration.Connection, error) {
	var model models.ConnectionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND platform_code = ?", tenantID, code).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrConnectionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPlatformAndAccount resolves the connection behind an inbound webhook
// from its platform and platform-side account ID
func (r *GormConnectionRepository) FindByPlatformAndAccount(ctx context.Context, code integration.PlatformCode, accountID string) (*integration.Connection, error) {
	var model models.ConnectionModel
	if err := r.db.WithContext(ctx).
		Where("platform_code = ? AND account_id = ?", code, accountID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrConnectionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns every stored connection across tenants. Used to warm the
// status registry at startup.
func (r *GormConnectionRepository) FindAll(ctx context.Context) ([]integration.Connection, error) {
	var modelList []models.ConnectionModel
	if err := r.db.WithContext(ctx).Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toDomainConnections(modelList), nil
}

// FindAllSyncEnabled finds every connection with scheduled sync enabled
func (r *GormConnectionRepository) FindAllSyncEnabled(ctx context.Context) ([]integration.Connection, error) {
	var modelList []models.ConnectionModel
	if err := r.db.WithContext(ctx).
		Where("sync_enabled = ?", true).
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toDomainConnections(modelList), nil
}

// Delete removes a connection by ID
func (r *GormConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ConnectionModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrConnectionNotFound
	}
	return nil
}

func toDomainConnections(modelList []models.ConnectionModel) []integration.Connection {
	conns := make([]integration.Connection, 0, len(modelList))
	for i := range modelList {
		conns = append(conns, *modelList[i].ToDomain())
	}
	return conns
}

// Ensure GormConnectionRepository implements ConnectionRepository interface
var _ integration.ConnectionRepository = (*GormConnectionRepository)(nil)
