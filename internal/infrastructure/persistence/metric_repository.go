package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adboard/backend/internal/domain/integration"
	"github.com/adboard/backend/internal/infrastructure/persistence/models"
)

// GormMetricRepository persists synced platform metrics. Each Replace call
// swaps the connection's rows for one category inside a single transaction,
// so readers never observe a half-replaced snapshot.
type GormMetricRepository struct {
	db *gorm.DB
}

// NewGormMetricRepository creates a new GormMetricRepository
func NewGormMetricRepository(db *gorm.DB) *GormMetricRepository {
	return &GormMetricRepository{db: db}
}

// ReplaceCampaigns atomically replaces the connection's campaign rows
func (r *GormMetricRepository) ReplaceCampaigns(ctx context.Context, connectionID uuid.UUID, records []integration.CampaignRecord) error {
	syncedAt := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.CampaignMetricModel{}, "connection_id = ?", connectionID).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		rows := make([]*models.CampaignMetricModel, 0, len(records))
		for _, rec := range records {
			rows = append(rows, models.CampaignMetricModelFromRecord(connectionID, rec, syncedAt))
		}
		return tx.CreateInBatches(rows, metricInsertBatchSize).Error
	})
}

// ReplaceKeywords atomically replaces the connection's keyword rows
func (r *GormMetricRepository) ReplaceKeywords(ctx context.Context, connectionID uuid.UUID, records []integration.KeywordRecord) error {
	syncedAt := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.KeywordMetricModel{}, "connection_id = ?", connectionID).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		rows := make([]*models.KeywordMetricModel, 0, len(records))
		for _, rec := range records {
			rows = append(rows, models.KeywordMetricModelFromRecord(connectionID, rec, syncedAt))
		}
		return tx.CreateInBatches(rows, metricInsertBatchSize).Error
	})
}

// ReplaceConversions atomically replaces the connection's conversion rows
func (r *GormMetricRepository) ReplaceConversions(ctx context.Context, connectionID uuid.UUID, records []integration.ConversionRecord) error {
	syncedAt := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ConversionMetricModel{}, "connection_id = ?", connectionID).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		rows := make([]*models.ConversionMetricModel, 0, len(records))
		for _, rec := range records {
			rows = append(rows, models.ConversionMetricModelFromRecord(connectionID, rec, syncedAt))
		}
		return tx.CreateInBatches(rows, metricInsertBatchSize).Error
	})
}

// FindCampaigns returns the connection's current campaign snapshot
func (r *GormMetricRepository) FindCampaigns(ctx context.Context, connectionID uuid.UUID) ([]integration.CampaignRecord, error) {
	var rows []models.CampaignMetricModel
	if err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("platform_campaign_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]integration.CampaignRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].ToDomain())
	}
	return records, nil
}

// FindKeywords returns the connection's current keyword snapshot
func (r *GormMetricRepository) FindKeywords(ctx context.Context, connectionID uuid.UUID) ([]integration.KeywordRecord, error) {
	var rows []models.KeywordMetricModel
	if err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("platform_keyword_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]integration.KeywordRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].ToDomain())
	}
	return records, nil
}

// FindConversions returns the connection's current conversion snapshot
func (r *GormMetricRepository) FindConversions(ctx context.Context, connectionID uuid.UUID) ([]integration.ConversionRecord, error) {
	var rows []models.ConversionMetricModel
	if err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("platform_conversion_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]integration.ConversionRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].ToDomain())
	}
	return records, nil
}

// DeleteAllForConnection drops every metric row for a connection. Called on
// disconnect so stale snapshots do not outlive the connection.
func (r *GormMetricRepository) DeleteAllForConnection(ctx context.Context, connectionID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.CampaignMetricModel{}, "connection_id = ?", connectionID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.KeywordMetricModel{}, "connection_id = ?", connectionID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ConversionMetricModel{}, "connection_id = ?", connectionID).Error
	})
}

// metricInsertBatchSize bounds one INSERT statement during snapshot replace
const metricInsertBatchSize = 200
