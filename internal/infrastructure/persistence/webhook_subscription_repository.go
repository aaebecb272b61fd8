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

// GormWebhookSubscriptionRepository implements integration.WebhookSubscriptionRepository using GORM
type GormWebhookSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormWebhookSubscriptionRepository creates a new GormWebhookSubscriptionRepository
func NewGormWebhookSubscriptionRepository(db *gorm.DB) *GormWebhookSubscriptionRepository {
	return &GormWebhookSubscriptionRepository{db: db}
}

// Save persists the subscription, creating or updating by ID
func (r *GormWebhookSubscriptionRepository) Save(ctx context.Context, sub *integration.WebhookSubscription) error {
	model := &models.WebhookSubscriptionModel{}
	model.FromDomain(sub)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

// FindByConnection finds the subscription for a connection
func (r *GormWebhookSubscriptionRepository) FindByConnection(ctx context.Context, connectionID uuid.UUID) (*integration.WebhookSubscription, error) {
	var model models.WebhookSubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Delete removes a subscription. Absent is not an error: disconnect cleanup
// runs unconditionally.
func (r *GormWebhookSubscriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.WebhookSubscriptionModel{}, "id = ?", id).Error
}

// Ensure GormWebhookSubscriptionRepository implements WebhookSubscriptionRepository interface
var _ integration.WebhookSubscriptionRepository = (*GormWebhookSubscriptionRepository)(nil)
