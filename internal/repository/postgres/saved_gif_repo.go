package postgres

import (
	"context"

	"github.com/dom/gifbox/internal/domain"
	"github.com/dom/gifbox/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type savedGifRepository struct {
	db *gorm.DB
}

func NewSavedGifRepository(db *gorm.DB) *savedGifRepository {
	return &savedGifRepository{db: db}
}

func (r *savedGifRepository) Insert(ctx context.Context, gif *domain.SavedGif) (bool, error) {
	// The unique index decides; concurrent inserts of the same item leave
	// exactly one row and the loser affects zero rows.
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider_item_id"}},
		DoNothing: true,
	}).Create(gif)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *savedGifRepository) Get(ctx context.Context, userID uuid.UUID, providerItemID string) (*domain.SavedGif, error) {
	var gif domain.SavedGif
	err := r.db.WithContext(ctx).
		First(&gif, "user_id = ? AND provider_item_id = ?", userID, providerItemID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &gif, nil
}

func (r *savedGifRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.SavedGif, error) {
	gifs := make([]*domain.SavedGif, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("saved_at DESC").
		Order("provider_item_id ASC").
		Find(&gifs).Error
	if err != nil {
		return nil, translate(err)
	}
	return gifs, nil
}

func (r *savedGifRepository) SetCategory(ctx context.Context, userID uuid.UUID, providerItemID, category string) (*domain.SavedGif, error) {
	var gif domain.SavedGif
	res := r.db.WithContext(ctx).
		Model(&gif).
		Clauses(clause.Returning{}).
		Where("user_id = ? AND provider_item_id = ?", userID, providerItemID).
		Update("category", category)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, repository.ErrNotFound
	}
	return &gif, nil
}
