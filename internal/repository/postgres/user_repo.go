package postgres

import (
	"context"

	"github.com/dom/gifbox/internal/domain"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) GetByHandle(ctx context.Context, handle string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "handle = ?", handle).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}
