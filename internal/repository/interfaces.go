package repository

import (
	"context"
	"errors"

	"github.com/dom/gifbox/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByHandle(ctx context.Context, handle string) (*domain.User, error)
}

type SavedGifRepository interface {
	// Insert stores gif unless the user already saved the same provider
	// item. It reports whether a row was written.
	Insert(ctx context.Context, gif *domain.SavedGif) (bool, error)
	Get(ctx context.Context, userID uuid.UUID, providerItemID string) (*domain.SavedGif, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.SavedGif, error)
	SetCategory(ctx context.Context, userID uuid.UUID, providerItemID, category string) (*domain.SavedGif, error)
}

type Repositories struct {
	User     UserRepository
	SavedGif SavedGifRepository
}
