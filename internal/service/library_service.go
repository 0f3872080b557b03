package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dom/gifbox/internal/domain"
	"github.com/dom/gifbox/internal/repository"
	"github.com/google/uuid"
)

type LibraryService struct {
	gifRepo repository.SavedGifRepository
	now     func() time.Time
}

func NewLibraryService(gifRepo repository.SavedGifRepository) *LibraryService {
	return &LibraryService{
		gifRepo: gifRepo,
		now:     time.Now,
	}
}

type SaveGifInput struct {
	ProviderItemID string
	Title          string
	URL            string
}

// SaveGif stores the gif for userID. Saving an item the user already holds
// returns the existing row untouched.
func (s *LibraryService) SaveGif(ctx context.Context, userID uuid.UUID, input SaveGifInput) (*domain.SavedGif, error) {
	gif := &domain.SavedGif{
		ID:             uuid.New(),
		UserID:         userID,
		ProviderItemID: strings.TrimSpace(input.ProviderItemID),
		Title:          strings.TrimSpace(input.Title),
		URL:            strings.TrimSpace(input.URL),
		SavedAt:        s.now().UTC(),
	}

	if _, err := s.gifRepo.Insert(ctx, gif); err != nil {
		return nil, err
	}

	return s.gifRepo.Get(ctx, userID, gif.ProviderItemID)
}

// ListSaved returns the user's gifs, newest first. A user with no saves gets
// an empty slice.
func (s *LibraryService) ListSaved(ctx context.Context, userID uuid.UUID) ([]*domain.SavedGif, error) {
	gifs, err := s.gifRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if gifs == nil {
		gifs = []*domain.SavedGif{}
	}
	return gifs, nil
}

func (s *LibraryService) SetCategory(ctx context.Context, userID uuid.UUID, providerItemID, category string) (*domain.SavedGif, error) {
	gif, err := s.gifRepo.SetCategory(ctx, userID, strings.TrimSpace(providerItemID), strings.TrimSpace(category))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrGifNotFound
		}
		return nil, err
	}
	return gif, nil
}
