package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dom/gifbox/internal/domain"
	"github.com/dom/gifbox/internal/repository"
	"github.com/dom/gifbox/internal/rpc"
	"github.com/google/uuid"
)

// MemoryUserRepository is an in-process UserRepository. The mutex plays the
// role of the handle unique index.
type MemoryUserRepository struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]*domain.User
	byHandle map[string]uuid.UUID
	err      error
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:     make(map[uuid.UUID]*domain.User),
		byHandle: make(map[string]uuid.UUID),
	}
}

// FailWith makes every subsequent call return err; nil restores service.
func (r *MemoryUserRepository) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.byHandle[user.Handle]; ok {
		return repository.ErrDuplicate
	}
	u := *user
	r.byID[u.ID] = &u
	r.byHandle[u.Handle] = u.ID
	return nil
}

func (r *MemoryUserRepository) GetByHandle(ctx context.Context, handle string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, r.err
	}
	id, ok := r.byHandle[handle]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

type savedGifKey struct {
	userID uuid.UUID
	itemID string
}

// MemorySavedGifRepository is an in-process SavedGifRepository keyed by
// (user, provider item).
type MemorySavedGifRepository struct {
	mu   sync.RWMutex
	rows map[savedGifKey]*domain.SavedGif
	err  error
}

func NewMemorySavedGifRepository() *MemorySavedGifRepository {
	return &MemorySavedGifRepository{rows: make(map[savedGifKey]*domain.SavedGif)}
}

func (r *MemorySavedGifRepository) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Count returns the number of rows stored for userID.
func (r *MemorySavedGifRepository) Count(userID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for k := range r.rows {
		if k.userID == userID {
			n++
		}
	}
	return n
}

func (r *MemorySavedGifRepository) Insert(ctx context.Context, gif *domain.SavedGif) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	key := savedGifKey{gif.UserID, gif.ProviderItemID}
	if _, ok := r.rows[key]; ok {
		return false, nil
	}
	g := *gif
	r.rows[key] = &g
	return true, nil
}

func (r *MemorySavedGifRepository) Get(ctx context.Context, userID uuid.UUID, providerItemID string) (*domain.SavedGif, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, r.err
	}
	g, ok := r.rows[savedGifKey{userID, providerItemID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *MemorySavedGifRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.SavedGif, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, r.err
	}
	gifs := make([]*domain.SavedGif, 0)
	for k, g := range r.rows {
		if k.userID == userID {
			cp := *g
			gifs = append(gifs, &cp)
		}
	}
	sort.Slice(gifs, func(i, j int) bool {
		if !gifs[i].SavedAt.Equal(gifs[j].SavedAt) {
			return gifs[i].SavedAt.After(gifs[j].SavedAt)
		}
		return gifs[i].ProviderItemID < gifs[j].ProviderItemID
	})
	return gifs, nil
}

func (r *MemorySavedGifRepository) SetCategory(ctx context.Context, userID uuid.UUID, providerItemID, category string) (*domain.SavedGif, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	g, ok := r.rows[savedGifKey{userID, providerItemID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := category
	g.Category = &c
	cp := *g
	return &cp, nil
}

// NewMemoryRepositories returns repositories that need no database.
func NewMemoryRepositories() (*repository.Repositories, *MemoryUserRepository, *MemorySavedGifRepository) {
	users := NewMemoryUserRepository()
	gifs := NewMemorySavedGifRepository()
	return &repository.Repositories{User: users, SavedGif: gifs}, users, gifs
}

// ErrStoreDown is what the memory repositories return when told to fail.
var ErrStoreDown = fmt.Errorf("%w: connection refused", domain.ErrPersistUnavailable)

// StubSearcher is a provider.Searcher with canned results.
type StubSearcher struct {
	mu      sync.Mutex
	results []rpc.GifResult
	err     error
	calls   int
}

func NewStubSearcher(results ...rpc.GifResult) *StubSearcher {
	return &StubSearcher{results: results}
}

func (s *StubSearcher) Search(ctx context.Context, query string, page int) ([]rpc.GifResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]rpc.GifResult, len(s.results))
	copy(out, s.results)
	return out, nil
}

func (s *StubSearcher) SetResults(results ...rpc.GifResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = results
	s.err = nil
}

func (s *StubSearcher) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *StubSearcher) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
