package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dom/gifbox/internal/domain"
	"github.com/dom/gifbox/internal/repository"
	"github.com/dom/gifbox/internal/rpc"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	handle string
	secret string
}

// NewUserBuilder creates a new UserBuilder with a unique handle
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		handle: fmt.Sprintf("user_%s", uuid.New().String()[:8]),
		secret: "testsecret123",
	}
}

func (b *UserBuilder) WithHandle(handle string) *UserBuilder {
	b.handle = handle
	return b
}

func (b *UserBuilder) WithSecret(secret string) *UserBuilder {
	b.secret = secret
	return b
}

// Build stores the user directly through repo and returns it with the raw secret
func (b *UserBuilder) Build(t *testing.T, repo repository.UserRepository) (*domain.User, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(b.secret), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash secret: %v", err)
	}

	user := &domain.User{
		ID:         uuid.New(),
		Handle:     b.handle,
		SecretHash: string(hash),
		CreatedAt:  time.Now(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.secret
}

// BuildAndLogin registers the user through the RPC endpoint and returns the session
func (b *UserBuilder) BuildAndLogin(t *testing.T, ts *TestServer) *rpc.Session {
	t.Helper()

	resp := PostRPC(t, ts, rpc.Register{Handle: b.handle, Secret: b.secret}, "")
	session, ok := RequireRPCSuccess(t, resp).(*rpc.Session)
	if !ok {
		t.Fatalf("register returned %T, want *rpc.Session", resp.Response.Result)
	}
	return session
}

// GifBuilder creates saved gifs for a user
type GifBuilder struct {
	itemID   string
	title    string
	url      string
	category *string
	savedAt  time.Time
}

func NewGifBuilder() *GifBuilder {
	id := uuid.New().String()[:12]
	return &GifBuilder{
		itemID:  id,
		title:   "gif " + id,
		url:     "https://media.example.com/" + id + ".gif",
		savedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (b *GifBuilder) WithItemID(id string) *GifBuilder {
	b.itemID = id
	return b
}

func (b *GifBuilder) WithCategory(category string) *GifBuilder {
	b.category = &category
	return b
}

func (b *GifBuilder) SavedAt(at time.Time) *GifBuilder {
	b.savedAt = at.UTC().Truncate(time.Microsecond)
	return b
}

// Build inserts the gif for userID and returns it
func (b *GifBuilder) Build(t *testing.T, repo repository.SavedGifRepository, userID uuid.UUID) *domain.SavedGif {
	t.Helper()

	gif := &domain.SavedGif{
		ID:             uuid.New(),
		UserID:         userID,
		ProviderItemID: b.itemID,
		Title:          b.title,
		URL:            b.url,
		Category:       b.category,
		SavedAt:        b.savedAt,
	}
	inserted, err := repo.Insert(context.Background(), gif)
	if err != nil {
		t.Fatalf("failed to insert gif: %v", err)
	}
	if !inserted {
		t.Fatalf("gif %s already saved for user %s", b.itemID, userID)
	}
	return gif
}
