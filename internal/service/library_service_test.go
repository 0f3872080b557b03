package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dom/gifbox/internal/domain"
	"github.com/dom/gifbox/internal/repository/postgres"
	"github.com/dom/gifbox/internal/service"
	"github.com/dom/gifbox/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryService_SaveGif(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	library := service.NewLibraryService(repos.SavedGif)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, repos.User)

	first, err := library.SaveGif(ctx, user.ID, service.SaveGifInput{
		ProviderItemID: " abc123 ",
		Title:          "Cat Typing",
		URL:            "https://media.giphy.com/media/abc123/giphy.gif",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", first.ProviderItemID)
	assert.Equal(t, "Cat Typing", first.Title)
	assert.Nil(t, first.Category)

	// Saving again keeps the original row.
	again, err := library.SaveGif(ctx, user.ID, service.SaveGifInput{
		ProviderItemID: "abc123",
		Title:          "A different title",
		URL:            "https://media.giphy.com/media/abc123/other.gif",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Cat Typing", again.Title)
	assert.True(t, first.SavedAt.Equal(again.SavedAt))

	gifs, err := library.ListSaved(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, gifs, 1)
}

func TestLibraryService_SaveGif_Concurrent(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	library := service.NewLibraryService(repos.SavedGif)

	user, _ := testutil.NewUserBuilder().Build(t, repos.User)

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]*domain.SavedGif, attempts)
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = library.SaveGif(context.Background(), user.ID, service.SaveGifInput{
				ProviderItemID: "same",
				URL:            "https://media.example.com/same.gif",
			})
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].ID, results[i].ID)
	}

	gifs, err := library.ListSaved(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, gifs, 1)
}

func TestLibraryService_ListSaved(t *testing.T) {
	repos, _, _ := testutil.NewMemoryRepositories()
	library := service.NewLibraryService(repos.SavedGif)
	ctx := context.Background()

	owner, _ := testutil.NewUserBuilder().Build(t, repos.User)
	other, _ := testutil.NewUserBuilder().Build(t, repos.User)

	empty, err := library.ListSaved(ctx, owner.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testutil.NewGifBuilder().WithItemID("old").SavedAt(base).Build(t, repos.SavedGif, owner.ID)
	testutil.NewGifBuilder().WithItemID("new").SavedAt(base.Add(time.Hour)).Build(t, repos.SavedGif, owner.ID)
	testutil.NewGifBuilder().WithItemID("b-tie").SavedAt(base.Add(30 * time.Minute)).Build(t, repos.SavedGif, owner.ID)
	testutil.NewGifBuilder().WithItemID("a-tie").SavedAt(base.Add(30 * time.Minute)).Build(t, repos.SavedGif, owner.ID)
	testutil.NewGifBuilder().WithItemID("theirs").Build(t, repos.SavedGif, other.ID)

	gifs, err := library.ListSaved(ctx, owner.ID)
	require.NoError(t, err)

	ids := make([]string, 0, len(gifs))
	for _, g := range gifs {
		ids = append(ids, g.ProviderItemID)
	}
	assert.Equal(t, []string{"new", "a-tie", "b-tie", "old"}, ids)
}

func TestLibraryService_SetCategory(t *testing.T) {
	repos, _, _ := testutil.NewMemoryRepositories()
	library := service.NewLibraryService(repos.SavedGif)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, repos.User)
	saved := testutil.NewGifBuilder().WithItemID("abc").Build(t, repos.SavedGif, user.ID)

	tests := []struct {
		name     string
		itemID   string
		category string
		wantErr  error
	}{
		{name: "set", itemID: "abc", category: "reactions"},
		{name: "overwrite", itemID: "abc", category: " work "},
		{name: "missing gif", itemID: "nope", category: "x", wantErr: domain.ErrGifNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gif, err := library.SetCategory(ctx, user.ID, tt.itemID, tt.category)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, gif.Category)
			assert.Equal(t, strings.TrimSpace(tt.category), *gif.Category)
			assert.Equal(t, saved.SavedAt, gif.SavedAt)
		})
	}
}

func TestLibraryService_StoreDown(t *testing.T) {
	repos, _, gifs := testutil.NewMemoryRepositories()
	library := service.NewLibraryService(repos.SavedGif)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, repos.User)
	gifs.FailWith(testutil.ErrStoreDown)

	_, err := library.SaveGif(ctx, user.ID, service.SaveGifInput{ProviderItemID: "abc", URL: "https://m/abc.gif"})
	assert.ErrorIs(t, err, domain.ErrPersistUnavailable)

	_, err = library.ListSaved(ctx, user.ID)
	assert.ErrorIs(t, err, domain.ErrPersistUnavailable)

	_, err = library.SetCategory(ctx, user.ID, "abc", "x")
	assert.ErrorIs(t, err, domain.ErrPersistUnavailable)
	assert.NotErrorIs(t, err, domain.ErrGifNotFound)
}
