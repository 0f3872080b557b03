package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dom/gifbox/internal/domain"
	"github.com/dom/gifbox/internal/repository"
	"github.com/dom/gifbox/internal/repository/postgres"
	"github.com/dom/gifbox/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestSavedGifRepository_InsertAndGet(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, repos.User)

	gif := &domain.SavedGif{
		ID:             uuid.New(),
		UserID:         user.ID,
		ProviderItemID: "abc123",
		Title:          "Cat Typing",
		URL:            "https://media.giphy.com/media/abc123/giphy.gif",
		SavedAt:        time.Now().UTC().Truncate(time.Microsecond),
	}

	inserted, err := repos.SavedGif.Insert(ctx, gif)
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := *gif
	dup.ID = uuid.New()
	dup.Title = "other"
	inserted, err = repos.SavedGif.Insert(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := repos.SavedGif.Get(ctx, user.ID, "abc123")
	require.NoError(t, err)
	assert.Equal(t, gif.ID, got.ID)
	assert.Equal(t, "Cat Typing", got.Title)
	assert.True(t, gif.SavedAt.Equal(got.SavedAt))

	_, err = repos.SavedGif.Get(ctx, user.ID, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSavedGifRepository_ConcurrentInsert(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)

	user, _ := testutil.NewUserBuilder().Build(t, repos.User)

	const attempts = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := repos.SavedGif.Insert(context.Background(), &domain.SavedGif{
				ID:             uuid.New(),
				UserID:         user.ID,
				ProviderItemID: "race",
				URL:            "https://media.example.com/race.gif",
				SavedAt:        time.Now().UTC(),
			})
			assert.NoError(t, err)
			if inserted {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	gifs, err := repos.SavedGif.ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, gifs, 1)
}

func TestSavedGifRepository_ListByUser(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	owner, _ := testutil.NewUserBuilder().Build(t, repos.User)
	other, _ := testutil.NewUserBuilder().Build(t, repos.User)

	empty, err := repos.SavedGif.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testutil.NewGifBuilder().WithItemID("old").SavedAt(base).Build(t, repos.SavedGif, owner.ID)
	testutil.NewGifBuilder().WithItemID("new").SavedAt(base.Add(time.Hour)).Build(t, repos.SavedGif, owner.ID)
	testutil.NewGifBuilder().WithItemID("b-tie").SavedAt(base.Add(time.Minute)).Build(t, repos.SavedGif, owner.ID)
	testutil.NewGifBuilder().WithItemID("a-tie").SavedAt(base.Add(time.Minute)).Build(t, repos.SavedGif, owner.ID)
	testutil.NewGifBuilder().WithItemID("theirs").Build(t, repos.SavedGif, other.ID)

	gifs, err := repos.SavedGif.ListByUser(ctx, owner.ID)
	require.NoError(t, err)

	ids := make([]string, 0, len(gifs))
	for _, g := range gifs {
		ids = append(ids, g.ProviderItemID)
	}
	assert.Equal(t, []string{"new", "a-tie", "b-tie", "old"}, ids)
}

func TestSavedGifRepository_SetCategory(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	owner, _ := testutil.NewUserBuilder().Build(t, repos.User)
	other, _ := testutil.NewUserBuilder().Build(t, repos.User)
	saved := testutil.NewGifBuilder().WithItemID("abc").Build(t, repos.SavedGif, owner.ID)

	got, err := repos.SavedGif.SetCategory(ctx, owner.ID, "abc", "reactions")
	require.NoError(t, err)
	require.NotNil(t, got.Category)
	assert.Equal(t, "reactions", *got.Category)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "abc", got.ProviderItemID)

	stored, err := repos.SavedGif.Get(ctx, owner.ID, "abc")
	require.NoError(t, err)
	require.NotNil(t, stored.Category)
	assert.Equal(t, "reactions", *stored.Category)

	_, err = repos.SavedGif.SetCategory(ctx, other.ID, "abc", "stolen")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repos.SavedGif.SetCategory(ctx, owner.ID, "missing", "x")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestRepositories_StoreUnavailable(t *testing.T) {
	db, mock := newMockDB(t)
	repos := postgres.NewRepositories(db)
	ctx := context.Background()
	outage := errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")

	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnError(outage)
	_, err := repos.User.GetByHandle(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrPersistUnavailable)
	assert.NotErrorIs(t, err, repository.ErrNotFound)

	mock.ExpectQuery(`SELECT \* FROM "saved_gifs"`).WillReturnError(outage)
	_, err = repos.SavedGif.ListByUser(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrPersistUnavailable)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositories_NotFoundIsNotAnOutage(t *testing.T) {
	db, mock := newMockDB(t)
	repos := postgres.NewRepositories(db)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "handle", "secret_hash", "created_at"}))

	_, err := repos.User.GetByHandle(context.Background(), "nobody")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrPersistUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}
