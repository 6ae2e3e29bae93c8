package database_test

import (
	"context"
	"os"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/database"
	"github.com/rpupo63/inkwell-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openPostgres connects to DATABASE_URL and migrates, or skips the test.
func openPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return db
}

func seedUser(t *testing.T, ctx context.Context, store database.Store, db *gorm.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, store.UserRepo().Upsert(ctx, &models.User{ID: id, Email: id.String() + "@example.com"}))
	_, err := store.ProfileRepo().FindOrCreate(ctx, id)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Delete(&models.User{}, "id = ?", id)
	})
	return id
}

func TestPostgresSocialGraph(t *testing.T) {
	db := openPostgres(t)
	store := database.New(db)
	ctx := context.Background()

	alice := seedUser(t, ctx, store, db)
	bob := seedUser(t, ctx, store, db)

	created, err := store.FollowRepo().Follow(ctx, alice, bob)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.FollowRepo().Follow(ctx, alice, bob)
	require.NoError(t, err)
	assert.False(t, created, "second follow is a no-op")

	followers, following, err := store.FollowRepo().Counts(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), followers)
	assert.Equal(t, int64(0), following)

	list, total, err := store.FollowRepo().Followers(ctx, bob, database.DefaultPage())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, alice, list[0].UserID)
}

func TestPostgresUsernameUnique(t *testing.T) {
	db := openPostgres(t)
	store := database.New(db)
	ctx := context.Background()

	alice := seedUser(t, ctx, store, db)
	bob := seedUser(t, ctx, store, db)
	name := "pg-" + alice.String()[:8]

	p, err := store.ProfileRepo().FindByUserID(ctx, alice)
	require.NoError(t, err)
	p.Username = &name
	require.NoError(t, store.ProfileRepo().Update(ctx, p))

	taken, err := store.ProfileRepo().UsernameTaken(ctx, name, bob)
	require.NoError(t, err)
	assert.True(t, taken)

	q, err := store.ProfileRepo().FindByUserID(ctx, bob)
	require.NoError(t, err)
	q.Username = &name
	assert.ErrorIs(t, store.ProfileRepo().Update(ctx, q), database.ErrUsernameTaken)
}

func TestPostgresBlogAggregates(t *testing.T) {
	db := openPostgres(t)
	store := database.New(db)
	ctx := context.Background()

	alice := seedUser(t, ctx, store, db)
	bob := seedUser(t, ctx, store, db)

	blog := &models.Blog{ID: uuid.New(), Title: "Postgres", Content: "body", Tags: []string{"programming"}, IsPublished: true}
	require.NoError(t, store.BlogRepo().Create(ctx, blog, alice, []uuid.UUID{bob}))
	t.Cleanup(func() { db.Delete(&models.Blog{}, "id = ?", blog.ID) })

	liked, count, err := store.LikeRepo().Toggle(ctx, blog.ID, bob)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(1), count)

	view, err := store.BlogRepo().Detail(ctx, blog.ID)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, int64(1), view.LikeCount)
	require.Len(t, view.Authors, 2)
	assert.True(t, view.Authors[0].IsPrimaryAuthor)
	assert.Equal(t, alice, view.Authors[0].UserID)
	assert.True(t, view.HasAuthor(bob))

	liked, count, err = store.LikeRepo().Toggle(ctx, blog.ID, bob)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, int64(0), count)
}

const racers = 12

func TestPostgresConcurrentFollow(t *testing.T) {
	db := openPostgres(t)
	store := database.New(db)
	ctx := context.Background()

	alice := seedUser(t, ctx, store, db)
	bob := seedUser(t, ctx, store, db)

	var created atomic.Int32
	var g errgroup.Group
	for i := 0; i < racers; i++ {
		g.Go(func() error {
			ok, err := store.FollowRepo().Follow(ctx, alice, bob)
			if ok {
				created.Add(1)
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), created.Load())
	var rows int64
	require.NoError(t, db.Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", alice, bob).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

// Concurrent toggles of one (blog, user) pair never fail and never leave a
// duplicate row. Which toggle wins depends on commit order.
func TestPostgresConcurrentToggle(t *testing.T) {
	db := openPostgres(t)
	store := database.New(db)
	ctx := context.Background()

	alice := seedUser(t, ctx, store, db)
	bob := seedUser(t, ctx, store, db)
	blog := &models.Blog{ID: uuid.New(), Title: "race", Content: "body", IsPublished: true}
	require.NoError(t, store.BlogRepo().Create(ctx, blog, alice, nil))
	t.Cleanup(func() { db.Delete(&models.Blog{}, "id = ?", blog.ID) })

	var g errgroup.Group
	for i := 0; i < racers; i++ {
		g.Go(func() error {
			_, _, err := store.LikeRepo().Toggle(ctx, blog.ID, bob)
			return err
		})
	}
	require.NoError(t, g.Wait())

	var rows int64
	require.NoError(t, db.Model(&models.Like{}).
		Where("blog_id = ? AND user_id = ?", blog.ID, bob).Count(&rows).Error)
	assert.LessOrEqual(t, rows, int64(1))

	count, liked, err := store.LikeRepo().Stats(ctx, blog.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, rows, count)
	assert.Equal(t, rows == 1, liked)

	// from a settled state one more toggle flips it
	nowLiked, _, err := store.LikeRepo().Toggle(ctx, blog.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, !liked, nowLiked)
}

func TestPostgresIDsByAuthor(t *testing.T) {
	db := openPostgres(t)
	store := database.New(db)
	ctx := context.Background()

	alice := seedUser(t, ctx, store, db)
	bob := seedUser(t, ctx, store, db)
	blog := &models.Blog{ID: uuid.New(), Title: "shared", Content: "body"}
	require.NoError(t, store.BlogRepo().Create(ctx, blog, alice, []uuid.UUID{bob}))
	t.Cleanup(func() { db.Delete(&models.Blog{}, "id = ?", blog.ID) })

	ids, err := store.BlogRepo().IDsByAuthor(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{blog.ID}, ids)
}
