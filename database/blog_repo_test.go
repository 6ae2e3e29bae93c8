package database

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRunDB builds statements without a server.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=inkwell dbname=inkwell sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func pageSQL(db *gorm.DB, f BlogFilter, p Page) string {
	return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rows []searchRow
		return searchPage(tx, f, p, &rows)
	})
}

func TestSearchPageSQL(t *testing.T) {
	db := dryRunDB(t)

	sql := pageSQL(db, BlogFilter{
		Published: PublishedOnly(),
		Query:     "Go",
		Tags:      []string{"programming", "life"},
	}, Page{Skip: 40, Limit: 20})

	assert.Contains(t, sql, "SELECT DISTINCT blogs.id, blogs.created_at")
	assert.Contains(t, sql, "JOIN blog_authors ON blog_authors.blog_id = blogs.id")
	assert.Contains(t, sql, "blogs.is_published = true")
	assert.Contains(t, sql, "blogs.title ILIKE '%Go%' OR blogs.description ILIKE '%Go%' OR blogs.content ILIKE '%Go%'")
	assert.Contains(t, sql, `blogs.tags @> '["programming"]'::jsonb`)
	assert.Contains(t, sql, `blogs.tags @> '["life"]'::jsonb`)
	assert.Equal(t, 2, strings.Count(sql, "@>"), "one contains predicate per tag")
	assert.Contains(t, sql, "ORDER BY blogs.created_at DESC, blogs.id DESC")
	assert.Contains(t, sql, "LIMIT 20")
	assert.Contains(t, sql, "OFFSET 40")
	assert.NotContains(t, sql, "user_profiles", "author join only when filtering by author")
}

func TestSearchAuthorFilterSQL(t *testing.T) {
	db := dryRunDB(t)
	author := uuid.New()

	sql := pageSQL(db, BlogFilter{Author: "ann_", AuthorID: author}, DefaultPage())

	assert.Contains(t, sql, "JOIN user_profiles ON user_profiles.user_id = blog_authors.user_id")
	assert.Contains(t, sql, `user_profiles.username ILIKE '%ann\_%'`)
	assert.Contains(t, sql, "blog_authors.user_id = '"+author.String()+"'")
	assert.NotContains(t, sql, "is_published", "nil Published matches drafts too")
}

func TestSearchCountSQL(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var total int64
		return searchCount(tx, BlogFilter{Tags: []string{"food"}}, &total)
	})

	assert.Contains(t, sql, "count(*)")
	assert.Contains(t, sql, "(SELECT DISTINCT blogs.id FROM")
	assert.Contains(t, sql, ") AS matched")
	assert.Contains(t, sql, `'["food"]'::jsonb`)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
}

func TestAssembleViews(t *testing.T) {
	now := time.Now()
	first, second, orphan := uuid.New(), uuid.New(), uuid.New()
	alice, bob := uuid.New(), uuid.New()
	name := "alice"

	blogs := []models.Blog{
		{ID: second, Title: "second", Content: "body", Tags: datatypes.JSONSlice[string]{"life"}, CreatedAt: now, UpdatedAt: now},
		{ID: first, Title: "first", Content: "body", CreatedAt: now, UpdatedAt: now},
		{ID: orphan, Title: "no authors"},
	}
	authors := []authorRow{
		{BlogID: first, UserID: alice, IsPrimaryAuthor: true, Username: &name},
		{BlogID: first, UserID: bob},
		{BlogID: second, UserID: bob, IsPrimaryAuthor: true},
	}
	likes := []countRow{{BlogID: first, Count: 3}}
	comments := []countRow{{BlogID: second, Count: 2}}

	summaries := assembleViews([]uuid.UUID{first, orphan, second}, blogs, authors, likes, comments, false)
	require.Len(t, summaries, 2, "blogs without author rows are dropped")

	assert.Equal(t, first, summaries[0].ID, "input order is kept")
	assert.Len(t, summaries[0].Authors, 2)
	assert.True(t, summaries[0].Authors[0].IsPrimaryAuthor)
	assert.Equal(t, int64(3), summaries[0].LikeCount)
	assert.Equal(t, int64(0), summaries[0].CommentCount)
	assert.Equal(t, []string{}, summaries[0].Tags)
	assert.Empty(t, summaries[0].Content)
	assert.Nil(t, summaries[0].UpdatedAt)

	assert.Equal(t, second, summaries[1].ID)
	assert.Equal(t, int64(2), summaries[1].CommentCount)
	assert.True(t, summaries[1].HasAuthor(bob))
	assert.False(t, summaries[1].HasAuthor(alice))

	full := assembleViews([]uuid.UUID{second}, blogs, authors, likes, comments, true)
	require.Len(t, full, 1)
	assert.Equal(t, "body", full[0].Content)
	require.NotNil(t, full[0].UpdatedAt)
}

func TestKeepOrder(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	assert.Equal(t, []uuid.UUID{a, c}, keepOrder([]uuid.UUID{a, b, c}, []uuid.UUID{c, a}))
	assert.Equal(t, []uuid.UUID{}, keepOrder([]uuid.UUID{a}, nil))
}

func TestJSONArray(t *testing.T) {
	assert.Equal(t, `["web-development"]`, jsonArray("web-development"))
}
