package models

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func parse(t *testing.T, model interface{}) *schema.Schema {
	t.Helper()
	s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	return s
}

func TestTableNames(t *testing.T) {
	want := map[interface{}]string{
		&User{}:       "users",
		&Profile{}:    "user_profiles",
		&Follow{}:     "user_followers",
		&Blog{}:       "blogs",
		&BlogAuthor{}: "blog_authors",
		&Like{}:       "blog_likes",
		&Comment{}:    "blog_comments",
	}
	for model, table := range want {
		assert.Equal(t, table, parse(t, model).Table)
	}
}

func TestCompositeKeys(t *testing.T) {
	cases := []struct {
		model interface{}
		keys  []string
	}{
		{&Follow{}, []string{"follower_id", "following_id"}},
		{&BlogAuthor{}, []string{"blog_id", "user_id"}},
		{&Like{}, []string{"blog_id", "user_id"}},
	}
	for _, tc := range cases {
		s := parse(t, tc.model)
		var got []string
		for _, f := range s.PrimaryFields {
			got = append(got, f.DBName)
		}
		assert.ElementsMatch(t, tc.keys, got, s.Table)
	}
}

func TestModelColumns(t *testing.T) {
	cols := modelColumns(parse(t, &Comment{}))
	assert.Contains(t, cols, "parent_comment_id")
	assert.NotContains(t, cols, "replies")

	assert.Equal(t, []string{"legacy"}, findColumnMismatches([]string{"id", "legacy", "content"}, cols))
}

func TestCommentIsRoot(t *testing.T) {
	parent := uuid.New()
	assert.True(t, Comment{}.IsRoot())
	assert.False(t, Comment{ParentCommentID: &parent}.IsRoot())
}
