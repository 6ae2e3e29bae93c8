// Package memory is an in-process implementation of the database repositories for
// local development (DB_TYPE=memory) and tests. It follows the same matching,
// ordering and cascade rules as the postgres repositories.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/database"
	"github.com/rpupo63/inkwell-backend/models"
	"gorm.io/datatypes"
)

type followKey struct{ follower, following uuid.UUID }
type pairKey struct{ blog, user uuid.UUID }

type Database struct {
	mu sync.RWMutex

	users    map[uuid.UUID]models.User
	profiles map[uuid.UUID]models.Profile // by user id
	follows  map[followKey]models.Follow
	blogs    map[uuid.UUID]models.Blog
	authors  map[pairKey]models.BlogAuthor
	likes    map[pairKey]models.Like
	comments map[uuid.UUID]models.Comment

	last time.Time
}

func New() *Database {
	return &Database{
		users:    map[uuid.UUID]models.User{},
		profiles: map[uuid.UUID]models.Profile{},
		follows:  map[followKey]models.Follow{},
		blogs:    map[uuid.UUID]models.Blog{},
		authors:  map[pairKey]models.BlogAuthor{},
		likes:    map[pairKey]models.Like{},
		comments: map[uuid.UUID]models.Comment{},
	}
}

func (d *Database) UserRepo() database.UserRepository       { return userRepo{d} }
func (d *Database) ProfileRepo() database.ProfileRepository { return profileRepo{d} }
func (d *Database) FollowRepo() database.FollowRepository   { return followRepo{d} }
func (d *Database) BlogRepo() database.BlogRepository       { return blogRepo{d} }
func (d *Database) LikeRepo() database.LikeRepository       { return likeRepo{d} }
func (d *Database) CommentRepo() database.CommentRepository { return commentRepo{d} }

// now returns strictly increasing timestamps so newest-first ordering is stable.
// Callers hold the write lock.
func (d *Database) now() time.Time {
	t := time.Now().UTC()
	if !t.After(d.last) {
		t = d.last.Add(time.Microsecond)
	}
	d.last = t
	return t
}

func (d *Database) profileFields(userID uuid.UUID) (username, displayName, avatarURL *string, ok bool) {
	p, ok := d.profiles[userID]
	if !ok {
		return nil, nil, nil, false
	}
	return p.Username, p.DisplayName, p.AvatarURL, true
}

func containsFold(field *string, needle string) bool {
	return field != nil && strings.Contains(strings.ToLower(*field), strings.ToLower(needle))
}

func page[T any](items []T, p database.Page) []T {
	start, end := p.Window(len(items))
	out := make([]T, 0, end-start)
	return append(out, items[start:end]...)
}

// users

type userRepo struct{ d *Database }

func (r userRepo) Upsert(_ context.Context, user *models.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	now := r.d.now()
	existing, ok := r.d.users[user.ID]
	if ok {
		existing.Email = user.Email
		existing.UpdatedAt = now
		r.d.users[user.ID] = existing
		*user = existing
		return nil
	}
	user.CreatedAt, user.UpdatedAt = now, now
	r.d.users[user.ID] = *user
	return nil
}

func (r userRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	_, ok := r.d.users[id]
	return ok, nil
}

func (r userRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	u, ok := r.d.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// profiles

type profileRepo struct{ d *Database }

func (r profileRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*models.Profile, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	p, ok := r.d.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r profileRepo) FindOrCreate(_ context.Context, userID uuid.UUID) (*models.Profile, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if p, ok := r.d.profiles[userID]; ok {
		return &p, nil
	}
	if _, ok := r.d.users[userID]; !ok {
		return nil, fmt.Errorf("insert user_profiles: violates foreign key constraint on user %s", userID)
	}

	p := *database.NewProfile(userID)
	p.ID = uuid.New()
	p.CreatedAt = r.d.now()
	p.UpdatedAt = p.CreatedAt
	r.d.profiles[userID] = p
	return &p, nil
}

func (r profileRepo) Update(_ context.Context, profile *models.Profile) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if profile.Username != nil {
		for uid, other := range r.d.profiles {
			if uid != profile.UserID && other.Username != nil && *other.Username == *profile.Username {
				return database.ErrUsernameTaken
			}
		}
	}
	profile.UpdatedAt = r.d.now()
	r.d.profiles[profile.UserID] = *profile
	return nil
}

func (r profileRepo) UsernameTaken(_ context.Context, username string, exceptUserID uuid.UUID) (bool, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for uid, p := range r.d.profiles {
		if uid != exceptUserID && p.Username != nil && *p.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r profileRepo) ExistingUserIDs(_ context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := []uuid.UUID{}
	for _, id := range userIDs {
		if _, ok := r.d.profiles[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// follows

type followRepo struct{ d *Database }

func (r followRepo) Follow(_ context.Context, followerID, followingID uuid.UUID) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if followerID == followingID {
		return false, fmt.Errorf("insert user_followers: violates check constraint no_self_follow")
	}
	key := followKey{followerID, followingID}
	if _, ok := r.d.follows[key]; ok {
		return false, nil
	}
	r.d.follows[key] = models.Follow{FollowerID: followerID, FollowingID: followingID, CreatedAt: r.d.now()}
	return true, nil
}

func (r followRepo) Unfollow(_ context.Context, followerID, followingID uuid.UUID) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	key := followKey{followerID, followingID}
	_, ok := r.d.follows[key]
	delete(r.d.follows, key)
	return ok, nil
}

func (r followRepo) IsFollowing(_ context.Context, followerID, followingID uuid.UUID) (bool, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	_, ok := r.d.follows[followKey{followerID, followingID}]
	return ok, nil
}

func (r followRepo) Followers(_ context.Context, userID uuid.UUID, p database.Page) ([]database.FollowUser, int64, error) {
	return r.list(p, func(f models.Follow) (uuid.UUID, bool) { return f.FollowerID, f.FollowingID == userID })
}

func (r followRepo) Following(_ context.Context, userID uuid.UUID, p database.Page) ([]database.FollowUser, int64, error) {
	return r.list(p, func(f models.Follow) (uuid.UUID, bool) { return f.FollowingID, f.FollowerID == userID })
}

func (r followRepo) list(p database.Page, match func(models.Follow) (uuid.UUID, bool)) ([]database.FollowUser, int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	var all []database.FollowUser
	for _, f := range r.d.follows {
		other, ok := match(f)
		if !ok {
			continue
		}
		username, displayName, avatarURL, _ := r.d.profileFields(other)
		all = append(all, database.FollowUser{
			UserID:      other,
			Username:    username,
			DisplayName: displayName,
			AvatarURL:   avatarURL,
			FollowedAt:  f.CreatedAt,
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].FollowedAt.After(all[j].FollowedAt) })
	return page(all, p), int64(len(all)), nil
}

func (r followRepo) Counts(_ context.Context, userID uuid.UUID) (int64, int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var followers, following int64
	for key := range r.d.follows {
		if key.following == userID {
			followers++
		}
		if key.follower == userID {
			following++
		}
	}
	return followers, following, nil
}

// blogs

type blogRepo struct{ d *Database }

func (r blogRepo) Create(_ context.Context, blog *models.Blog, primaryAuthorID uuid.UUID, coAuthorIDs []uuid.UUID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	// validate everything before writing so a failure leaves nothing behind
	authorIDs := append([]uuid.UUID{primaryAuthorID}, coAuthorIDs...)
	seen := map[uuid.UUID]bool{}
	for _, id := range authorIDs {
		if _, ok := r.d.users[id]; !ok {
			return fmt.Errorf("insert blog_authors: violates foreign key constraint on user %s", id)
		}
		if seen[id] {
			return fmt.Errorf("insert blog_authors: duplicate key value violates unique constraint")
		}
		seen[id] = true
	}

	if blog.ID == uuid.Nil {
		blog.ID = uuid.New()
	}
	now := r.d.now()
	blog.CreatedAt, blog.UpdatedAt = now, now
	if blog.Tags == nil {
		blog.Tags = datatypes.JSONSlice[string]{}
	}
	r.d.blogs[blog.ID] = *blog

	for i, id := range authorIDs {
		r.d.authors[pairKey{blog.ID, id}] = models.BlogAuthor{
			BlogID:          blog.ID,
			UserID:          id,
			IsPrimaryAuthor: i == 0,
			CreatedAt:       now.Add(time.Duration(i) * time.Nanosecond),
		}
	}
	return nil
}

func (r blogRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Blog, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	b, ok := r.d.blogs[id]
	if !ok {
		return nil, nil
	}
	b.Tags = append(datatypes.JSONSlice[string]{}, b.Tags...)
	return &b, nil
}

func (r blogRepo) Update(_ context.Context, blog *models.Blog, coAuthorIDs []uuid.UUID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	existing, ok := r.d.blogs[blog.ID]
	if !ok {
		return nil
	}
	for _, id := range coAuthorIDs {
		if _, ok := r.d.users[id]; !ok {
			return fmt.Errorf("insert blog_authors: violates foreign key constraint on user %s", id)
		}
	}

	blog.CreatedAt = existing.CreatedAt
	blog.UpdatedAt = r.d.now()
	r.d.blogs[blog.ID] = *blog

	if coAuthorIDs == nil {
		return nil
	}
	for key, a := range r.d.authors {
		if key.blog == blog.ID && !a.IsPrimaryAuthor {
			delete(r.d.authors, key)
		}
	}
	for i, id := range coAuthorIDs {
		key := pairKey{blog.ID, id}
		if _, ok := r.d.authors[key]; ok {
			continue
		}
		r.d.authors[key] = models.BlogAuthor{
			BlogID:    blog.ID,
			UserID:    id,
			CreatedAt: blog.UpdatedAt.Add(time.Duration(i) * time.Nanosecond),
		}
	}
	return nil
}

func (r blogRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	delete(r.d.blogs, id)
	for key := range r.d.authors {
		if key.blog == id {
			delete(r.d.authors, key)
		}
	}
	for key := range r.d.likes {
		if key.blog == id {
			delete(r.d.likes, key)
		}
	}
	for cid, c := range r.d.comments {
		if c.BlogID == id {
			delete(r.d.comments, cid)
		}
	}
	return nil
}

func (r blogRepo) IsAuthor(_ context.Context, blogID, userID uuid.UUID) (bool, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	_, ok := r.d.authors[pairKey{blogID, userID}]
	return ok, nil
}

func (r blogRepo) IDsByAuthor(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var ids []uuid.UUID
	for key := range r.d.authors {
		if key.user == userID {
			ids = append(ids, key.blog)
		}
	}
	return ids, nil
}

func (r blogRepo) Detail(_ context.Context, id uuid.UUID) (*database.BlogView, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	views := r.views([]uuid.UUID{id}, true)
	if len(views) == 0 {
		return nil, nil
	}
	return &views[0], nil
}

func (r blogRepo) Summaries(_ context.Context, ids []uuid.UUID) ([]database.BlogView, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	return r.views(ids, false), nil
}

// views mirrors the postgres join: authors without a profile are not listed,
// and a blog without listed authors is absent.
func (r blogRepo) views(ids []uuid.UUID, full bool) []database.BlogView {
	out := []database.BlogView{}
	for _, id := range ids {
		blog, ok := r.d.blogs[id]
		if !ok {
			continue
		}
		authors := r.authorViews(id)
		if len(authors) == 0 {
			continue
		}

		var likeCount, commentCount int64
		for key := range r.d.likes {
			if key.blog == id {
				likeCount++
			}
		}
		for _, c := range r.d.comments {
			if c.BlogID == id && c.IsRoot() {
				commentCount++
			}
		}
		blog.Tags = append(datatypes.JSONSlice[string]{}, blog.Tags...)
		out = append(out, database.NewBlogView(blog, authors, likeCount, commentCount, full))
	}
	return out
}

func (r blogRepo) authorViews(blogID uuid.UUID) []database.AuthorView {
	var rows []models.BlogAuthor
	for key, a := range r.d.authors {
		if key.blog == blogID {
			rows = append(rows, a)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].IsPrimaryAuthor != rows[j].IsPrimaryAuthor {
			return rows[i].IsPrimaryAuthor
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})

	var views []database.AuthorView
	for _, a := range rows {
		username, displayName, avatarURL, ok := r.d.profileFields(a.UserID)
		if !ok {
			continue
		}
		views = append(views, database.AuthorView{
			UserID:          a.UserID,
			Username:        username,
			DisplayName:     displayName,
			AvatarURL:       avatarURL,
			IsPrimaryAuthor: a.IsPrimaryAuthor,
		})
	}
	return views
}

func (r blogRepo) Search(_ context.Context, f database.BlogFilter, p database.Page) ([]uuid.UUID, int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	var matched []models.Blog
	for _, b := range r.d.blogs {
		if r.matches(b, f) {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() > matched[j].ID.String()
	})

	ids := make([]uuid.UUID, 0, len(matched))
	for _, b := range page(matched, p) {
		ids = append(ids, b.ID)
	}
	return ids, int64(len(matched)), nil
}

func (r blogRepo) matches(b models.Blog, f database.BlogFilter) bool {
	if f.Published != nil && b.IsPublished != *f.Published {
		return false
	}
	if f.Query != "" && !containsFold(&b.Title, f.Query) && !containsFold(b.Description, f.Query) && !containsFold(&b.Content, f.Query) {
		return false
	}
	for _, tag := range f.Tags {
		found := false
		for _, have := range b.Tags {
			if have == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	// the author predicates apply to a single author row, as in the join
	for key := range r.d.authors {
		if key.blog != b.ID {
			continue
		}
		if f.AuthorID != uuid.Nil && key.user != f.AuthorID {
			continue
		}
		if f.Author != "" {
			username, displayName, _, ok := r.d.profileFields(key.user)
			if !ok || (!containsFold(username, f.Author) && !containsFold(displayName, f.Author)) {
				continue
			}
		}
		return true
	}
	return false
}

// likes

type likeRepo struct{ d *Database }

func (r likeRepo) Toggle(_ context.Context, blogID, userID uuid.UUID) (bool, int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	key := pairKey{blogID, userID}
	_, liked := r.d.likes[key]
	if liked {
		delete(r.d.likes, key)
	} else {
		r.d.likes[key] = models.Like{BlogID: blogID, UserID: userID, CreatedAt: r.d.now()}
	}
	return !liked, r.count(blogID), nil
}

func (r likeRepo) Stats(_ context.Context, blogID, userID uuid.UUID) (int64, bool, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	_, liked := r.d.likes[pairKey{blogID, userID}]
	return r.count(blogID), liked, nil
}

func (r likeRepo) count(blogID uuid.UUID) int64 {
	var n int64
	for key := range r.d.likes {
		if key.blog == blogID {
			n++
		}
	}
	return n
}

// comments

type commentRepo struct{ d *Database }

func (r commentRepo) Create(_ context.Context, c *models.Comment) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.blogs[c.BlogID]; !ok {
		return fmt.Errorf("insert blog_comments: violates foreign key constraint on blog %s", c.BlogID)
	}
	if c.ParentCommentID != nil {
		if _, ok := r.d.comments[*c.ParentCommentID]; !ok {
			return fmt.Errorf("insert blog_comments: violates foreign key constraint on parent %s", *c.ParentCommentID)
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = r.d.now()
	c.UpdatedAt = c.CreatedAt
	r.d.comments[c.ID] = *c
	return nil
}

func (r commentRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Comment, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	c, ok := r.d.comments[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r commentRepo) Update(_ context.Context, c *models.Comment) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	existing, ok := r.d.comments[c.ID]
	if !ok {
		return nil
	}
	existing.Content = c.Content
	existing.UpdatedAt = r.d.now()
	r.d.comments[c.ID] = existing
	*c = existing
	return nil
}

func (r commentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	delete(r.d.comments, id)
	for cid, c := range r.d.comments {
		if c.ParentCommentID != nil && *c.ParentCommentID == id {
			delete(r.d.comments, cid)
		}
	}
	return nil
}

func (r commentRepo) view(c models.Comment) database.CommentView {
	username, displayName, avatarURL, _ := r.d.profileFields(c.UserID)
	return database.CommentView{
		ID:              c.ID,
		BlogID:          c.BlogID,
		Content:         c.Content,
		ParentCommentID: c.ParentCommentID,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		User: database.CommentUser{
			UserID:      c.UserID,
			Username:    username,
			DisplayName: displayName,
			AvatarURL:   avatarURL,
		},
	}
}

func (r commentRepo) View(_ context.Context, id uuid.UUID) (*database.CommentView, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	c, ok := r.d.comments[id]
	if !ok {
		return nil, nil
	}
	v := r.view(c)
	return &v, nil
}

func (r commentRepo) Roots(_ context.Context, blogID uuid.UUID, p database.Page) ([]database.CommentView, int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	var roots []models.Comment
	for _, c := range r.d.comments {
		if c.BlogID == blogID && c.IsRoot() {
			roots = append(roots, c)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].CreatedAt.After(roots[j].CreatedAt) })

	views := []database.CommentView{}
	for _, c := range page(roots, p) {
		views = append(views, r.view(c))
	}
	return views, int64(len(roots)), nil
}

func (r commentRepo) RepliesByParent(_ context.Context, parentIDs []uuid.UUID) (map[uuid.UUID][]database.CommentView, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	wanted := make(map[uuid.UUID]bool, len(parentIDs))
	for _, id := range parentIDs {
		wanted[id] = true
	}

	var replies []models.Comment
	for _, c := range r.d.comments {
		if c.ParentCommentID != nil && wanted[*c.ParentCommentID] {
			replies = append(replies, c)
		}
	}
	sort.Slice(replies, func(i, j int) bool { return replies[i].CreatedAt.Before(replies[j].CreatedAt) })

	out := make(map[uuid.UUID][]database.CommentView, len(parentIDs))
	for _, c := range replies {
		out[*c.ParentCommentID] = append(out[*c.ParentCommentID], r.view(c))
	}
	return out, nil
}

// DeleteUser removes a user and everything that cascades from it.
func (d *Database) DeleteUser(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.users, id)
	delete(d.profiles, id)
	for key := range d.follows {
		if key.follower == id || key.following == id {
			delete(d.follows, key)
		}
	}
	for key := range d.authors {
		if key.user == id {
			delete(d.authors, key)
		}
	}
	for key := range d.likes {
		if key.user == id {
			delete(d.likes, key)
		}
	}
	var roots []uuid.UUID
	for cid, c := range d.comments {
		if c.UserID == id {
			delete(d.comments, cid)
			if c.IsRoot() {
				roots = append(roots, cid)
			}
		}
	}
	for cid, c := range d.comments {
		for _, root := range roots {
			if c.ParentCommentID != nil && *c.ParentCommentID == root {
				delete(d.comments, cid)
			}
		}
	}
}

var _ database.Store = (*Database)(nil)
