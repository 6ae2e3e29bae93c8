package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/database"
	"github.com/rpupo63/inkwell-backend/database/memory"
	"github.com/rpupo63/inkwell-backend/errs"
	"github.com/rpupo63/inkwell-backend/events"
	"github.com/rpupo63/inkwell-backend/models"
	"github.com/stretchr/testify/require"
)

const cdn = "https://cdn.test/"

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	uploadErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) Upload(_ context.Context, path string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.objects[path] = data
	return cdn + path, nil
}

func (f *fakeObjects) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[path]; !ok {
		return errors.New("no such object")
	}
	delete(f.objects, path)
	f.deleted = append(f.deleted, path)
	return nil
}

func (f *fakeObjects) PathFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, cdn) {
		return "", false
	}
	return strings.TrimPrefix(url, cdn), true
}

func (f *fakeObjects) has(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[path]
	return ok
}

type sentMail struct {
	subject    string
	body       string
	recipients []string
}

type fakeMailer struct {
	sent chan sentMail
	// gate, when set, holds every send until it is closed
	gate chan struct{}
}

func (m *fakeMailer) SendEmail(_ context.Context, subject, body string, recipients []string) error {
	if m.gate != nil {
		<-m.gate
	}
	m.sent <- sentMail{subject: subject, body: body, recipients: recipients}
	return nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// memCache is a BlogCache with the same generation rules as the Redis one.
type memCache struct {
	mu    sync.Mutex
	views map[uuid.UUID]database.BlogView
	stamp map[uuid.UUID]int64
	gens  map[uuid.UUID]int64
}

func newMemCache() *memCache {
	return &memCache{
		views: map[uuid.UUID]database.BlogView{},
		stamp: map[uuid.UUID]int64{},
		gens:  map[uuid.UUID]int64{},
	}
}

func (c *memCache) Get(_ context.Context, id uuid.UUID) (*database.BlogView, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.views[id]
	if !ok || c.stamp[id] != c.gens[id] {
		return nil, c.gens[id], false
	}
	v.Authors = append([]database.AuthorView(nil), v.Authors...)
	v.Tags = append([]string(nil), v.Tags...)
	return &v, c.gens[id], true
}

func (c *memCache) Set(_ context.Context, view *database.BlogView, gen int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := *view
	v.Authors = append([]database.AuthorView(nil), view.Authors...)
	v.Tags = append([]string(nil), view.Tags...)
	c.views[view.ID] = v
	c.stamp[view.ID] = gen
}

func (c *memCache) Invalidate(_ context.Context, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[id]++
	delete(c.views, id)
}

func (c *memCache) cached(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.views[id]
	return ok && c.stamp[id] == c.gens[id]
}

type fixture struct {
	db      *memory.Database
	svc     *Services
	objects *fakeObjects
	mailer  *fakeMailer
	events  *recordedEvents
	cache   *memCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:      memory.New(),
		objects: newFakeObjects(),
		mailer:  &fakeMailer{sent: make(chan sentMail, 8)},
		events:  &recordedEvents{},
		cache:   newMemCache(),
	}
	f.svc = New(Deps{
		Store:   f.db,
		Objects: f.objects,
		Cache:   f.cache,
		Events:  f.events,
		Mailer:  f.mailer,
		Now:     func() time.Time { return fixedNow },
	})
	return f
}

// user creates a user with a profile and the given username.
func (f *fixture) user(t *testing.T, username string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	require.NoError(t, f.db.UserRepo().Upsert(ctx, &models.User{ID: id, Email: username + "@example.com"}))
	_, err := f.svc.Profiles.Update(ctx, id, UpdateProfileInput{Username: &username})
	require.NoError(t, err)
	return id
}

func (f *fixture) blog(t *testing.T, author uuid.UUID, title string, published bool, blogTags ...string) uuid.UUID {
	t.Helper()
	res, err := f.svc.Blogs.Create(context.Background(), author, CreateBlogInput{
		Title:       title,
		Content:     "content of " + title,
		Tags:        blogTags,
		IsPublished: published,
	})
	require.NoError(t, err)
	return res.ID
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, status, errs.StatusCode(err), err.Error())
}

func pngImage(name string) *Image {
	data := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	return &Image{Filename: name, ContentType: "image/png", Data: data}
}
