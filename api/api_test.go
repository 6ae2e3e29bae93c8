package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/database/memory"
	"github.com/rpupo63/inkwell-backend/identity"
	"github.com/rpupo63/inkwell-backend/metrics"
	"github.com/rpupo63/inkwell-backend/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t        *testing.T
	handler  http.Handler
	verifier *identity.JWTVerifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := memory.New()
	verifier, err := identity.NewJWTVerifier("test-secret", "inkwell-test")
	require.NoError(t, err)

	deps := Deps{
		Services: services.New(services.Deps{Store: db}),
		Store:    db,
		Verifier: verifier,
		Metrics:  metrics.New("inkwell_test"),
	}
	return &testServer{
		t:        t,
		handler:  newRouter(deps, withAcceptedOrigins([]string{"https://app.example.com"})),
		verifier: verifier,
	}
}

// login returns a token for a fresh user.
func (s *testServer) login(email string) (uuid.UUID, string) {
	s.t.Helper()
	id := uuid.New()
	token, err := s.verifier.Sign(identity.Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(s.t, err)
	// the first authenticated request mirrors the user
	rec := s.do(http.MethodGet, "/users/me", token, nil)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return id, token
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)

	rec = s.do(http.MethodGet, "/blogs/tags", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[[]string](t, rec), "programming")

	rec = s.do(http.MethodGet, "/users/interests", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	interests := decode[[]string](t, rec)
	assert.Contains(t, interests, "programming")
	assert.Contains(t, interests, "music")
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/blogs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/blogs", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := s.verifier.Sign(identity.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	require.NoError(t, err)
	rec = s.do(http.MethodGet, "/blogs", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
}

func TestBlogEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, alice := s.login("alice@example.com")
	_, bob := s.login("bob@example.com")

	rec := s.do(http.MethodPost, "/blogs", alice, map[string]any{
		"title":   "Draft",
		"content": "words",
		"tags":    []string{"programming", "bogus-tag"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[services.CreateBlogResult](t, rec)
	path := "/blogs/" + created.ID.String()

	rec = s.do(http.MethodGet, path, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tags":["programming"]`)

	rec = s.do(http.MethodGet, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPut, path, alice, map[string]any{"is_published": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPut, path, bob, map[string]any{"title": "mine now"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, path+"/like", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	like := decode[services.LikeResult](t, rec)
	assert.True(t, like.IsLiked)
	assert.Equal(t, int64(1), like.LikeCount)

	rec = s.do(http.MethodGet, "/blogs?tags=programming&limit=5", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[services.BlogList](t, rec)
	assert.Equal(t, int64(1), list.TotalCount)
	assert.False(t, list.HasNext)

	rec = s.do(http.MethodDelete, path, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, path, alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t)
	_, alice := s.login("alice@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"bad blog id", http.MethodGet, "/blogs/not-a-uuid", nil, http.StatusBadRequest},
		{"limit too large", http.MethodGet, "/blogs?limit=500", nil, http.StatusBadRequest},
		{"negative skip", http.MethodGet, "/blogs?skip=-1", nil, http.StatusBadRequest},
		{"missing title", http.MethodPost, "/blogs", map[string]any{"content": "c"}, http.StatusBadRequest},
		{"follow without user_id", http.MethodPost, "/users/follow", map[string]any{}, http.StatusBadRequest},
		{"unknown user profile", http.MethodGet, "/users/" + uuid.NewString() + "/profile", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, alice, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.status, body.Status)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestMalformedJSON(t *testing.T) {
	s := newTestServer(t)
	_, alice := s.login("alice@example.com")

	req := httptest.NewRequest(http.MethodPost, "/blogs", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+alice)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "cause")
	assert.NotContains(t, rec.Body.String(), "invalid character")
}

func TestBodyLimits(t *testing.T) {
	s := newTestServer(t)
	_, alice := s.login("alice@example.com")

	send := func(contentType string, body io.Reader) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/blogs", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+alice)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := send("text/plain", strings.NewReader(`{"title":"t","content":"c"}`))
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code, rec.Body.String())
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "application/json")

	huge := `{"title":"t","content":"` + strings.Repeat("a", 2<<20) + `"}`
	rec = send("application/json", strings.NewReader(huge))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Equal(t, "request body must be less than 1MB", decode[ErrorResponse](t, rec).Details)
}

func TestFollowEndpoints(t *testing.T) {
	s := newTestServer(t)
	aliceID, alice := s.login("alice@example.com")
	bobID, bob := s.login("bob@example.com")

	rec := s.do(http.MethodPost, "/users/follow", alice, FollowRequest{UserID: aliceID.String()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/users/follow", alice, FollowRequest{UserID: bobID.String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[services.FollowResult](t, rec).IsFollowing)

	rec = s.do(http.MethodGet, "/users/followers", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var followers map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &followers))
	assert.Contains(t, followers, "followers")
	assert.Contains(t, followers, "total_count")

	rec = s.do(http.MethodGet, "/users/follow-stats?user_id="+bobID.String(), alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[services.FollowStats](t, rec)
	assert.Equal(t, int64(1), stats.FollowersCount)
	require.NotNil(t, stats.IsFollowing)
	assert.True(t, *stats.IsFollowing)

	rec = s.do(http.MethodDelete, "/users/unfollow", alice, FollowRequest{UserID: bobID.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[services.FollowResult](t, rec).IsFollowing)
}

func TestCommentEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, alice := s.login("alice@example.com")
	_, bob := s.login("bob@example.com")

	rec := s.do(http.MethodPost, "/blogs", alice, map[string]any{"title": "t", "content": "c", "is_published": true})
	require.Equal(t, http.StatusCreated, rec.Code)
	blogPath := "/blogs/" + decode[services.CreateBlogResult](t, rec).ID.String()

	rec = s.do(http.MethodPost, blogPath+"/comments", bob, CreateCommentRequest{Content: "nice"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	root := decode[services.CommentResult](t, rec)
	require.NotNil(t, root.CommentID)

	parent := root.CommentID.String()
	rec = s.do(http.MethodPost, blogPath+"/comments", alice, CreateCommentRequest{Content: "thanks", ParentCommentID: &parent})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Reply created successfully", decode[services.CommentResult](t, rec).Message)

	rec = s.do(http.MethodGet, blogPath+"/comments", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[services.CommentList](t, rec)
	require.Len(t, list.Comments, 1)
	assert.Equal(t, 1, list.Comments[0].ReplyCount)

	rec = s.do(http.MethodPut, "/blogs/comments/"+parent, alice, UpdateCommentRequest{Content: "edited"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodDelete, "/blogs/comments/"+parent, bob, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProfileImageWithoutStorage(t *testing.T) {
	s := newTestServer(t)
	_, alice := s.login("alice@example.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "me.png")
	require.NoError(t, err)
	_, err = part.Write(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/users/me/profile-image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+alice)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/users/me/profile-image", alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsernameConflictStatus(t *testing.T) {
	s := newTestServer(t)
	_, alice := s.login("alice@example.com")
	_, bob := s.login("bob@example.com")

	rec := s.do(http.MethodPut, "/users/me", alice, map[string]any{"username": "writer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"email":"alice@example.com"`)

	rec = s.do(http.MethodPut, "/users/me", bob, map[string]any{"username": "writer"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/blogs", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/blogs", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/health", "", nil)

	rec := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `inkwell_test_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
