package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New("inkwell")
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/blogs/{blogID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/blogs/"+id, nil))
	}

	body := scrape(t, m)
	assert.Contains(t, body, `inkwell_http_requests_total{method="GET",route="/blogs/{blogID}",status="404"} 2`)
	assert.NotContains(t, body, `route="/blogs/a"`)
}

func TestObserveCache(t *testing.T) {
	m := New("inkwell")
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)

	body := scrape(t, m)
	assert.Contains(t, body, `inkwell_cache_lookups_total{result="hit"} 1`)
	assert.Contains(t, body, `inkwell_cache_lookups_total{result="miss"} 2`)
}
