package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResendSendEmail(t *testing.T) {
	var got ResendEmailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"email_1"}`))
	}))
	defer srv.Close()

	m, err := NewResend("key", "Inkwell <no-reply@inkwell.app>")
	require.NoError(t, err)
	m.endpoint = srv.URL

	require.NoError(t, m.SendEmail(context.Background(), "hi", "<p>x</p>", []string{"a@example.com"}))
	assert.Equal(t, "Inkwell <no-reply@inkwell.app>", got.From)
	assert.Equal(t, []string{"a@example.com"}, got.To)
	assert.Equal(t, "<p>x</p>", got.Html)
}

func TestResendErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer srv.Close()

	m, err := NewResend("key", "x@example.com")
	require.NoError(t, err)
	m.endpoint = srv.URL

	err = m.SendEmail(context.Background(), "s", "b", []string{"a@example.com"})
	assert.ErrorContains(t, err, "status 422")
	assert.ErrorContains(t, err, "invalid from")

	assert.Error(t, m.SendEmail(context.Background(), "s", "b", nil))

	_, err = NewResend("", "x@example.com")
	assert.Error(t, err)
}

func TestNewFollowerEmail(t *testing.T) {
	subject, body := NewFollowerEmail("<b>eve</b>")
	assert.Equal(t, "<b>eve</b> started following you", subject)
	assert.Contains(t, body, "&lt;b&gt;eve&lt;/b&gt;")
}
