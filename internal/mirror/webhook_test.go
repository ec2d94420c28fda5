package mirror

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookTarget_PostsRowAsJSON(t *testing.T) {
	var received Row
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	target := NewWebhookTarget(srv.URL)
	err := target.Upsert(context.Background(), Row{
		TsUTC: "2026-03-14T09:30:00Z", Name: "Ada Lovelace", Email: "ada@ucr.edu",
		Attending: "Yes", Room: "A101", Session: "Morning",
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@ucr.edu", received.Email)
	assert.Equal(t, "A101", received.Room)
	assert.Equal(t, "Morning", received.Session)
}

func TestWebhookTarget_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	target := NewWebhookTarget(srv.URL)
	err := target.Upsert(context.Background(), Row{Email: "ada@ucr.edu"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mirror webhook")
}
