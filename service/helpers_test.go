package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nrenier/ICorNet-sub000/config"
)

// recordingNotify captures notifications instead of timing them out.
type recordingNotify struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recordingNotify) Push(kind NotificationKind, message string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{Kind: kind, Message: message})
	return message
}

func (r *recordingNotify) kinds() []NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NotificationKind, len(r.items))
	for i, n := range r.items {
		out[i] = n.Kind
	}
	return out
}

func (r *recordingNotify) last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}
	}
	return r.items[len(r.items)-1]
}

func newTestClient(t *testing.T, h http.Handler) *APIClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := NewAPIClient(&config.APIConfig{BaseURL: srv.URL + "/api/", TimeoutSeconds: 5})
	require.NoError(t, err)
	return client
}

func newTestScope(t *testing.T) *Scope {
	t.Helper()
	scope := NewScope(context.Background())
	t.Cleanup(func() {
		scope.Close()
		scope.Wait()
	})
	return scope
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
