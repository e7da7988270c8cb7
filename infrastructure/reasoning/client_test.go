package reasoning

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgerrors "trackline-backend/pkg/errors"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL: serverURL,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	client.initialBackoff = time.Millisecond
	return client
}

func completionBody(content string) string {
	return `{"choices":[{"message":{"content":` + jsonString(content) + `}}]}`
}

func jsonString(s string) string {
	out := `"`
	for _, r := range s {
		switch r {
		case '"':
			out += `\"`
		case '\n':
			out += `\n`
		default:
			out += string(r)
		}
	}
	return out + `"`
}

func TestClientComplete(t *testing.T) {
	t.Run("returns completion content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			w.Write([]byte(completionBody(`{"groups":[]}`)))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		content, err := client.Complete(context.Background(), "system", "user")
		require.NoError(t, err)
		assert.Equal(t, `{"groups":[]}`, content)
	})

	t.Run("retries server errors then succeeds", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(completionBody("ok")))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		content, err := client.Complete(context.Background(), "system", "user")
		require.NoError(t, err)
		assert.Equal(t, "ok", content)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("gives up after max attempts on rate limiting", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.Complete(context.Background(), "system", "user")
		require.Error(t, err)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"bad request"}}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.Complete(context.Background(), "system", "user")
		require.Error(t, err)
		assert.False(t, pkgerrors.IsTransient(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("rejects empty completion without retry", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.Write([]byte(`{"choices":[]}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.Complete(context.Background(), "system", "user")
		require.Error(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{Model: "m"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "http://localhost"}, zap.NewNop())
	assert.Error(t, err)
}
