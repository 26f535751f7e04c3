package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, h http.HandlerFunc, opts ...func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := Config{Name: "test", BaseURL: srv.URL}
	for _, o := range opts {
		o(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestConfigRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestDoJSONRoundTrip(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "v1", r.Header.Get("X-Version"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["msg"]})
	}, func(c *Config) {
		c.Auth = BearerAuth("secret")
		c.Headers = map[string]string{"X-Version": "v1"}
	})

	out, err := DoJSON[map[string]string](context.Background(), c, Request{
		Method: http.MethodPost,
		Path:   "api/chat",
		Body:   map[string]string{"msg": "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", (*out)["echo"])
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		kind      ErrorKind
		retryable bool
	}{
		{http.StatusUnauthorized, KindAuth, false},
		{http.StatusNotFound, KindNotFound, false},
		{http.StatusTooManyRequests, KindRateLimit, true},
		{http.StatusBadRequest, KindClient, false},
		{http.StatusBadGateway, KindServer, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("nope"))
			})
			resp, err := c.Do(context.Background(), Request{Path: "/x"})
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.kind, kindOf(err))
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestConnectionError(t *testing.T) {
	c, err := New(Config{Name: "down", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	_, err = c.Do(context.Background(), Request{Path: "/"})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestTimeout(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Do(ctx, Request{Path: "/slow"})
	assert.True(t, IsTimeout(err), "got %v", err)
}

func TestStreamLeavesBodyOpen(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3 bytes"))
	})
	resp, err := c.Stream(context.Background(), Request{Path: "/blob"})
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ID3 bytes", string(data))
	assert.Equal(t, "audio/mpeg", resp.ContentType)
}

func TestStreamNotFound(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
	})
	_, err := c.Stream(context.Background(), Request{Path: "/blob"})
	assert.True(t, IsNotFound(err))
}

func TestMultipartBody(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		mt, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/form-data", mt)
		mr := multipart.NewReader(r.Body, params["boundary"])
		form, err := mr.ReadForm(1 << 20)
		require.NoError(t, err)
		assert.Equal(t, []string{"base"}, form.Value["model"])
		fh := form.File["audio"][0]
		assert.Equal(t, "clip.mp3", fh.Filename)
		f, err := fh.Open()
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "pcm", string(data))
		w.WriteHeader(http.StatusNoContent)
	})

	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/transcribe",
		Body: &MultipartBody{
			Fields: map[string]string{"model": "base"},
			Files:  []FileField{{FieldName: "audio", FileName: "clip.mp3", Reader: strings.NewReader("pcm")}},
		},
	})
	require.NoError(t, err)
}
