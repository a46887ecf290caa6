package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/linkfeed/internal/config"
	"github.com/IshaanNene/linkfeed/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestFetcher(t *testing.T, mutate func(*config.FetcherConfig)) (*HTTPFetcher, *Session) {
	t.Helper()
	cfg := config.DefaultConfig().Fetcher
	cfg.Languages = []string{"en_US"}
	if mutate != nil {
		mutate(&cfg)
	}
	session, err := NewSession(&cfg, testLogger)
	require.NoError(t, err)
	f := NewHTTPFetcher(&cfg, session, testLogger)
	t.Cleanup(func() { f.Close() })
	return f, session
}

func get(t *testing.T, f *HTTPFetcher, url string, maxBytes int64) (*types.Response, error) {
	t.Helper()
	req, err := types.NewRequest(url)
	require.NoError(t, err)
	req.MaxBytes = maxBytes
	return f.Fetch(context.Background(), req)
}

func TestHTTPFetcherBasic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, config.DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "en-US;q=0.8", r.Header.Get("Accept-Language"))
		assert.Equal(t, "none", r.Header.Get("Sec-Fetch-Site"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Last-Modified", "Wed, 21 Oct 2015 07:28:00 GMT")
		w.Write([]byte("<html><body>héllo</body></html>"))
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, nil)
	resp, err := get(t, f, server.URL+"/page", 0)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, "<html><body>héllo</body></html>", resp.Body)
	assert.Equal(t, server.URL+"/page", resp.FinalURL)
	assert.Equal(t, "Wed, 21 Oct 2015 07:28:00 GMT", resp.LastModified())
	assert.False(t, resp.Truncated)
}

func TestHTTPFetcherRedirectFinalURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("moved"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f, _ := newTestFetcher(t, nil)
	resp, err := get(t, f, server.URL+"/old", 0)
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/new", resp.FinalURL)
	assert.Equal(t, "moved", resp.Body)
}

func TestHTTPFetcherNon2xxIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, nil)
	resp, err := get(t, f, server.URL, 0)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.False(t, resp.IsSuccess())
}

func TestHTTPFetcherDecompression(t *testing.T) {
	const page = "<html><body>compressed page</body></html>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		switch r.URL.Path {
		case "/gzip":
			w.Header().Set("Content-Encoding", "gzip")
			zw := gzip.NewWriter(&buf)
			zw.Write([]byte(page))
			zw.Close()
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			bw := brotli.NewWriter(&buf)
			bw.Write([]byte(page))
			bw.Close()
		}
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, nil)
	for _, path := range []string{"/gzip", "/br"} {
		resp, err := get(t, f, server.URL+path, 0)
		require.NoError(t, err, path)
		assert.Equal(t, page, resp.Body, path)
	}
}

func TestHTTPFetcherTruncates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(strings.Repeat("a", 5000)))
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, nil)
	resp, err := get(t, f, server.URL, 1024)
	require.NoError(t, err)
	assert.Len(t, resp.Body, 1024)
	assert.True(t, resp.Truncated)
}

func TestHTTPFetcherCharset(t *testing.T) {
	latin1 := []byte("<html><body>caf\xe9</body></html>")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write(latin1)
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, nil)
	resp, err := get(t, f, server.URL, 0)
	require.NoError(t, err)
	assert.Contains(t, resp.Body, "café")
}

func TestHTTPFetcherForcedEncoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Lies about its charset.
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<p>\xe7a</p>"))
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, func(c *config.FetcherConfig) { c.Encoding = "windows-1252" })
	resp, err := get(t, f, server.URL, 0)
	require.NoError(t, err)
	assert.Equal(t, "<p>ça</p>", resp.Body)

	f, _ = newTestFetcher(t, func(c *config.FetcherConfig) { c.Encoding = "no-such-encoding" })
	_, err = get(t, f, server.URL, 0)
	var ferr *types.FetchError
	assert.ErrorAs(t, err, &ferr)
}

func TestHTTPFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	f, _ := newTestFetcher(t, func(c *config.FetcherConfig) { c.Timeout = 50 * time.Millisecond })
	_, err := get(t, f, server.URL, 0)
	require.Error(t, err)
	var ferr *types.FetchError
	require.True(t, errors.As(err, &ferr))
	assert.True(t, ferr.IsTimeout())
}

func TestHTTPFetcherCustomHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Header.Get("X-Token") + "|" + r.Header.Get("User-Agent") + "|" + r.Header.Get("Referer")))
	}))
	defer server.Close()

	f, session := newTestFetcher(t, func(c *config.FetcherConfig) {
		c.Headers = []string{"X-Token:   secret", "User-Agent: custom/1.0"}
	})
	session.SetReferer("http://start.test/")
	session.SetReferer("http://second.test/")
	resp, err := get(t, f, server.URL, 0)
	require.NoError(t, err)
	assert.Equal(t, "secret|custom/1.0|http://start.test/", resp.Body)
}
