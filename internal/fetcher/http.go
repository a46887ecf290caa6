package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/IshaanNene/linkfeed/internal/config"
	"github.com/IshaanNene/linkfeed/internal/types"
)

// HTTPFetcher implements Fetcher using net/http.
type HTTPFetcher struct {
	client  *http.Client
	session *Session
	cfg     *config.FetcherConfig
	logger  *slog.Logger
}

// NewHTTPFetcher creates a new HTTP fetcher sharing session state.
func NewHTTPFetcher(cfg *config.FetcherConfig, session *Session, logger *slog.Logger) *HTTPFetcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLSInsecure,
		},
		DisableCompression: true, // We handle decompression ourselves (including brotli)
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !cfg.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= cfg.MaxRedirects {
			return fmt.Errorf("max redirects (%d) reached", cfg.MaxRedirects)
		}
		return nil
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport:     transport,
			Jar:           session,
			CheckRedirect: redirectPolicy,
		},
		session: session,
		cfg:     cfg,
		logger:  logger.With("component", "http_fetcher"),
	}
}

// Fetch executes a GET request and returns the decoded response. The body
// is cut at req.MaxBytes without failing.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = f.cfg.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URLString(), nil)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}
	httpReq.Header = f.session.Headers()
	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Set(key, v)
		}
	}

	f.logger.Info("downloading", "url", req.URLString())
	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Timeout: isTimeout(err)}
	}
	defer httpResp.Body.Close()

	body, truncated, err := f.readBody(httpResp, req)
	if err != nil {
		return nil, &types.FetchError{
			URL:        req.URLString(),
			StatusCode: httpResp.StatusCode,
			Err:        err,
			Timeout:    isTimeout(err),
		}
	}
	duration := time.Since(start)

	resp := &types.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
		Truncated:  truncated,
		FinalURL:   httpResp.Request.URL.String(),
	}

	f.logger.Debug("fetch complete",
		"url", req.URLString(),
		"final_url", resp.FinalURL,
		"status", resp.StatusCode,
		"size", len(body),
		"truncated", truncated,
		"duration", duration,
	)
	if truncated {
		f.logger.Warn("page truncated", "url", req.URLString(), "max_bytes", req.MaxBytes)
	}

	return resp, nil
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// readBody decompresses, caps and decodes the response body into text.
func (f *HTTPFetcher) readBody(resp *http.Response, req *types.Request) (string, bool, error) {
	reader, err := decompressReader(resp, resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("decompress: %w", err)
	}

	if req.MaxBytes > 0 {
		reader = io.LimitReader(reader, req.MaxBytes+1)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", false, fmt.Errorf("read body: %w", err)
	}
	truncated := false
	if req.MaxBytes > 0 && int64(len(raw)) > req.MaxBytes {
		raw = raw[:req.MaxBytes]
		truncated = true
	}

	encoding := req.Encoding
	if encoding == "" {
		encoding = f.cfg.Encoding
	}
	text, err := decode(raw, resp.Header.Get("Content-Type"), encoding)
	if err != nil {
		return "", false, err
	}
	return text, truncated, nil
}

// decode converts raw bytes to UTF-8 text. A forced encoding wins over the
// one declared by the server or the document.
func decode(raw []byte, contentType, forced string) (string, error) {
	var r io.Reader
	if forced != "" {
		enc, err := htmlindex.Get(forced)
		if err != nil {
			return "", fmt.Errorf("unknown encoding %q: %w", forced, err)
		}
		r = enc.NewDecoder().Reader(bytes.NewReader(raw))
	} else {
		var err error
		r, err = charset.NewReader(bytes.NewReader(raw), contentType)
		if err != nil {
			return "", fmt.Errorf("detect charset: %w", err)
		}
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	return string(out), nil
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// isTimeout reports whether err comes from the request deadline.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
