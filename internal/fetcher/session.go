package fetcher

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/IshaanNene/linkfeed/internal/config"
	"github.com/IshaanNene/linkfeed/internal/parser"
)

// Session holds the state shared by every request of one run: the default
// headers and the cookie jar. It implements http.CookieJar.
type Session struct {
	mu       sync.RWMutex
	headers  http.Header
	jar      *cookiejar.Jar
	static   []*http.Cookie
	readOnly bool
	logger   *slog.Logger
}

// NewSession builds a session from the fetcher configuration.
func NewSession(cfg *config.FetcherConfig, logger *slog.Logger) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	s := &Session{
		headers:  DefaultHeaders(cfg),
		jar:      jar,
		readOnly: cfg.NoCookies,
		logger:   logger.With("component", "session"),
	}
	for _, spec := range cfg.Cookies {
		cookies, err := http.ParseCookie(spec)
		if err != nil {
			return nil, fmt.Errorf("parse cookie %q: %w", spec, err)
		}
		for _, c := range cookies {
			s.logger.Info("custom cookie parsed", "name", c.Name)
		}
		s.static = append(s.static, cookies...)
	}
	return s, nil
}

// DefaultHeaders returns the browser-like headers sent with every request,
// with user-supplied headers applied last.
func DefaultHeaders(cfg *config.FetcherConfig) http.Header {
	h := make(http.Header)
	h.Set("User-Agent", cfg.UserAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	h.Set("TE", "trailers")

	if al := acceptLanguage(cfg.Languages); al != "" {
		h.Set("Accept-Language", al)
	}

	for _, spec := range cfg.Headers {
		name, value, _ := strings.Cut(spec, ":")
		h.Set(strings.TrimSpace(name), strings.TrimLeft(value, " \t"))
	}
	return h
}

// acceptLanguage uses the configured languages, or the language of $LANG.
func acceptLanguage(langs []string) string {
	if len(langs) == 0 {
		if env := os.Getenv("LANG"); env != "" {
			name, _, _ := strings.Cut(env, ".")
			if norm, ok := parser.NormalizeLanguage(name); ok && norm != "c" && norm != "posix" {
				langs = []string{norm}
			}
		}
	}
	return parser.AcceptLanguage(langs)
}

// Headers returns a copy of the session headers.
func (s *Session) Headers() http.Header {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headers.Clone()
}

// SetReferer records the page later requests claim to come from. After the
// first start page every request is same-origin navigation; the first
// referer is kept.
func (s *Session) SetReferer(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.headers.Get("Referer") == "" && ref != "" {
		s.headers.Set("Referer", ref)
	}
}

// MarkSameOrigin switches Sec-Fetch-Site to same-origin when it is sent.
func (s *Session) MarkSameOrigin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.headers.Get("Sec-Fetch-Site") != "" {
		s.headers.Set("Sec-Fetch-Site", "same-origin")
	}
}

// SetCookies implements http.CookieJar. Cookies are dropped when the
// session is read-only.
func (s *Session) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if s.readOnly {
		s.logger.Debug("ignoring cookies from server", "url", u.String(), "count", len(cookies))
		return
	}
	s.jar.SetCookies(u, cookies)
}

// Cookies implements http.CookieJar. Static cookies are sent to every host.
func (s *Session) Cookies(u *url.URL) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(s.static))
	names := make(map[string]bool, len(s.static))
	for _, c := range s.static {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
		names[c.Name] = true
	}
	for _, c := range s.jar.Cookies(u) {
		if !names[c.Name] {
			out = append(out, c)
		}
	}
	return out
}
