// Letterboxd site client
//
// There is no public API; the client drives the website with a cookie jar.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/lbsync/internal/shared"
)

const (
	letterboxdBaseURL    = "https://letterboxd.com"
	letterboxdCSRFCookie = "com.xk72.webparts.csrf"
	maxPageSize          = 4 << 20
)

// LetterboxdOptions configures a [LetterboxdService].
type LetterboxdOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Transport http.RoundTripper
	Logger    *log.Logger
}

// LetterboxdService fetches Letterboxd pages with a persistent cookie session.
type LetterboxdService struct {
	baseURL    *url.URL
	userAgent  string
	httpClient *http.Client
	jar        *cookiejar.Jar
	logger     *log.Logger
}

// Page is a fetched page. Non-2xx responses are returned as pages, not errors.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (p *Page) OK() bool { return p.StatusCode >= 200 && p.StatusCode < 300 }

// Document parses the page body as HTML.
func (p *Page) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(p.Body)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", shared.ErrTransport, p.URL, err)
	}
	return doc, nil
}

// StoredCookie is one entry of the saved cookie jar file.
type StoredCookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
	Secure bool   `json:"secure"`
}

// NewLetterboxdService creates a client with an empty cookie jar.
func NewLetterboxdService(opts LetterboxdOptions) (*LetterboxdService, error) {
	base, err := url.Parse(firstNonEmpty(opts.BaseURL, letterboxdBaseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: letterboxd base url: %v", shared.ErrInvalidConfig, err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &LetterboxdService{
		baseURL:    base,
		userAgent:  opts.UserAgent,
		httpClient: &http.Client{Jar: jar, Timeout: timeout, Transport: opts.Transport},
		jar:        jar,
		logger:     logger,
	}, nil
}

func (s *LetterboxdService) Name() string { return "Letterboxd" }

func (s *LetterboxdService) do(req *http.Request) (*Page, error) {
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", shared.ErrTransport, req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", shared.ErrTransport, req.URL, err)
	}

	s.logger.Debug("letterboxd request", "method", req.Method, "url", resp.Request.URL.String(), "status", resp.StatusCode)
	return &Page{URL: resp.Request.URL.String(), StatusCode: resp.StatusCode, Body: body}, nil
}

// FetchPage GETs rawURL, following redirects (boxd.it short links land on film pages).
func (s *LetterboxdService) FetchPage(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	return s.do(req)
}

// Login signs in with a username and password.
//
// The sign-in page sets a CSRF cookie which is echoed in the login form; success is
// judged by the session cookies present after visiting /activity/.
func (s *LetterboxdService) Login(ctx context.Context, username, password string) error {
	signIn := s.baseURL.JoinPath("sign-in/").String()

	page, err := s.FetchPage(ctx, signIn)
	if err != nil {
		return err
	}
	if !page.OK() {
		return fmt.Errorf("%w: sign-in page returned %d", shared.ErrAuthFailed, page.StatusCode)
	}

	csrf := s.cookie(letterboxdCSRFCookie)
	if csrf == "" {
		csrf = csrfFromPage(page)
	}
	if csrf == "" {
		return fmt.Errorf("%w: no CSRF token after loading sign-in page", shared.ErrAuthFailed)
	}

	form := url.Values{
		"__csrf":   {csrf},
		"username": {username},
		"password": {password},
		"remember": {"true"},
	}

	loginURL := s.baseURL.JoinPath("user", "login.do").String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", signIn)
	req.Header.Set("Origin", s.baseURL.Scheme+"://"+s.baseURL.Host)

	resp, err := s.do(req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("%w: login returned %d", shared.ErrAuthFailed, resp.StatusCode)
	}

	if _, err := s.FetchPage(ctx, s.baseURL.JoinPath("activity/").String()); err != nil {
		return err
	}

	if !s.IsLoggedIn() {
		return fmt.Errorf("%w: no Letterboxd session cookie after login", shared.ErrAuthFailed)
	}

	s.logger.Info("signed in to Letterboxd", "username", username)
	return nil
}

// csrfFromPage reads the hidden __csrf form field some sign-in pages carry instead of the cookie.
func csrfFromPage(page *Page) string {
	doc, err := page.Document()
	if err != nil {
		return ""
	}
	v, _ := doc.Find(`input[name="__csrf"]`).First().Attr("value")
	return v
}

func (s *LetterboxdService) cookie(name string) string {
	for _, c := range s.jar.Cookies(s.baseURL) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// IsLoggedIn reports whether the jar holds a signed-in session cookie.
func (s *LetterboxdService) IsLoggedIn() bool {
	for _, c := range s.jar.Cookies(s.baseURL) {
		if strings.HasPrefix(c.Name, "letterboxd.user") || c.Name == "letterboxd.signed.in.as" {
			return true
		}
	}
	return false
}

// SetCookies adds cookies to the jar for the base URL.
func (s *LetterboxdService) SetCookies(cookies []*http.Cookie) {
	s.jar.SetCookies(s.baseURL, cookies)
}

// SaveCookies writes the jar's cookies for the base URL to path.
//
// The jar does not expose domain or flags, so they are recorded for the base host.
func (s *LetterboxdService) SaveCookies(path string) error {
	var stored []StoredCookie
	for _, c := range s.jar.Cookies(s.baseURL) {
		stored = append(stored, StoredCookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: s.baseURL.Hostname(),
			Path:   "/",
			Secure: s.baseURL.Scheme == "https",
		})
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write cookie jar: %w", err)
	}
	return nil
}

// LoadCookies reads a saved cookie file into the jar. It returns false when the file does not exist.
func (s *LetterboxdService) LoadCookies(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cookie jar: %w", err)
	}

	var stored []StoredCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return false, fmt.Errorf("%w: cookie jar %s: %v", shared.ErrCorruptState, path, err)
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Path:   firstNonEmpty(c.Path, "/"),
			Secure: c.Secure,
		})
	}
	s.SetCookies(cookies)
	return true, nil
}
