// TMDB v3 API implementation
//
// Response types follow https://developer.themoviedb.org/reference
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/lbsync/internal/models"
	"github.com/desertthunder/lbsync/internal/shared"
)

const (
	tmdbBaseURL    = "https://api.themoviedb.org/3"
	tmdbAuthURL    = "https://www.themoviedb.org/authenticate"
	tmdbDefaultRPS = 20
)

// TMDBOptions configures a [TMDBService].
type TMDBOptions struct {
	BaseURL           string
	AuthURL           string
	APIKey            string
	AccessToken       string
	SessionID         string
	Language          string
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *log.Logger
}

// TMDBService is an authenticated TMDB v3 client.
type TMDBService struct {
	baseURL    string
	authURL    string
	apiKey     string
	sessionID  string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
	accountID  int
}

// TMDBAccount is the account behind a session.
type TMDBAccount struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// TMDBFindResult is the response of /find/{external_id}.
type TMDBFindResult struct {
	MovieResults []TMDBMedia `json:"movie_results"`
	TVResults    []TMDBMedia `json:"tv_results"`
}

// TMDBMedia is the subset of a movie or TV result the resolver needs.
type TMDBMedia struct {
	ID           int    `json:"id"`
	Title        string `json:"title,omitempty"`
	Name         string `json:"name,omitempty"`
	ReleaseDate  string `json:"release_date,omitempty"`
	FirstAirDate string `json:"first_air_date,omitempty"`
}

// TMDBStatus is the envelope TMDB returns from writes.
type TMDBStatus struct {
	Success       *bool  `json:"success,omitempty"`
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

type tmdbRequestToken struct {
	Success      bool   `json:"success"`
	ExpiresAt    string `json:"expires_at"`
	RequestToken string `json:"request_token"`
}

type tmdbSession struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
}

type tmdbListCreated struct {
	ListID int `json:"list_id"`
}

// NewTMDBService creates a TMDB client. Either an API key or an access token is required.
func NewTMDBService(opts TMDBOptions) (*TMDBService, error) {
	if opts.APIKey == "" && opts.AccessToken == "" {
		return nil, fmt.Errorf("%w: TMDB api_key or access_token", shared.ErrMissingCredentials)
	}

	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}

	client := base
	if opts.AccessToken != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: opts.AccessToken,
			TokenType:   "Bearer",
		}))
		client.Timeout = base.Timeout
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = tmdbDefaultRPS
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := &TMDBService{
		baseURL:    firstNonEmpty(opts.BaseURL, tmdbBaseURL),
		authURL:    firstNonEmpty(opts.AuthURL, tmdbAuthURL),
		apiKey:     opts.APIKey,
		sessionID:  opts.SessionID,
		language:   firstNonEmpty(opts.Language, "en"),
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}
	return s, nil
}

func (s *TMDBService) Name() string { return "TMDB" }

// SessionID returns the session used for account mutations.
func (s *TMDBService) SessionID() string { return s.sessionID }

// SetSessionID replaces the session and forgets the cached account id.
func (s *TMDBService) SetSessionID(id string) {
	s.sessionID = id
	s.accountID = 0
}

// doRequest performs a TMDB request and decodes a 2xx JSON body into result.
//
// Transport and decode failures wrap [shared.ErrTransport]. Non-2xx responses return an [*APIError].
func (s *TMDBService) doRequest(ctx context.Context, method, endpoint string, query url.Values, body, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", shared.ErrTransport, err)
	}

	if query == nil {
		query = url.Values{}
	}
	if s.apiKey != "" {
		query.Set("api_key", s.apiKey)
	}

	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json;charset=utf-8")
	}

	s.logger.Debug("tmdb request", "method", method, "endpoint", endpoint)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", shared.ErrTransport, method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Service: "tmdb", Method: method, Endpoint: endpoint, StatusCode: resp.StatusCode}
		var status TMDBStatus
		raw := readErrorBody(resp.Body)
		if json.Unmarshal([]byte(raw), &status) == nil && status.StatusMessage != "" {
			apiErr.Message = status.StatusMessage
		} else {
			apiErr.Message = raw
		}
		return apiErr
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode %s response: %v", shared.ErrTransport, endpoint, err)
		}
	}

	return nil
}

// mutate is doRequest for account writes. Rejections wrap [shared.ErrRemoteMutation],
// including a 2xx body with "success": false.
func (s *TMDBService) mutate(ctx context.Context, op, endpoint string, body, result any) error {
	if s.sessionID == "" {
		return fmt.Errorf("%w: %s requires a TMDB session", shared.ErrNotAuthenticated, op)
	}

	q := url.Values{"session_id": {s.sessionID}}

	var raw json.RawMessage
	if err := s.doRequest(ctx, http.MethodPost, endpoint, q, body, &raw); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("%w: %s: %w", shared.ErrRemoteMutation, op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var status TMDBStatus
	if err := json.Unmarshal(raw, &status); err == nil && status.Success != nil && !*status.Success {
		return fmt.Errorf("%w: %s: %s", shared.ErrRemoteMutation, op, status.StatusMessage)
	}

	if result != nil {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("%w: %s: failed to decode response: %v", shared.ErrTransport, op, err)
		}
	}
	return nil
}

// RequestToken creates a request token for the browser approval step.
func (s *TMDBService) RequestToken(ctx context.Context) (string, error) {
	var tok tmdbRequestToken
	if err := s.doRequest(ctx, http.MethodGet, "/authentication/token/new", nil, nil, &tok); err != nil {
		return "", fmt.Errorf("%w: request token: %w", shared.ErrAuthFailed, err)
	}
	if !tok.Success || tok.RequestToken == "" {
		return "", fmt.Errorf("%w: TMDB did not issue a request token", shared.ErrAuthFailed)
	}
	return tok.RequestToken, nil
}

// ApprovalURL is where the user approves token. TMDB redirects to redirectTo afterwards when set.
func (s *TMDBService) ApprovalURL(token, redirectTo string) string {
	u := s.authURL + "/" + url.PathEscape(token)
	if redirectTo != "" {
		u += "?" + url.Values{"redirect_to": {redirectTo}}.Encode()
	}
	return u
}

// CreateSession exchanges an approved request token for a session id and starts using it.
func (s *TMDBService) CreateSession(ctx context.Context, token string) (string, error) {
	var sess tmdbSession
	body := map[string]string{"request_token": token}
	if err := s.doRequest(ctx, http.MethodPost, "/authentication/session/new", nil, body, &sess); err != nil {
		return "", fmt.Errorf("%w: create session: %w", shared.ErrAuthFailed, err)
	}
	if !sess.Success || sess.SessionID == "" {
		return "", fmt.Errorf("%w: request token was not approved", shared.ErrAuthFailed)
	}
	s.SetSessionID(sess.SessionID)
	return sess.SessionID, nil
}

// Account returns the account behind the current session.
func (s *TMDBService) Account(ctx context.Context) (*TMDBAccount, error) {
	if s.sessionID == "" {
		return nil, fmt.Errorf("%w: no TMDB session", shared.ErrNotAuthenticated)
	}

	var acct TMDBAccount
	q := url.Values{"session_id": {s.sessionID}}
	if err := s.doRequest(ctx, http.MethodGet, "/account", q, nil, &acct); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
		}
		return nil, err
	}
	s.accountID = acct.ID
	return &acct, nil
}

func (s *TMDBService) account(ctx context.Context) (int, error) {
	if s.accountID != 0 {
		return s.accountID, nil
	}
	acct, err := s.Account(ctx)
	if err != nil {
		return 0, err
	}
	return acct.ID, nil
}

// FindByIMDbID looks up movies and shows by IMDb id.
func (s *TMDBService) FindByIMDbID(ctx context.Context, imdbID string) (*TMDBFindResult, error) {
	var res TMDBFindResult
	q := url.Values{"external_source": {"imdb_id"}, "language": {s.language}}
	if err := s.doRequest(ctx, http.MethodGet, "/find/"+url.PathEscape(imdbID), q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AddToWatchlist adds media to the account watchlist.
func (s *TMDBService) AddToWatchlist(ctx context.Context, mediaID int, mediaType models.MediaType) error {
	acct, err := s.account(ctx)
	if err != nil {
		return err
	}
	body := map[string]any{"media_type": string(mediaType), "media_id": mediaID, "watchlist": true}
	return s.mutate(ctx, "add to watchlist", fmt.Sprintf("/account/%d/watchlist", acct), body, nil)
}

// MarkFavorite marks media as a favorite.
func (s *TMDBService) MarkFavorite(ctx context.Context, mediaID int, mediaType models.MediaType) error {
	acct, err := s.account(ctx)
	if err != nil {
		return err
	}
	body := map[string]any{"media_type": string(mediaType), "media_id": mediaID, "favorite": true}
	return s.mutate(ctx, "mark favorite", fmt.Sprintf("/account/%d/favorite", acct), body, nil)
}

// SetRating rates media on TMDB's 0.5 to 10 scale. The caller validates value.
func (s *TMDBService) SetRating(ctx context.Context, mediaID int, mediaType models.MediaType, value float64) error {
	body := map[string]float64{"value": value}
	return s.mutate(ctx, "set rating", fmt.Sprintf("/%s/%d/rating", mediaType, mediaID), body, nil)
}

// CreateList creates a list and returns its id.
func (s *TMDBService) CreateList(ctx context.Context, name, description string) (int, error) {
	var created tmdbListCreated
	body := map[string]string{"name": name, "description": description, "language": s.language}
	if err := s.mutate(ctx, "create list", "/list", body, &created); err != nil {
		return 0, err
	}
	if created.ListID == 0 {
		return 0, fmt.Errorf("%w: create list: no list id in response", shared.ErrRemoteMutation)
	}
	s.logger.Info("created TMDB list", "name", name, "list_id", created.ListID)
	return created.ListID, nil
}

// AddToList adds media to a list. v3 lists hold movies only, so TMDB rejects TV ids here.
func (s *TMDBService) AddToList(ctx context.Context, listID, mediaID int, mediaType models.MediaType) error {
	body := map[string]any{"media_id": mediaID, "media_type": string(mediaType)}
	return s.mutate(ctx, "add to list "+strconv.Itoa(listID), fmt.Sprintf("/list/%d/add_item", listID), body, nil)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
