package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/lbsync/internal/models"
	"github.com/desertthunder/lbsync/internal/shared"
	tu "github.com/desertthunder/lbsync/internal/testing"
)

func newTestTMDB(t *testing.T, h http.HandlerFunc, session string) *TMDBService {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	s, err := NewTMDBService(TMDBOptions{
		BaseURL:           srv.URL,
		AuthURL:           "https://www.themoviedb.org/authenticate",
		APIKey:            "key",
		SessionID:         session,
		RequestsPerSecond: 1000,
		Logger:            shared.NewLogger(io.Discard),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return s
}

func TestTMDBService(t *testing.T) {
	t.Run("NewTMDBService", func(t *testing.T) {
		t.Run("Missing Credentials", func(t *testing.T) {
			_, err := NewTMDBService(TMDBOptions{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Defaults", func(t *testing.T) {
			s, err := NewTMDBService(TMDBOptions{APIKey: "key"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if s.baseURL != tmdbBaseURL {
				t.Errorf("expected default base url, got %s", s.baseURL)
			}
			if s.language != "en" {
				t.Errorf("expected language en, got %s", s.language)
			}
			if s.Name() != "TMDB" {
				t.Errorf("expected name TMDB, got %s", s.Name())
			}
		})

		t.Run("Access Token Sends Bearer Header", func(t *testing.T) {
			var auth, apiKey string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth = r.Header.Get("Authorization")
				apiKey = r.URL.Query().Get("api_key")
				json.NewEncoder(w).Encode(map[string]any{"movie_results": []any{}, "tv_results": []any{}})
			}))
			defer srv.Close()

			s, err := NewTMDBService(TMDBOptions{BaseURL: srv.URL, AccessToken: "tok", Logger: shared.NewLogger(io.Discard)})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if _, err := s.FindByIMDbID(context.Background(), "tt0133093"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if auth != "Bearer tok" {
				t.Errorf("expected bearer header, got %q", auth)
			}
			if apiKey != "" {
				t.Errorf("expected no api_key param, got %q", apiKey)
			}
		})
	})

	t.Run("Authentication", func(t *testing.T) {
		t.Run("Request Token And Session", func(t *testing.T) {
			s := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/authentication/token/new":
					json.NewEncoder(w).Encode(map[string]any{"success": true, "request_token": "rt"})
				case "/authentication/session/new":
					var body map[string]string
					json.NewDecoder(r.Body).Decode(&body)
					if body["request_token"] != "rt" {
						t.Errorf("expected request token rt, got %q", body["request_token"])
					}
					json.NewEncoder(w).Encode(map[string]any{"success": true, "session_id": "sess"})
				default:
					http.NotFound(w, r)
				}
			}, "")

			tok, err := s.RequestToken(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tok != "rt" {
				t.Errorf("expected rt, got %s", tok)
			}

			sess, err := s.CreateSession(context.Background(), tok)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if sess != "sess" || s.SessionID() != "sess" {
				t.Errorf("expected session to be stored, got %s / %s", sess, s.SessionID())
			}
		})

		t.Run("Unapproved Token", func(t *testing.T) {
			s := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]any{"success": false, "status_code": 17, "status_message": "Session denied."})
			}, "")

			_, err := s.CreateSession(context.Background(), "rt")
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
			if !strings.Contains(err.Error(), "Session denied.") {
				t.Errorf("expected status message in error, got %v", err)
			}
		})

		t.Run("Approval URL", func(t *testing.T) {
			s := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {}, "")

			if got := s.ApprovalURL("abc", ""); got != "https://www.themoviedb.org/authenticate/abc" {
				t.Errorf("unexpected url %s", got)
			}
			got := s.ApprovalURL("abc", "http://127.0.0.1:3000/callback")
			if got != "https://www.themoviedb.org/authenticate/abc?redirect_to=http%3A%2F%2F127.0.0.1%3A3000%2Fcallback" {
				t.Errorf("unexpected url %s", got)
			}
		})

		t.Run("Account Unauthorized", func(t *testing.T) {
			s := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"status_code":3,"status_message":"Authentication failed"}`))
			}, "expired")

			_, err := s.Account(context.Background())
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("Account Without Session", func(t *testing.T) {
			s := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
				t.Error("no request expected")
			}, "")

			if _, err := s.Account(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("FindByIMDbID", func(t *testing.T) {
		s := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/find/tt0903747" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("external_source") != "imdb_id" {
				t.Errorf("expected external_source imdb_id")
			}
			if r.URL.Query().Get("api_key") != "key" {
				t.Errorf("expected api_key param")
			}
			w.Write([]byte(`{"movie_results":[],"tv_results":[{"id":1396,"name":"Breaking Bad"}]}`))
		}, "")

		res, err := s.FindByIMDbID(context.Background(), "tt0903747")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(res.MovieResults) != 0 || len(res.TVResults) != 1 || res.TVResults[0].ID != 1396 {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("Mutations", func(t *testing.T) {
		type seen struct {
			path string
			body map[string]any
		}

		newMutating := func(t *testing.T, calls *[]seen) *TMDBService {
			return newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/account" {
					w.Write([]byte(`{"id":42,"username":"viewer"}`))
					return
				}
				if r.URL.Query().Get("session_id") != "sess" {
					t.Errorf("expected session_id on %s", r.URL.Path)
				}
				var body map[string]any
				json.NewDecoder(r.Body).Decode(&body)
				*calls = append(*calls, seen{path: r.URL.Path, body: body})

				if r.URL.Path == "/list" {
					w.Write([]byte(`{"success":true,"status_code":1,"list_id":5001}`))
					return
				}
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"success":true,"status_code":1,"status_message":"Success."}`))
			}, "sess")
		}

		t.Run("Account Endpoints", func(t *testing.T) {
			var calls []seen
			s := newMutating(t, &calls)
			ctx := context.Background()

			if err := s.AddToWatchlist(ctx, 603, models.MediaMovie); err != nil {
				t.Fatalf("watchlist: %v", err)
			}
			if err := s.MarkFavorite(ctx, 1396, models.MediaTV); err != nil {
				t.Fatalf("favorite: %v", err)
			}
			if err := s.SetRating(ctx, 603, models.MediaMovie, 9); err != nil {
				t.Fatalf("rating: %v", err)
			}

			if len(calls) != 3 {
				t.Fatalf("expected 3 writes, got %d", len(calls))
			}
			if calls[0].path != "/account/42/watchlist" || calls[0].body["watchlist"] != true || calls[0].body["media_id"] != float64(603) {
				t.Errorf("unexpected watchlist call %+v", calls[0])
			}
			if calls[1].path != "/account/42/favorite" || calls[1].body["media_type"] != "tv" {
				t.Errorf("unexpected favorite call %+v", calls[1])
			}
			if calls[2].path != "/movie/603/rating" || calls[2].body["value"] != float64(9) {
				t.Errorf("unexpected rating call %+v", calls[2])
			}
		})

		t.Run("Lists", func(t *testing.T) {
			var calls []seen
			s := newMutating(t, &calls)
			ctx := context.Background()

			id, err := s.CreateList(ctx, "Favourites", "Imported from Letterboxd")
			if err != nil {
				t.Fatalf("create list: %v", err)
			}
			if id != 5001 {
				t.Errorf("expected list id 5001, got %d", id)
			}
			if err := s.AddToList(ctx, id, 603, models.MediaMovie); err != nil {
				t.Fatalf("add to list: %v", err)
			}
			if calls[1].path != "/list/5001/add_item" || calls[1].body["media_id"] != float64(603) {
				t.Errorf("unexpected add_item call %+v", calls[1])
			}
		})

		t.Run("Without Session", func(t *testing.T) {
			s := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
				t.Error("no request expected")
			}, "")

			err := s.SetRating(context.Background(), 603, models.MediaMovie, 8)
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("Rejected", func(t *testing.T) {
			s := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"success":false,"status_code":18,"status_message":"Value too low."}`))
			}, "sess")

			err := s.SetRating(context.Background(), 603, models.MediaMovie, 0.1)
			if !errors.Is(err, shared.ErrRemoteMutation) {
				t.Errorf("expected ErrRemoteMutation, got %v", err)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
				t.Errorf("expected wrapped APIError, got %v", err)
			}
		})

		t.Run("Success False In 2xx", func(t *testing.T) {
			s := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"success":false,"status_message":"Invalid id."}`))
			}, "sess")

			err := s.AddToList(context.Background(), 7, 1396, models.MediaTV)
			if !errors.Is(err, shared.ErrRemoteMutation) {
				t.Errorf("expected ErrRemoteMutation, got %v", err)
			}
		})
	})

	t.Run("Transport Failure", func(t *testing.T) {
		s, err := NewTMDBService(TMDBOptions{
			APIKey:     "key",
			HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed"))},
			Logger:     shared.NewLogger(io.Discard),
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		_, err = s.FindByIMDbID(context.Background(), "tt1")
		if !errors.Is(err, shared.ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
	})

	t.Run("Malformed Body", func(t *testing.T) {
		s, err := NewTMDBService(TMDBOptions{
			APIKey: "key",
			HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
				StatusCode: http.StatusOK,
				Body:       &tu.FCloser{},
				Header:     make(http.Header),
			}, nil)},
			Logger: shared.NewLogger(io.Discard),
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		_, err = s.FindByIMDbID(context.Background(), "tt1")
		if !errors.Is(err, shared.ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
	})
}
