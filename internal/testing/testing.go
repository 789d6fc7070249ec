// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/lbsync/internal/models"
)

// DestinationCall is one mutation seen by [FakeDestination].
type DestinationCall struct {
	Op        string
	ListID    int
	MediaID   int
	MediaType models.MediaType
	Value     float64
	Name      string
}

func (c DestinationCall) String() string {
	switch c.Op {
	case "create_list":
		return fmt.Sprintf("create_list(%s)", c.Name)
	case "add_to_list":
		return fmt.Sprintf("add_to_list(%d,%d,%s)", c.ListID, c.MediaID, c.MediaType)
	case "rating":
		return fmt.Sprintf("rating(%d,%s,%g)", c.MediaID, c.MediaType, c.Value)
	default:
		return fmt.Sprintf("%s(%d,%s)", c.Op, c.MediaID, c.MediaType)
	}
}

// FakeDestination is a test double for a TMDB account that records every mutation.
//
// FailOn maps a media id to the error every mutation on it returns.
type FakeDestination struct {
	mu         sync.Mutex
	Calls      []DestinationCall
	FailOn     map[int]error
	NextListID int
}

func (f *FakeDestination) record(c DestinationCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.FailOn[c.MediaID]; ok && c.MediaID != 0 {
		return err
	}
	f.Calls = append(f.Calls, c)
	return nil
}

func (f *FakeDestination) AddToWatchlist(ctx context.Context, id int, mt models.MediaType) error {
	return f.record(DestinationCall{Op: "watchlist", MediaID: id, MediaType: mt})
}

func (f *FakeDestination) MarkFavorite(ctx context.Context, id int, mt models.MediaType) error {
	return f.record(DestinationCall{Op: "favorite", MediaID: id, MediaType: mt})
}

func (f *FakeDestination) SetRating(ctx context.Context, id int, mt models.MediaType, v float64) error {
	return f.record(DestinationCall{Op: "rating", MediaID: id, MediaType: mt, Value: v})
}

func (f *FakeDestination) CreateList(ctx context.Context, name, description string) (int, error) {
	f.mu.Lock()
	if f.NextListID == 0 {
		f.NextListID = 1000
	}
	f.NextListID++
	id := f.NextListID
	f.mu.Unlock()
	return id, f.record(DestinationCall{Op: "create_list", Name: name, ListID: id})
}

func (f *FakeDestination) AddToList(ctx context.Context, listID, id int, mt models.MediaType) error {
	return f.record(DestinationCall{Op: "add_to_list", ListID: listID, MediaID: id, MediaType: mt})
}

// Ops returns the recorded calls as strings.
func (f *FakeDestination) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		out[i] = c.String()
	}
	return out
}

// Count returns how many calls with op were recorded.
func (f *FakeDestination) Count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// RewriteTransport sends every request to Target, keeping path and query.
// Lets clients built for real hosts talk to an [httptest.Server].
type RewriteTransport struct {
	Target string
}

func (rt *RewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	target, err := url.Parse(rt.Target)
	if err != nil {
		return nil, err
	}
	out := req.Clone(req.Context())
	out.URL.Scheme = target.Scheme
	out.URL.Host = target.Host
	out.Host = target.Host
	return http.DefaultTransport.RoundTrip(out)
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// WriteFile writes content under a temp dir and returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := t.TempDir() + "/" + name
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
