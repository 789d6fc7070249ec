package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/lbsync/internal/shared"
)

// ApprovalResult is the outcome of a TMDB request token approval.
type ApprovalResult struct {
	Token string
	err   error
}

func (a *ApprovalResult) Error() error {
	return a.err
}

// ApprovalHandler handles the TMDB redirect after the user approves or denies a request token.
// Implements the Handler interface for registration with a Router.
type ApprovalHandler struct {
	token       string
	resultChan  chan ApprovalResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewApprovalHandler creates a handler expecting the given request token.
func NewApprovalHandler(token string) *ApprovalHandler {
	return &ApprovalHandler{
		token:      token,
		resultChan: make(chan ApprovalResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *ApprovalHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP handles the approval redirect.
func (h *ApprovalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	q := r.URL.Query()
	if q.Get("request_token") != h.token {
		h.Send(ApprovalResult{err: fmt.Errorf("%w: request token mismatch", shared.ErrAuthFailed)})
		http.Error(w, "Unknown request token", http.StatusBadRequest)
		return
	}

	if q.Get("denied") == "true" || q.Get("approved") != "true" {
		h.Send(ApprovalResult{err: fmt.Errorf("%w: request token was not approved", shared.ErrAuthFailed)})
		http.Error(w, "Authorization denied", http.StatusForbidden)
		return
	}

	h.Send(ApprovalResult{Token: h.token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `
<!DOCTYPE html>
<html>
<head>
    <title>lbsync authorized</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #14181c; }
        .container { text-align: center; background: #202830; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.3); }
        h1 { color: #01b4e4; margin: 0 0 1rem 0; }
        p { color: #9ab; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ TMDB access approved</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`)
}

// Send sends the approval result through the channel (only once).
func (h *ApprovalHandler) Send(result ApprovalResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel.
//
// Channel will receive exactly one result and then be closed.
func (h *ApprovalHandler) Result() <-chan ApprovalResult {
	return h.resultChan
}
