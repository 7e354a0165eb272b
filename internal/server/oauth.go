package server

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/oauth2"
)

// OAuthResult carries the outcome of the authorization code callback.
type OAuthResult struct {
	Token *oauth2.Token
	Err   error
}

// OAuthHandler completes the Spotify authorization code flow for the CLI.
//
// It accepts exactly one callback; later hits are rejected.
type OAuthHandler struct {
	config  *oauth2.Config
	state   string
	path    string
	results chan OAuthResult
	once    sync.Once
	mu      sync.Mutex
	hit     bool
}

// NewOAuthHandler serves the path of config.RedirectURL and checks the state token on callback.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	path := "/callback"
	if u, err := url.Parse(config.RedirectURL); err == nil && u.Path != "" {
		path = u.Path
	}
	return &OAuthHandler{config: config, state: state, path: path, results: make(chan OAuthResult, 1)}
}

// Routes returns the callback route.
func (h *OAuthHandler) Routes() []Route {
	return []Route{{Method: http.MethodGet, Pattern: h.path, Handler: h}}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	q := r.URL.Query()
	if q.Get("state") != h.state {
		h.send(OAuthResult{Err: fmt.Errorf("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.send(OAuthResult{Err: fmt.Errorf("authorization failed: %s", q.Get("error"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.send(OAuthResult{Err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusBadGateway)
		return
	}
	h.send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, successPage)
}

func (h *OAuthHandler) send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result receives exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

const successPage = `<!DOCTYPE html>
<html>
<head><title>partyq</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4rem">
<h1 style="color: #1DB954">Spotify connected</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>
`
