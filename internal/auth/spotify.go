package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/amestrin/crosstune/internal/models"
	"github.com/amestrin/crosstune/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// spotifyResult carries the outcome of the OAuth callback exactly once.
type spotifyResult struct {
	token *oauth2.Token
	err   error
}

// SpotifySession implements PlatformSession using the OAuth2 authorization
// code flow with a loopback callback server.
type SpotifySession struct {
	authenticator *spotifyauth.Authenticator
	state         string
	listenAddr    string
	callbackPath  string

	server     *http.Server
	resultChan chan spotifyResult
	once       sync.Once
	deadline   time.Time
	timeout    time.Duration

	mu     sync.Mutex
	closed bool
	token  *oauth2.Token
}

// NewSpotifySession builds a session from the configured client credentials.
// The redirect URI determines the loopback listen address.
func NewSpotifySession(cfg shared.SpotifyConfig, timeout time.Duration) (*SpotifySession, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret required", shared.ErrMissingCredentials)
	}

	redirect := cfg.RedirectURI
	if redirect == "" {
		redirect = "http://127.0.0.1:8910/callback"
	}

	parsed, err := url.Parse(redirect)
	if err != nil {
		return nil, fmt.Errorf("%w: bad redirect_uri: %v", shared.ErrInvalidConfig, err)
	}

	authenticator := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithRedirectURL(redirect),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserLibraryRead,
			spotifyauth.ScopeUserFollowRead,
			spotifyauth.ScopePlaylistReadPrivate,
			spotifyauth.ScopePlaylistReadCollaborative,
			spotifyauth.ScopePlaylistModifyPrivate,
		),
	)

	if timeout <= 0 {
		timeout = DefaultAuthTimeout
	}

	return &SpotifySession{
		authenticator: authenticator,
		state:         shared.GenerateID(),
		listenAddr:    parsed.Host,
		callbackPath:  parsed.Path,
		resultChan:    make(chan spotifyResult, 1),
		timeout:       timeout,
	}, nil
}

// Begin starts the loopback callback server and returns the authorization
// URL the user must open. The handshake completes when Spotify redirects
// back with a valid code.
func (s *SpotifySession) Begin(ctx context.Context) (string, error) {
	listener, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return "", fmt.Errorf("%w: failed to bind callback listener: %v", shared.ErrAuthFailed, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.callbackPath, s.handleCallback)
	s.server = &http.Server{Handler: mux}
	s.deadline = time.Now().Add(s.timeout)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.send(spotifyResult{err: fmt.Errorf("callback server: %w", err)})
		}
	}()

	return s.authenticator.AuthURL(s.state), nil
}

// handleCallback validates state, exchanges the authorization code, and
// records the result exactly once.
func (s *SpotifySession) handleCallback(w http.ResponseWriter, r *http.Request) {
	token, err := s.authenticator.Token(r.Context(), s.state, r)
	if err != nil {
		s.send(spotifyResult{err: fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	s.send(spotifyResult{token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Authorization Successful</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 4rem;">
    <h1 style="color: #1DB954;">&#10003; Authorization Successful</h1>
    <p>You can close this window and return to crosstune.</p>
</body>
</html>
`)
}

// send delivers the result through the channel (only once).
func (s *SpotifySession) send(result spotifyResult) {
	s.once.Do(func() {
		s.resultChan <- result
	})
}

// Status polls the handshake outcome without blocking.
func (s *SpotifySession) Status() StatusReport {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return StatusReport{Status: StatusError, Message: "session closed"}
	}
	if s.token != nil {
		s.mu.Unlock()
		return StatusReport{Status: StatusCompleted, Message: "Spotify authentication successful"}
	}
	s.mu.Unlock()

	select {
	case result := <-s.resultChan:
		if result.err != nil {
			return StatusReport{Status: StatusError, Message: result.err.Error()}
		}
		s.mu.Lock()
		s.token = result.token
		s.mu.Unlock()
		return StatusReport{Status: StatusCompleted, Message: "Spotify authentication successful"}
	default:
	}

	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		return StatusReport{Status: StatusError, Message: shared.ErrAuthTimeout.Error()}
	}

	return StatusReport{Status: StatusPending, Message: "Waiting for Spotify authentication"}
}

// Credentials returns the OAuth token serialized as JSON.
func (s *SpotifySession) Credentials() (*Credentials, error) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token == nil {
		return nil, fmt.Errorf("%w: spotify token not yet available", shared.ErrAuthPending)
	}

	blob, err := json.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize token: %w", err)
	}

	return &Credentials{Platform: models.PlatformSpotify, Blob: blob}, nil
}

// Close shuts down the callback server. Safe to call more than once.
func (s *SpotifySession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	server := s.server
	s.mu.Unlock()

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}

	return nil
}
