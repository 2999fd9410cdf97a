package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/amestrin/crosstune/internal/models"
	"github.com/amestrin/crosstune/internal/shared"
)

// YTMusicSession implements PlatformSession against the local ytmusicapi
// proxy. The proxy drives the actual Google sign-in in the user's browser
// and exposes the resulting request headers as the credential blob.
type YTMusicSession struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	deadline   time.Time

	mu     sync.Mutex
	closed bool
	blob   []byte
}

// NewYTMusicSession creates a proxy-backed session.
func NewYTMusicSession(proxyURL string, client *http.Client, timeout time.Duration) *YTMusicSession {
	if proxyURL == "" {
		proxyURL = "http://localhost:8080"
	}
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultAuthTimeout
	}

	return &YTMusicSession{
		baseURL:    proxyURL,
		httpClient: client,
		timeout:    timeout,
	}
}

// Begin asks the proxy to start a sign-in and returns the login URL the
// user must open.
func (y *YTMusicSession) Begin(ctx context.Context) (string, error) {
	var resp struct {
		LoginURL string `json:"login_url"`
	}

	if err := y.doJSON(ctx, http.MethodPost, "/auth/start", &resp); err != nil {
		return "", fmt.Errorf("%w: proxy auth start: %v", shared.ErrAuthFailed, err)
	}

	if resp.LoginURL == "" {
		return "", fmt.Errorf("%w: proxy returned no login URL", shared.ErrAuthFailed)
	}

	y.deadline = time.Now().Add(y.timeout)
	return resp.LoginURL, nil
}

// Status polls the proxy's auth state. Proxy errors surface as an error
// status rather than a pending one so the orchestrator can fail the phase.
func (y *YTMusicSession) Status() StatusReport {
	y.mu.Lock()
	if y.closed {
		y.mu.Unlock()
		return StatusReport{Status: StatusError, Message: "session closed"}
	}
	if y.blob != nil {
		y.mu.Unlock()
		return StatusReport{Status: StatusCompleted, Message: "YouTube Music authentication successful"}
	}
	y.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}

	if err := y.doJSON(ctx, http.MethodGet, "/auth/status", &resp); err != nil {
		return StatusReport{Status: StatusError, Message: err.Error()}
	}

	switch resp.Status {
	case "completed":
		return StatusReport{Status: StatusCompleted, Message: resp.Message}
	case "error":
		return StatusReport{Status: StatusError, Message: resp.Message}
	}

	if !y.deadline.IsZero() && time.Now().After(y.deadline) {
		return StatusReport{Status: StatusError, Message: shared.ErrAuthTimeout.Error()}
	}

	return StatusReport{Status: StatusPending, Message: "Waiting for YouTube Music authentication"}
}

// Credentials fetches the captured auth headers from the proxy.
func (y *YTMusicSession) Credentials() (*Credentials, error) {
	y.mu.Lock()
	if y.blob != nil {
		blob := y.blob
		y.mu.Unlock()
		return &Credentials{Platform: models.PlatformYTMusic, Blob: blob}, nil
	}
	y.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+"/auth/headers", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCollaborator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: proxy status %d", shared.ErrAuthFailed, resp.StatusCode)
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read auth headers: %w", err)
	}

	y.mu.Lock()
	y.blob = blob
	y.mu.Unlock()

	return &Credentials{Platform: models.PlatformYTMusic, Blob: blob}, nil
}

// Close tells the proxy to abandon the sign-in flow. Safe to call more
// than once; a dead proxy at close time is not an error worth surfacing.
func (y *YTMusicSession) Close() error {
	y.mu.Lock()
	if y.closed {
		y.mu.Unlock()
		return nil
	}
	y.closed = true
	y.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := y.doJSON(ctx, http.MethodPost, "/auth/close", nil); err != nil {
		return nil
	}

	return nil
}

func (y *YTMusicSession) doJSON(ctx context.Context, method, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, y.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("proxy error: status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
