// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/amestrin/crosstune/internal/auth"
	"github.com/amestrin/crosstune/internal/models"
)

// MemoryStore is an in-memory credential store implementing both
// [auth.CredentialStore] and the library loader interface.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[models.Platform][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[models.Platform][]byte)}
}

func (m *MemoryStore) Save(platform models.Platform, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[platform] = blob
	return nil
}

func (m *MemoryStore) Load(platform models.Platform) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[platform]
	if !ok {
		return nil, fmt.Errorf("no credentials for %s", platform)
	}
	return blob, nil
}

// StubPlatformSession is a scriptable [auth.PlatformSession].
type StubPlatformSession struct {
	Platform models.Platform
	URL      string
	Report   auth.StatusReport
	Blob     []byte
	BeginErr error
	CredsErr error

	mu     sync.Mutex
	closed int
}

func (s *StubPlatformSession) Begin(ctx context.Context) (string, error) {
	if s.BeginErr != nil {
		return "", s.BeginErr
	}
	return s.URL, nil
}

func (s *StubPlatformSession) Status() auth.StatusReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Report
}

// SetStatus updates the report the stub hands back from Status.
func (s *StubPlatformSession) SetStatus(status auth.Status, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Report = auth.StatusReport{Status: status, Message: message}
}

func (s *StubPlatformSession) Credentials() (*auth.Credentials, error) {
	if s.CredsErr != nil {
		return nil, s.CredsErr
	}
	return &auth.Credentials{Platform: s.Platform, Blob: s.Blob}, nil
}

func (s *StubPlatformSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// CloseCount reports how many times Close was called.
func (s *StubPlatformSession) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// StubLauncher hands out pre-built sessions per platform.
type StubLauncher struct {
	Sessions map[models.Platform]*StubPlatformSession
	Err      error
}

func (l *StubLauncher) NewSession(platform models.Platform) (auth.PlatformSession, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	s, ok := l.Sessions[platform]
	if !ok {
		return nil, fmt.Errorf("no stub session for %s", platform)
	}
	return s, nil
}

// StubLibrary is a scriptable library collaborator for session tests.
type StubLibrary struct {
	Snapshot    *models.LibrarySnapshot
	FetchErr    error
	PlaylistURL string
	CreateErr   error

	mu          sync.Mutex
	LastPayload models.PlaylistPayload
	FetchCalls  int
}

func (l *StubLibrary) FetchLibrary(ctx context.Context, platform models.Platform, credentials []byte) (*models.LibrarySnapshot, error) {
	l.mu.Lock()
	l.FetchCalls++
	l.mu.Unlock()
	if l.FetchErr != nil {
		return nil, l.FetchErr
	}
	return l.Snapshot, nil
}

func (l *StubLibrary) CreatePlaylist(ctx context.Context, platform models.Platform, payload models.PlaylistPayload) (string, error) {
	l.mu.Lock()
	l.LastPayload = payload
	l.mu.Unlock()
	if l.CreateErr != nil {
		return "", l.CreateErr
	}
	return l.PlaylistURL, nil
}

// StubCandidates serves fixed candidate lists keyed by query, implementing
// the match engine's candidate source.
type StubCandidates struct {
	ByQuery map[string][]models.Track
	Default []models.Track
	Err     error
}

func (s *StubCandidates) SearchCandidates(ctx context.Context, platform models.Platform, query string, limit int) ([]models.Track, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if tracks, ok := s.ByQuery[query]; ok {
		return tracks, nil
	}
	return s.Default, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
