package auth

import (
	"net/http"
	"time"

	"github.com/amestrin/crosstune/internal/models"
	"github.com/amestrin/crosstune/internal/shared"
	"github.com/charmbracelet/log"
)

// SessionLauncher builds platform sessions from application config and
// persists extracted credentials opportunistically.
type SessionLauncher struct {
	config  *shared.Config
	store   CredentialStore
	client  *http.Client
	logger  *log.Logger
	timeout time.Duration
}

// NewSessionLauncher creates a launcher. The store and logger are optional.
func NewSessionLauncher(config *shared.Config, store CredentialStore, logger *log.Logger) *SessionLauncher {
	if config == nil {
		config = shared.DefaultConfig()
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SessionLauncher{
		config:  config,
		store:   store,
		client:  http.DefaultClient,
		logger:  logger,
		timeout: DefaultAuthTimeout,
	}
}

// NewSession allocates a fresh PlatformSession for the given platform.
func (l *SessionLauncher) NewSession(platform models.Platform) (PlatformSession, error) {
	if err := platform.Validate(); err != nil {
		return nil, err
	}

	var session PlatformSession
	switch platform {
	case models.PlatformSpotify:
		s, err := NewSpotifySession(l.config.Credentials.Spotify, l.timeout)
		if err != nil {
			return nil, err
		}
		session = s
	case models.PlatformYTMusic:
		session = NewYTMusicSession(l.config.Credentials.YTMusic.ProxyURL, l.client, l.timeout)
	}

	if l.store == nil {
		return session, nil
	}

	return &persistingSession{PlatformSession: session, store: l.store, logger: l.logger}, nil
}

// persistingSession saves extracted credentials to the store. Persistence
// failures are logged and swallowed; they never fail the handshake.
type persistingSession struct {
	PlatformSession
	store  CredentialStore
	logger *log.Logger
	saved  bool
}

func (p *persistingSession) Credentials() (*Credentials, error) {
	creds, err := p.PlatformSession.Credentials()
	if err != nil {
		return nil, err
	}

	if !p.saved {
		if err := p.store.Save(creds.Platform, creds.Blob); err != nil {
			p.logger.Warn("failed to persist credentials", "platform", creds.Platform, "err", err)
		} else {
			p.saved = true
		}
	}

	return creds, nil
}
