// package auth implements browser-backed login handles for each platform.
//
// A PlatformSession is an exclusive, closable resource: at most one live
// handle per conversion, released on every exit path. Status is observed by
// non-blocking polling so callers stay responsive while a human completes
// the login in a real browser.
package auth

import (
	"context"
	"time"

	"github.com/amestrin/crosstune/internal/models"
)

// Status reports where an authentication handshake currently stands.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// StatusReport pairs a Status with a human-readable message for display.
type StatusReport struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Credentials is the opaque blob extracted from a completed login.
// The format is owned by the platform adapter that produced it.
type Credentials struct {
	Platform models.Platform `json:"platform"`
	Blob     []byte          `json:"blob"`
}

// PlatformSession is one browser-backed login handle for one platform.
//
// Begin starts the handshake and returns the URL the user must visit.
// Status never blocks and never drives a transition. Credentials is valid
// only once Status reports completed. Close is idempotent and safe to call
// on an already-released handle.
type PlatformSession interface {
	Begin(ctx context.Context) (string, error)
	Status() StatusReport
	Credentials() (*Credentials, error)
	Close() error
}

// Launcher allocates platform sessions. The conversion orchestrator owns
// exactly one live session at a time and closes it before requesting the
// next one.
type Launcher interface {
	NewSession(platform models.Platform) (PlatformSession, error)
}

// CredentialStore persists credential blobs between runs. Persistence is
// opportunistic: a missing or failing store never blocks a conversion.
type CredentialStore interface {
	Save(platform models.Platform, blob []byte) error
	Load(platform models.Platform) ([]byte, error)
}

// DefaultAuthTimeout bounds how long a handshake may stay pending before
// Status degrades to an error.
const DefaultAuthTimeout = 5 * time.Minute
