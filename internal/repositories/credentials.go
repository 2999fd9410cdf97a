// package repositories implements persistence for platform credentials.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/amestrin/crosstune/internal/models"
	"github.com/amestrin/crosstune/internal/shared"
)

const credentialSchema = `
CREATE TABLE IF NOT EXISTS credentials (
    platform   TEXT PRIMARY KEY,
    blob       BLOB NOT NULL,
    updated_at TIMESTAMP NOT NULL
);`

// CredentialRepository stores one credential blob per platform.
//
// Blobs are opaque to the repository: the platform adapters own the format
// (OAuth token JSON for Spotify, captured request headers for YouTube Music).
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a repository backed by the given database.
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Migrate creates the credentials table if it does not exist.
func (r *CredentialRepository) Migrate() error {
	if _, err := r.db.Exec(credentialSchema); err != nil {
		return fmt.Errorf("failed to create credentials table: %w", err)
	}
	return nil
}

// Save upserts the credential blob for a platform.
func (r *CredentialRepository) Save(platform models.Platform, blob []byte) error {
	if err := platform.Validate(); err != nil {
		return err
	}
	if len(blob) == 0 {
		return fmt.Errorf("%w: empty credential blob", shared.ErrInvalidInput)
	}

	query := `INSERT INTO credentials (platform, blob, updated_at) VALUES (?, ?, ?)
	          ON CONFLICT(platform) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`

	if _, err := r.db.Exec(query, string(platform), blob, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	return nil
}

// Load returns the stored blob for a platform, or ErrMissingCredentials if
// none has been saved yet.
func (r *CredentialRepository) Load(platform models.Platform) ([]byte, error) {
	if err := platform.Validate(); err != nil {
		return nil, err
	}

	var blob []byte
	err := r.db.QueryRow(`SELECT blob FROM credentials WHERE platform = ?`, string(platform)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no stored credentials for %s", shared.ErrMissingCredentials, platform)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	return blob, nil
}

// Delete removes the stored blob for a platform. Deleting an absent row is
// not an error.
func (r *CredentialRepository) Delete(platform models.Platform) error {
	if err := platform.Validate(); err != nil {
		return err
	}

	if _, err := r.db.Exec(`DELETE FROM credentials WHERE platform = ?`, string(platform)); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}

	return nil
}
