package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Server.Port != 8900 {
		t.Errorf("expected default port 8900, got %d", config.Server.Port)
	}
	if config.Matching.ConfidenceThreshold != 70.0 {
		t.Errorf("expected threshold 70, got %v", config.Matching.ConfidenceThreshold)
	}
	if config.Matching.CandidateLimit != 5 {
		t.Errorf("expected candidate limit 5, got %d", config.Matching.CandidateLimit)
	}
	if config.Credentials.YTMusic.ProxyURL == "" {
		t.Error("expected a default proxy URL")
	}
	if config.Database.Path == "" {
		t.Error("expected a default database path")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `
[credentials.spotify]
client_id = "abc"
client_secret = "def"
redirect_uri = "http://127.0.0.1:9999/callback"

[database]
path = "test.db"

[server]
host = "0.0.0.0"
port = 9100

[matching]
confidence_threshold = 80.0
candidate_limit = 3
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if config.Credentials.Spotify.ClientID != "abc" {
			t.Errorf("unexpected client id %q", config.Credentials.Spotify.ClientID)
		}
		if config.Server.Port != 9100 {
			t.Errorf("unexpected port %d", config.Server.Port)
		}
		if config.Matching.ConfidenceThreshold != 80.0 {
			t.Errorf("unexpected threshold %v", config.Matching.ConfidenceThreshold)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		os.WriteFile(path, []byte("not [valid toml"), 0644)

		if _, err := LoadConfig(path); err == nil {
			t.Error("expected error for malformed file")
		}
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("SPOTIFY_CLIENT_ID", "env-client")
		t.Setenv("CROSSTUNE_PORT", "9999")

		config := DefaultConfig()
		if config.Credentials.Spotify.ClientID != "env-client" {
			t.Errorf("expected env client id, got %q", config.Credentials.Spotify.ClientID)
		}
		if config.Server.Port != 9999 {
			t.Errorf("expected env port, got %d", config.Server.Port)
		}
	})
}

func TestCreateConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := CreateConfigFile(path); err != nil {
		t.Fatalf("CreateConfigFile failed: %v", err)
	}
	if _, err := LoadConfig(path); err != nil {
		t.Fatalf("created config does not load: %v", err)
	}

	// A second create must not clobber the existing file.
	if err := CreateConfigFile(path); err == nil {
		t.Error("expected error when config already exists")
	}
}
