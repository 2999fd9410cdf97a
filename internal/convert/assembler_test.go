package convert

import (
	"strings"
	"testing"

	"github.com/amestrin/crosstune/internal/models"
)

func record(id, title, artist string, status models.MatchStatus) models.MatchRecord {
	r := models.MatchRecord{
		OriginalID:     "orig-" + id,
		OriginalTitle:  title,
		OriginalArtist: artist,
		Status:         status,
	}
	if status != models.StatusNotFound {
		r.MatchedID = id
		r.MatchedTitle = title
		r.MatchedArtist = artist
		r.Confidence = 90
	}
	return r
}

func TestAssemble(t *testing.T) {
	assembler := NewAssembler()

	t.Run("keeps matched and low_confidence, drops not_found", func(t *testing.T) {
		records := []models.MatchRecord{
			record("yt1", "Hey Jude", "The Beatles", models.StatusMatched),
			record("yt2", "Yesterday", "The Beatles", models.StatusLowConfidence),
			record("", "Let It Be", "The Beatles", models.StatusNotFound),
		}

		payload, err := assembler.Assemble(records, models.PlatformYTMusic)
		if err != nil {
			t.Fatalf("Assemble failed: %v", err)
		}

		if len(payload.Tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(payload.Tracks))
		}
		if payload.Tracks[0].ID != "yt1" || payload.Tracks[1].ID != "yt2" {
			t.Errorf("record order must be preserved, got %+v", payload.Tracks)
		}
	})

	t.Run("name encodes the accepted count", func(t *testing.T) {
		records := []models.MatchRecord{
			record("yt1", "Hey Jude", "The Beatles", models.StatusMatched),
			record("", "Let It Be", "The Beatles", models.StatusNotFound),
		}

		payload, err := assembler.Assemble(records, models.PlatformYTMusic)
		if err != nil {
			t.Fatalf("Assemble failed: %v", err)
		}

		if payload.Name != "Converted Playlist (1 tracks)" {
			t.Errorf("unexpected name %q", payload.Name)
		}
		if payload.Description != PlaylistDescription {
			t.Errorf("unexpected description %q", payload.Description)
		}
	})

	t.Run("track URLs follow the target platform", func(t *testing.T) {
		records := []models.MatchRecord{
			record("abc123", "Hey Jude", "The Beatles", models.StatusMatched),
		}

		yt, err := assembler.Assemble(records, models.PlatformYTMusic)
		if err != nil {
			t.Fatalf("Assemble failed: %v", err)
		}
		if !strings.Contains(yt.Tracks[0].URL, "music.youtube.com/watch?v=abc123") {
			t.Errorf("unexpected ytmusic URL %q", yt.Tracks[0].URL)
		}

		sp, err := assembler.Assemble(records, models.PlatformSpotify)
		if err != nil {
			t.Fatalf("Assemble failed: %v", err)
		}
		if !strings.Contains(sp.Tracks[0].URL, "open.spotify.com/track/abc123") {
			t.Errorf("unexpected spotify URL %q", sp.Tracks[0].URL)
		}
	})

	t.Run("empty input yields an empty payload", func(t *testing.T) {
		payload, err := assembler.Assemble(nil, models.PlatformYTMusic)
		if err != nil {
			t.Fatalf("Assemble failed: %v", err)
		}
		if len(payload.Tracks) != 0 {
			t.Errorf("expected no tracks, got %d", len(payload.Tracks))
		}
		if payload.Name != "Converted Playlist (0 tracks)" {
			t.Errorf("unexpected name %q", payload.Name)
		}
	})

	t.Run("invalid platform", func(t *testing.T) {
		if _, err := assembler.Assemble(nil, "tidal"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})
}

func TestTrackURL(t *testing.T) {
	if got := TrackURL(models.PlatformSpotify, ""); got != "" {
		t.Errorf("empty id must yield empty URL, got %q", got)
	}
	if got := TrackURL("tidal", "x"); got != "" {
		t.Errorf("unknown platform must yield empty URL, got %q", got)
	}
}
