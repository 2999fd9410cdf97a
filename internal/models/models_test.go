package models

import (
	"errors"
	"testing"
)

func TestPlatformValidate(t *testing.T) {
	for _, platform := range Platforms {
		if err := platform.Validate(); err != nil {
			t.Errorf("%s should validate, got %v", platform, err)
		}
	}

	if err := Platform("tidal").Validate(); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("expected ErrUnsupportedPlatform, got %v", err)
	}
	if err := Platform("").Validate(); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("expected ErrUnsupportedPlatform for empty platform, got %v", err)
	}
}

func TestPlatformDisplayName(t *testing.T) {
	cases := []struct {
		platform Platform
		want     string
	}{
		{PlatformSpotify, "Spotify"},
		{PlatformYTMusic, "YouTube Music"},
		{Platform("tidal"), "tidal"},
	}

	for _, tc := range cases {
		if got := tc.platform.DisplayName(); got != tc.want {
			t.Errorf("DisplayName(%s) = %q, want %q", tc.platform, got, tc.want)
		}
	}
}

func TestMatchRecordFound(t *testing.T) {
	cases := []struct {
		status MatchStatus
		want   bool
	}{
		{StatusMatched, true},
		{StatusLowConfidence, true},
		{StatusNotFound, false},
	}

	for _, tc := range cases {
		record := MatchRecord{Status: tc.status}
		if got := record.Found(); got != tc.want {
			t.Errorf("Found() with %s = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestLibrarySnapshot(t *testing.T) {
	snapshot := NewLibrarySnapshot(PlatformSpotify)

	for _, category := range []string{CategoryPlaylists, CategoryLikedSongs, CategoryAlbums, CategoryArtists} {
		if snapshot.Items[category] == nil {
			t.Errorf("category %s not initialized", category)
		}
	}

	if snapshot.TrackCount() != 0 {
		t.Errorf("expected empty snapshot, got %d tracks", snapshot.TrackCount())
	}

	snapshot.Tracks["sp1"] = Track{SourceID: "sp1", Title: "Karma Police"}

	track, ok := snapshot.TrackByID("sp1")
	if !ok || track.Title != "Karma Police" {
		t.Errorf("TrackByID failed: %+v %v", track, ok)
	}
	if _, ok := snapshot.TrackByID("missing"); ok {
		t.Error("expected miss for unknown id")
	}
	if snapshot.TrackCount() != 1 {
		t.Errorf("expected 1 track, got %d", snapshot.TrackCount())
	}
}
