// package models defines the data model for the library conversion service
package models

import (
	"errors"
	"fmt"
)

// ErrUnsupportedPlatform marks a platform value outside the supported set.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Platform identifies one of the supported streaming platforms.
type Platform string

const (
	PlatformSpotify Platform = "spotify"
	PlatformYTMusic Platform = "ytmusic"
)

// Platforms lists every supported platform in a stable order.
var Platforms = []Platform{PlatformSpotify, PlatformYTMusic}

// Validate checks that the platform is one of the supported values.
func (p Platform) Validate() error {
	switch p {
	case PlatformSpotify, PlatformYTMusic:
		return nil
	default:
		return fmt.Errorf("%w %q", ErrUnsupportedPlatform, string(p))
	}
}

func (p Platform) String() string {
	return string(p)
}

// DisplayName returns a human-readable platform name for UI output.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformSpotify:
		return "Spotify"
	case PlatformYTMusic:
		return "YouTube Music"
	default:
		return string(p)
	}
}

// Track represents a normalized track from any platform.
//
// Duration stays in the platform-native unit (milliseconds on Spotify,
// seconds on YouTube Music) and is never converted between platforms.
type Track struct {
	Title    string   `json:"title"`
	Artist   string   `json:"artist"`
	Album    string   `json:"album,omitempty"`
	Duration int      `json:"duration,omitempty"`
	SourceID string   `json:"id"`
	Source   Platform `json:"source_platform"`
}

// MatchStatus classifies the outcome of a match attempt.
type MatchStatus string

const (
	StatusMatched       MatchStatus = "matched"
	StatusLowConfidence MatchStatus = "low_confidence"
	StatusNotFound      MatchStatus = "not_found"
)

// MatchRecord is the outcome of matching one source track against the
// target platform. Empty matched fields mean no match was found.
type MatchRecord struct {
	OriginalID     string      `json:"original_id"`
	OriginalTitle  string      `json:"original_title"`
	OriginalArtist string      `json:"original_artist"`
	MatchedID      string      `json:"matched_id"`
	MatchedTitle   string      `json:"matched_title"`
	MatchedArtist  string      `json:"matched_artist"`
	Confidence     float64     `json:"confidence"`
	Status         MatchStatus `json:"status"`
}

// Found reports whether the record carries a usable match.
func (m MatchRecord) Found() bool {
	return m.Status != StatusNotFound
}

// Library categories as stored in a LibrarySnapshot.
const (
	CategoryPlaylists  = "playlists"
	CategoryLikedSongs = "liked_songs"
	CategoryAlbums     = "albums"
	CategoryArtists    = "artists"
	CategoryTracks     = "tracks"
)

// LibraryItem is a generic entry in a snapshot category (playlist, album,
// artist). Tracks carry richer fields and live in the tracks category.
type LibraryItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Artist string `json:"artist,omitempty"`
	Type   string `json:"type"`
	Count  int    `json:"count,omitempty"`
}

// LibrarySnapshot is an immutable capture of a user's library on one
// platform. Tracks holds the flattened track list keyed by source id; the
// remaining categories hold LibraryItems keyed by their platform ids.
type LibrarySnapshot struct {
	Platform Platform                          `json:"platform"`
	Items    map[string]map[string]LibraryItem `json:"items"`
	Tracks   map[string]Track                  `json:"tracks"`
}

// NewLibrarySnapshot creates an empty snapshot for the given platform with
// all categories initialized.
func NewLibrarySnapshot(platform Platform) *LibrarySnapshot {
	return &LibrarySnapshot{
		Platform: platform,
		Items: map[string]map[string]LibraryItem{
			CategoryPlaylists:  {},
			CategoryLikedSongs: {},
			CategoryAlbums:     {},
			CategoryArtists:    {},
		},
		Tracks: map[string]Track{},
	}
}

// TrackByID resolves a track from the flattened track list.
func (s *LibrarySnapshot) TrackByID(id string) (Track, bool) {
	t, ok := s.Tracks[id]
	return t, ok
}

// TrackCount returns the number of flattened tracks in the snapshot.
func (s *LibrarySnapshot) TrackCount() int {
	return len(s.Tracks)
}

// PlaylistItem is one track entry in an assembled playlist payload.
type PlaylistItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	URL    string `json:"url"`
}

// PlaylistPayload is the platform-shaped playlist produced by the assembler
// and handed to the target platform's playlist sink.
type PlaylistPayload struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Platform    Platform       `json:"platform"`
	Tracks      []PlaylistItem `json:"tracks"`
}
