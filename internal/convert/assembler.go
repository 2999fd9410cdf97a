// package convert assembles accepted match records into a target-platform
// playlist payload.
package convert

import (
	"fmt"

	"github.com/amestrin/crosstune/internal/models"
)

// PlaylistDescription is the fixed description attached to every assembled
// playlist.
const PlaylistDescription = "Playlist converted from another platform"

// trackURLTemplates maps a platform to its public track URL template.
var trackURLTemplates = map[models.Platform]string{
	models.PlatformSpotify: "https://open.spotify.com/track/%s",
	models.PlatformYTMusic: "https://music.youtube.com/watch?v=%s",
}

// Assembler builds playlist payloads from match records. Deterministic
// given identical input order; no side effects.
type Assembler struct{}

// NewAssembler creates an assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble filters records to accepted matches (matched or low_confidence;
// not_found is dropped) and produces the platform-shaped payload. The
// generated name encodes the accepted track count.
func (a *Assembler) Assemble(records []models.MatchRecord, target models.Platform) (models.PlaylistPayload, error) {
	if err := target.Validate(); err != nil {
		return models.PlaylistPayload{}, err
	}

	var items []models.PlaylistItem
	for _, record := range records {
		if !record.Found() {
			continue
		}
		items = append(items, models.PlaylistItem{
			ID:     record.MatchedID,
			Title:  record.MatchedTitle,
			Artist: record.MatchedArtist,
			URL:    TrackURL(target, record.MatchedID),
		})
	}

	return models.PlaylistPayload{
		Name:        fmt.Sprintf("Converted Playlist (%d tracks)", len(items)),
		Description: PlaylistDescription,
		Platform:    target,
		Tracks:      items,
	}, nil
}

// TrackURL renders the public track URL for a platform, or empty when the
// id is empty.
func TrackURL(platform models.Platform, id string) string {
	if id == "" {
		return ""
	}
	template, ok := trackURLTemplates[platform]
	if !ok {
		return ""
	}
	return fmt.Sprintf(template, id)
}
