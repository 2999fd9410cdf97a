// Spotify [Source] implementation on the official Web API.
package library

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amestrin/crosstune/internal/models"
	"github.com/amestrin/crosstune/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// CredentialLoader resolves the stored credential blob for a platform.
// Search and playlist creation run after the auth phase has persisted
// credentials, so a loader miss is a usage error.
type CredentialLoader interface {
	Load(platform models.Platform) ([]byte, error)
}

// SpotifySource fetches libraries, searches candidates, and creates
// playlists through the Spotify Web API. Credentials are the OAuth token
// JSON extracted by the auth package.
type SpotifySource struct {
	loader CredentialLoader
}

// NewSpotifySource creates a Spotify library source.
func NewSpotifySource(loader CredentialLoader) *SpotifySource {
	return &SpotifySource{loader: loader}
}

func (s *SpotifySource) Platform() models.Platform {
	return models.PlatformSpotify
}

// client builds an API client from a serialized OAuth token, falling back
// to the stored blob when the caller passes none.
func (s *SpotifySource) client(ctx context.Context, credentials []byte) (*spotify.Client, error) {
	if len(credentials) == 0 {
		if s.loader == nil {
			return nil, fmt.Errorf("%w: no spotify credentials supplied", shared.ErrMissingCredentials)
		}
		blob, err := s.loader.Load(models.PlatformSpotify)
		if err != nil {
			return nil, err
		}
		credentials = blob
	}

	token := new(oauth2.Token)
	if err := json.Unmarshal(credentials, token); err != nil {
		return nil, fmt.Errorf("%w: bad spotify token blob: %v", shared.ErrInvalidCredentials, err)
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	return spotify.New(httpClient), nil
}

// FetchLibrary captures playlists, liked songs, saved albums, and followed
// artists. Liked songs and the first page of each playlist's items feed the
// flattened track list; durations stay in milliseconds (Spotify-native).
func (s *SpotifySource) FetchLibrary(ctx context.Context, credentials []byte) (*models.LibrarySnapshot, error) {
	client, err := s.client(ctx, credentials)
	if err != nil {
		return nil, err
	}

	snapshot := models.NewLibrarySnapshot(models.PlatformSpotify)

	if err := s.fetchLikedSongs(ctx, client, snapshot); err != nil {
		return nil, err
	}
	if err := s.fetchPlaylists(ctx, client, snapshot); err != nil {
		return nil, err
	}
	if err := s.fetchAlbums(ctx, client, snapshot); err != nil {
		return nil, err
	}
	if err := s.fetchArtists(ctx, client, snapshot); err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (s *SpotifySource) fetchLikedSongs(ctx context.Context, client *spotify.Client, snapshot *models.LibrarySnapshot) error {
	page, err := client.CurrentUsersTracks(ctx, spotify.Limit(50))
	if err != nil {
		return fmt.Errorf("%w: saved tracks: %v", shared.ErrCollaborator, err)
	}

	for {
		for _, saved := range page.Tracks {
			track := fromFullTrack(saved.FullTrack)
			snapshot.Tracks[track.SourceID] = track
			snapshot.Items[models.CategoryLikedSongs][track.SourceID] = models.LibraryItem{
				ID:     track.SourceID,
				Name:   track.Title,
				Artist: track.Artist,
				Type:   "liked_song",
			}
		}

		err = client.NextPage(ctx, page)
		if err == spotify.ErrNoMorePages {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: saved tracks pagination: %v", shared.ErrCollaborator, err)
		}
	}

	return nil
}

func (s *SpotifySource) fetchPlaylists(ctx context.Context, client *spotify.Client, snapshot *models.LibrarySnapshot) error {
	page, err := client.CurrentUsersPlaylists(ctx, spotify.Limit(50))
	if err != nil {
		return fmt.Errorf("%w: playlists: %v", shared.ErrCollaborator, err)
	}

	for _, pl := range page.Playlists {
		snapshot.Items[models.CategoryPlaylists][string(pl.ID)] = models.LibraryItem{
			ID:    string(pl.ID),
			Name:  pl.Name,
			Type:  "playlist",
			Count: int(pl.Tracks.Total),
		}

		// One page of items per playlist keeps the fetch bounded; the
		// liked-songs pass already covers the common selection path.
		items, err := client.GetPlaylistItems(ctx, pl.ID, spotify.Limit(100))
		if err != nil {
			continue
		}
		for _, item := range items.Items {
			if item.Track.Track == nil {
				continue
			}
			track := fromFullTrack(*item.Track.Track)
			snapshot.Tracks[track.SourceID] = track
		}
	}

	return nil
}

func (s *SpotifySource) fetchAlbums(ctx context.Context, client *spotify.Client, snapshot *models.LibrarySnapshot) error {
	page, err := client.CurrentUsersAlbums(ctx, spotify.Limit(50))
	if err != nil {
		return fmt.Errorf("%w: saved albums: %v", shared.ErrCollaborator, err)
	}

	for _, saved := range page.Albums {
		artist := ""
		if len(saved.Artists) > 0 {
			artist = saved.Artists[0].Name
		}
		snapshot.Items[models.CategoryAlbums][string(saved.ID)] = models.LibraryItem{
			ID:     string(saved.ID),
			Name:   saved.Name,
			Artist: artist,
			Type:   "album",
		}
	}

	return nil
}

func (s *SpotifySource) fetchArtists(ctx context.Context, client *spotify.Client, snapshot *models.LibrarySnapshot) error {
	page, err := client.CurrentUsersFollowedArtists(ctx)
	if err != nil {
		return fmt.Errorf("%w: followed artists: %v", shared.ErrCollaborator, err)
	}

	for _, artist := range page.Artists {
		snapshot.Items[models.CategoryArtists][string(artist.ID)] = models.LibraryItem{
			ID:   string(artist.ID),
			Name: artist.Name,
			Type: "artist",
		}
	}

	return nil
}

// SearchCandidates runs a track search with the stored token. The result
// order is Spotify's relevance order, which is stable for a given query.
func (s *SpotifySource) SearchCandidates(ctx context.Context, query string, limit int) ([]models.Track, error) {
	client, err := s.client(ctx, nil)
	if err != nil {
		return nil, err
	}

	result, err := client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", shared.ErrCollaborator, err)
	}

	if result.Tracks == nil {
		return nil, nil
	}

	candidates := make([]models.Track, 0, len(result.Tracks.Tracks))
	for _, full := range result.Tracks.Tracks {
		candidates = append(candidates, fromFullTrack(full))
	}

	return candidates, nil
}

// CreatePlaylist creates a private playlist for the current user and adds
// the assembled tracks.
func (s *SpotifySource) CreatePlaylist(ctx context.Context, payload models.PlaylistPayload) (string, error) {
	client, err := s.client(ctx, nil)
	if err != nil {
		return "", err
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: current user: %v", shared.ErrCollaborator, err)
	}

	created, err := client.CreatePlaylistForUser(ctx, user.ID, payload.Name, payload.Description, false, false)
	if err != nil {
		return "", fmt.Errorf("%w: create playlist: %v", shared.ErrCollaborator, err)
	}

	ids := make([]spotify.ID, 0, len(payload.Tracks))
	for _, item := range payload.Tracks {
		if item.ID != "" {
			ids = append(ids, spotify.ID(item.ID))
		}
	}

	for start := 0; start < len(ids); start += 100 {
		end := min(start+100, len(ids))
		if _, err := client.AddTracksToPlaylist(ctx, created.ID, ids[start:end]...); err != nil {
			return "", fmt.Errorf("%w: add tracks: %v", shared.ErrCollaborator, err)
		}
	}

	if url, ok := created.ExternalURLs["spotify"]; ok && url != "" {
		return url, nil
	}
	return fmt.Sprintf("https://open.spotify.com/playlist/%s", created.ID), nil
}

// fromFullTrack converts a Spotify API track into the normalized model.
func fromFullTrack(full spotify.FullTrack) models.Track {
	artists := make([]string, 0, len(full.Artists))
	for _, a := range full.Artists {
		artists = append(artists, a.Name)
	}

	return models.Track{
		Title:    full.Name,
		Artist:   strings.Join(artists, ", "),
		Album:    full.Album.Name,
		Duration: int(full.Duration),
		SourceID: string(full.ID),
		Source:   models.PlatformSpotify,
	}
}
