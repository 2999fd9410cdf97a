// YouTube Music [Source] implementation.
//
// Communicates with the local FastAPI proxy wrapping the ytmusicapi Python
// library, following the proxy's library and playlist endpoints.
package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/amestrin/crosstune/internal/models"
	"github.com/amestrin/crosstune/internal/shared"
)

const defaultProxyURL = "http://localhost:8080"

// ytmusicTrack represents a track/video in proxy responses.
type ytmusicTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []ytmusicArtist `json:"artists"`
	Album       *ytmusicAlbum   `json:"album"`
	DurationSec int             `json:"duration_seconds"`
}

type ytmusicArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type ytmusicAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// ytmusicPlaylist represents a playlist summary from the proxy.
type ytmusicPlaylist struct {
	ID         string `json:"playlistId"`
	Title      string `json:"title"`
	TrackCount int    `json:"count"`
}

// YTMusicSource fetches libraries, searches candidates, and creates
// playlists through the proxy. Credentials are the captured request-header
// blob extracted by the auth package; the blob is uploaded to the proxy
// before authenticated calls.
type YTMusicSource struct {
	baseURL    string
	httpClient *http.Client
	loader     CredentialLoader
}

// NewYTMusicSource creates a YouTube Music source against the proxy URL.
func NewYTMusicSource(baseURL string, client *http.Client, loader CredentialLoader) *YTMusicSource {
	if baseURL == "" {
		baseURL = defaultProxyURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &YTMusicSource{baseURL: baseURL, httpClient: client, loader: loader}
}

func (y *YTMusicSource) Platform() models.Platform {
	return models.PlatformYTMusic
}

// ensureAuth uploads the credential blob so the proxy can authenticate
// subsequent library calls.
func (y *YTMusicSource) ensureAuth(ctx context.Context, credentials []byte) error {
	if len(credentials) == 0 {
		if y.loader == nil {
			return fmt.Errorf("%w: no ytmusic credentials supplied", shared.ErrMissingCredentials)
		}
		blob, err := y.loader.Load(models.PlatformYTMusic)
		if err != nil {
			return err
		}
		credentials = blob
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.baseURL+"/auth/upload", bytes.NewReader(credentials))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: auth upload: %v", shared.ErrCollaborator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: auth upload status %d", shared.ErrAuthFailed, resp.StatusCode)
	}

	return nil
}

// FetchLibrary captures playlists, liked songs, albums, and followed
// artists from the proxy. Durations stay in seconds (YouTube Music native).
func (y *YTMusicSource) FetchLibrary(ctx context.Context, credentials []byte) (*models.LibrarySnapshot, error) {
	if err := y.ensureAuth(ctx, credentials); err != nil {
		return nil, err
	}

	snapshot := models.NewLibrarySnapshot(models.PlatformYTMusic)

	var liked struct {
		Tracks []ytmusicTrack `json:"tracks"`
	}
	if err := y.doRequest(ctx, http.MethodGet, "/api/library/liked-songs", nil, &liked); err != nil {
		return nil, err
	}
	for _, t := range liked.Tracks {
		track := fromYTMusicTrack(t)
		snapshot.Tracks[track.SourceID] = track
		snapshot.Items[models.CategoryLikedSongs][track.SourceID] = models.LibraryItem{
			ID:     track.SourceID,
			Name:   track.Title,
			Artist: track.Artist,
			Type:   "liked_song",
		}
	}

	var playlists []ytmusicPlaylist
	if err := y.doRequest(ctx, http.MethodGet, "/api/library/playlists", nil, &playlists); err != nil {
		return nil, err
	}
	for _, pl := range playlists {
		snapshot.Items[models.CategoryPlaylists][pl.ID] = models.LibraryItem{
			ID:    pl.ID,
			Name:  pl.Title,
			Type:  "playlist",
			Count: pl.TrackCount,
		}

		var tracks []ytmusicTrack
		if err := y.doRequest(ctx, http.MethodGet, "/api/playlists/"+url.PathEscape(pl.ID)+"/tracks", nil, &tracks); err != nil {
			continue
		}
		for _, t := range tracks {
			track := fromYTMusicTrack(t)
			snapshot.Tracks[track.SourceID] = track
		}
	}

	var albums []struct {
		ID      string          `json:"browseId"`
		Title   string          `json:"title"`
		Artists []ytmusicArtist `json:"artists"`
	}
	if err := y.doRequest(ctx, http.MethodGet, "/api/library/albums", nil, &albums); err != nil {
		return nil, err
	}
	for _, al := range albums {
		artist := ""
		if len(al.Artists) > 0 {
			artist = al.Artists[0].Name
		}
		snapshot.Items[models.CategoryAlbums][al.ID] = models.LibraryItem{
			ID:     al.ID,
			Name:   al.Title,
			Artist: artist,
			Type:   "album",
		}
	}

	var artists []ytmusicArtist
	if err := y.doRequest(ctx, http.MethodGet, "/api/library/artists", nil, &artists); err != nil {
		return nil, err
	}
	for _, ar := range artists {
		snapshot.Items[models.CategoryArtists][ar.ID] = models.LibraryItem{
			ID:   ar.ID,
			Name: ar.Name,
			Type: "artist",
		}
	}

	return snapshot, nil
}

// SearchCandidates searches for songs on YouTube Music. The proxy returns
// results in its ranking order, which is stable for a given query.
func (y *YTMusicSource) SearchCandidates(ctx context.Context, query string, limit int) ([]models.Track, error) {
	endpoint := fmt.Sprintf("/api/search?q=%s&filter=songs&limit=%d", url.QueryEscape(query), limit)

	var results []ytmusicTrack
	if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &results); err != nil {
		return nil, err
	}

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	candidates := make([]models.Track, 0, len(results))
	for _, t := range results {
		candidates = append(candidates, fromYTMusicTrack(t))
	}

	return candidates, nil
}

// CreatePlaylist creates a playlist on YouTube Music with the assembled
// track ids and returns its URL.
func (y *YTMusicSource) CreatePlaylist(ctx context.Context, payload models.PlaylistPayload) (string, error) {
	if err := y.ensureAuth(ctx, nil); err != nil {
		return "", err
	}

	videoIDs := make([]string, 0, len(payload.Tracks))
	for _, item := range payload.Tracks {
		if item.ID != "" {
			videoIDs = append(videoIDs, item.ID)
		}
	}

	body := map[string]any{
		"title":       payload.Name,
		"description": payload.Description,
		"privacy":     "PRIVATE",
		"video_ids":   videoIDs,
	}

	var created struct {
		ID  string `json:"playlistId"`
		URL string `json:"url"`
	}
	if err := y.doRequest(ctx, http.MethodPost, "/api/playlists", body, &created); err != nil {
		return "", err
	}

	if created.URL != "" {
		return created.URL, nil
	}
	return fmt.Sprintf("https://music.youtube.com/playlist?list=%s", created.ID), nil
}

func (y *YTMusicSource) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, y.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCollaborator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.Detail != "" {
			return fmt.Errorf("%w: proxy error (status %d): %s", shared.ErrCollaborator, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: proxy error: status %d", shared.ErrCollaborator, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// fromYTMusicTrack converts a proxy track into the normalized model.
func fromYTMusicTrack(t ytmusicTrack) models.Track {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}

	album := ""
	if t.Album != nil {
		album = t.Album.Name
	}

	return models.Track{
		Title:    t.Title,
		Artist:   strings.Join(names, ", "),
		Album:    album,
		Duration: t.DurationSec,
		SourceID: t.VideoID,
		Source:   models.PlatformYTMusic,
	}
}
