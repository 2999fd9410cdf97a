// package library implements the library collaborators for each platform:
// snapshot fetching, candidate search, and playlist creation.
package library

import (
	"context"
	"fmt"

	"github.com/amestrin/crosstune/internal/models"
	"github.com/amestrin/crosstune/internal/shared"
	"golang.org/x/time/rate"
)

// Source is one platform's library backend.
//
// SearchCandidates returns a finite, ordered candidate list; the ordering is
// stable for a given query so match selection stays deterministic.
type Source interface {
	Platform() models.Platform
	FetchLibrary(ctx context.Context, credentials []byte) (*models.LibrarySnapshot, error)
	SearchCandidates(ctx context.Context, query string, limit int) ([]models.Track, error)
	CreatePlaylist(ctx context.Context, payload models.PlaylistPayload) (string, error)
}

// Directory routes library operations to the Source registered for a
// platform and rate-limits candidate searches across all of them.
type Directory struct {
	sources map[models.Platform]Source
	limiter *rate.Limiter
}

// NewDirectory creates a directory over the given sources. Search calls are
// limited to searchRate requests per second (defaults to 5).
func NewDirectory(searchRate float64, sources ...Source) *Directory {
	if searchRate <= 0 {
		searchRate = 5
	}

	d := &Directory{
		sources: make(map[models.Platform]Source, len(sources)),
		limiter: rate.NewLimiter(rate.Limit(searchRate), 1),
	}
	for _, s := range sources {
		d.sources[s.Platform()] = s
	}

	return d
}

func (d *Directory) source(platform models.Platform) (Source, error) {
	if err := platform.Validate(); err != nil {
		return nil, err
	}
	s, ok := d.sources[platform]
	if !ok {
		return nil, fmt.Errorf("%w: no library source for %s", shared.ErrServiceUnavailable, platform)
	}
	return s, nil
}

// FetchLibrary produces a normalized snapshot of the user's library.
func (d *Directory) FetchLibrary(ctx context.Context, platform models.Platform, credentials []byte) (*models.LibrarySnapshot, error) {
	s, err := d.source(platform)
	if err != nil {
		return nil, err
	}
	return s.FetchLibrary(ctx, credentials)
}

// SearchCandidates runs a rate-limited candidate search on the platform.
func (d *Directory) SearchCandidates(ctx context.Context, platform models.Platform, query string, limit int) ([]models.Track, error) {
	s, err := d.source(platform)
	if err != nil {
		return nil, err
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCollaborator, err)
	}

	return s.SearchCandidates(ctx, query, limit)
}

// CreatePlaylist creates the assembled playlist on the platform and returns
// its URL.
func (d *Directory) CreatePlaylist(ctx context.Context, platform models.Platform, payload models.PlaylistPayload) (string, error) {
	s, err := d.source(platform)
	if err != nil {
		return "", err
	}
	return s.CreatePlaylist(ctx, payload)
}
