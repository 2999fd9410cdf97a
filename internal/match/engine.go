// package match implements the track-matching and confidence engine.
//
// Matching is deterministic and explainable: each candidate gets a title
// score and an artist score (case-insensitive normalized similarity,
// 0-100), the combined score is their arithmetic mean, and the candidate
// with the strictly highest combined score wins. Ties keep the first
// candidate in the source's stable ordering.
package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/amestrin/crosstune/internal/models"
)

// DefaultConfidenceThreshold is the minimum combined score for a candidate
// to be accepted as matched.
const DefaultConfidenceThreshold = 70.0

// DefaultCandidateLimit bounds how many candidates are requested per track.
const DefaultCandidateLimit = 5

// CandidateSource provides ordered candidate tracks from a target platform.
// The sequence is finite and its ordering stable for a given query.
type CandidateSource interface {
	SearchCandidates(ctx context.Context, platform models.Platform, query string, limit int) ([]models.Track, error)
}

// Engine matches source tracks against target-platform candidates.
// Stateless apart from the fixed threshold and candidate limit.
type Engine struct {
	source    CandidateSource
	threshold float64
	limit     int
	metric    *metrics.Levenshtein
}

// Option configures an Engine.
type Option func(*Engine)

// WithThreshold overrides the confidence threshold.
func WithThreshold(threshold float64) Option {
	return func(e *Engine) {
		if threshold > 0 {
			e.threshold = threshold
		}
	}
}

// WithCandidateLimit overrides the per-track candidate limit.
func WithCandidateLimit(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.limit = limit
		}
	}
}

// NewEngine creates a match engine over the given candidate source.
func NewEngine(source CandidateSource, opts ...Option) *Engine {
	e := &Engine{
		source:    source,
		threshold: DefaultConfidenceThreshold,
		limit:     DefaultCandidateLimit,
		metric:    metrics.NewLevenshtein(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Threshold returns the configured confidence threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Similarity computes the case-insensitive normalized similarity between
// two strings on a 0-100 scale.
func (e *Engine) Similarity(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	return strutil.Similarity(a, b, e.metric) * 100
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// BuildQuery constructs the candidate search query for a track.
func BuildQuery(title, artist string) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", title, artist))
}

// Match finds the best target-platform candidate for a source track.
//
// Candidates below the threshold are rejected: the record comes back as
// not_found with empty matched fields rather than a low-quality guess.
// A candidate-source failure is treated as zero candidates, never as a
// crash, so one platform hiccup cannot abort a batch.
func (e *Engine) Match(ctx context.Context, track models.Track, target models.Platform) models.MatchRecord {
	record := models.MatchRecord{
		OriginalID:     track.SourceID,
		OriginalTitle:  track.Title,
		OriginalArtist: track.Artist,
		Status:         models.StatusNotFound,
	}

	best, score, ok := e.bestCandidate(ctx, track.Title, track.Artist, target)
	if !ok || score < e.threshold {
		return record
	}

	record.MatchedID = best.SourceID
	record.MatchedTitle = best.Title
	record.MatchedArtist = best.Artist
	record.Confidence = score
	record.Status = e.Classify(score)
	return record
}

// Rematch re-runs matching with user-supplied title and artist, keeping the
// original track identity. Unlike Match it bypasses the threshold gate so
// the caller can display a sub-threshold pick; Classify labels it
// low_confidence.
func (e *Engine) Rematch(ctx context.Context, originalID, title, artist string, target models.Platform) models.MatchRecord {
	record := models.MatchRecord{
		OriginalID:     originalID,
		OriginalTitle:  title,
		OriginalArtist: artist,
		Status:         models.StatusNotFound,
	}

	best, score, ok := e.bestCandidate(ctx, title, artist, target)
	if !ok {
		return record
	}

	record.MatchedID = best.SourceID
	record.MatchedTitle = best.Title
	record.MatchedArtist = best.Artist
	record.Confidence = score
	record.Status = e.Classify(score)
	return record
}

// MatchAll matches a batch of tracks in order. Per-track failures are
// absorbed into not_found records.
func (e *Engine) MatchAll(ctx context.Context, tracks []models.Track, target models.Platform) []models.MatchRecord {
	records := make([]models.MatchRecord, 0, len(tracks))
	for _, track := range tracks {
		records = append(records, e.Match(ctx, track, target))
	}
	return records
}

// Classify maps a combined score onto the two-tier status vocabulary.
// The threshold is re-applied on every call so a threshold change is
// observed consistently by later rematches.
func (e *Engine) Classify(score float64) models.MatchStatus {
	if score >= e.threshold {
		return models.StatusMatched
	}
	return models.StatusLowConfidence
}

// bestCandidate returns the strictly-highest-scoring candidate for the
// query, or ok=false when there are no candidates (including on search
// failure, which degrades to an empty candidate list).
func (e *Engine) bestCandidate(ctx context.Context, title, artist string, target models.Platform) (models.Track, float64, bool) {
	candidates, err := e.source.SearchCandidates(ctx, target, BuildQuery(title, artist), e.limit)
	if err != nil || len(candidates) == 0 {
		return models.Track{}, 0, false
	}

	var best models.Track
	bestScore := -1.0
	for _, candidate := range candidates {
		titleScore := e.Similarity(title, candidate.Title)
		artistScore := e.Similarity(artist, candidate.Artist)
		combined := (titleScore + artistScore) / 2

		if combined > bestScore {
			bestScore = combined
			best = candidate
		}
	}

	return best, bestScore, true
}
