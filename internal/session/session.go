// package session implements the cross-platform conversion lifecycle.
//
// A Session is a state machine driving one conversion from creation through
// sequential source-then-target authentication, library fetch, matching,
// optional corrections, and final playlist creation. Transitions are explicit
// and phase-gated: an operation invoked outside its phase fails with
// ErrInvalidPhase and leaves the session untouched. Status is observational
// and never drives a transition.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/amestrin/crosstune/internal/auth"
	"github.com/amestrin/crosstune/internal/models"
	"github.com/amestrin/crosstune/internal/shared"
	"github.com/charmbracelet/log"
)

// Library is the snapshot-and-playlist collaborator, routed by platform.
type Library interface {
	FetchLibrary(ctx context.Context, platform models.Platform, credentials []byte) (*models.LibrarySnapshot, error)
	CreatePlaylist(ctx context.Context, platform models.Platform, payload models.PlaylistPayload) (string, error)
}

// Matcher resolves source tracks to target-platform match records.
type Matcher interface {
	Match(ctx context.Context, track models.Track, target models.Platform) models.MatchRecord
	Rematch(ctx context.Context, originalID, title, artist string, target models.Platform) models.MatchRecord
}

// Assembler turns accepted match records into a playlist payload.
type Assembler interface {
	Assemble(records []models.MatchRecord, target models.Platform) (models.PlaylistPayload, error)
}

// Deps bundles the collaborators a session drives. Launcher and Library are
// required; a nil Logger falls back to the shared default.
type Deps struct {
	Launcher  auth.Launcher
	Library   Library
	Matcher   Matcher
	Assembler Assembler
	Logger    *log.Logger
}

// Session is one conversion between two distinct platforms.
//
// All state is guarded by mu. Collaborator calls that can take long (library
// fetch, batch matching, playlist creation) run outside the lock and their
// results are discarded if the session left the originating phase meanwhile,
// so Cancel and Status stay responsive at every point of the lifecycle.
type Session struct {
	id     string
	source models.Platform
	target models.Platform
	deps   Deps

	mu          sync.Mutex
	state       State
	live        auth.PlatformSession
	livePlat    models.Platform
	credentials map[models.Platform][]byte
	snapshot    *models.LibrarySnapshot
	selected    []string
	matches     []models.MatchRecord
	skipped     int
	playlistURL string
	failure     error
}

// New creates a session in the created state. Source and target must be
// valid, distinct platforms.
func New(source, target models.Platform, deps Deps) (*Session, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if source == target {
		return nil, fmt.Errorf("%w: %s", shared.ErrSamePlatform, source)
	}
	if deps.Launcher == nil || deps.Library == nil {
		return nil, fmt.Errorf("%w: session requires launcher and library", shared.ErrMissingConfig)
	}
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}

	return &Session{
		id:          shared.GenerateID(),
		source:      source,
		target:      target,
		deps:        deps,
		state:       StateCreated,
		credentials: make(map[models.Platform][]byte, 2),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Source returns the source platform.
func (s *Session) Source() models.Platform { return s.source }

// Target returns the target platform.
func (s *Session) Target() models.Platform { return s.target }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins the source-platform handshake and returns the URL the user
// must visit. Valid only in the created state.
func (s *Session) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCreated {
		return "", s.phaseError("start")
	}

	url, err := s.beginAuthLocked(ctx, s.source)
	if err != nil {
		s.failLocked(err)
		return "", err
	}

	s.state = StateSourceAuthPending
	s.deps.Logger.Info("auth started", "session", s.id, "platform", s.source)
	return url, nil
}

// CompleteAuth finalizes the pending handshake for the given platform.
//
// Completing the source handshake extracts and stores its credentials, then
// immediately chains into the target handshake and returns the target auth
// URL. Completing the target handshake stores its credentials and moves the
// session to both-authenticated, returning an empty URL. Calling with the
// wrong platform for the current phase is an invalid transition; calling
// before the handshake reports completed returns ErrAuthPending without a
// transition.
func (s *Session) CompleteAuth(ctx context.Context, platform models.Platform) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var isSource bool
	switch {
	case s.state == StateSourceAuthPending && platform == s.source:
		isSource = true
	case s.state == StateTargetAuthPending && platform == s.target:
		isSource = false
	default:
		return "", fmt.Errorf("%w: cannot complete %s auth in state %s", shared.ErrInvalidPhase, platform, s.state)
	}

	live := s.live
	if live == nil {
		err := fmt.Errorf("%w: no live handshake for %s", shared.ErrAuthFailed, platform)
		s.failLocked(err)
		return "", err
	}

	report := live.Status()
	switch report.Status {
	case auth.StatusCompleted:
	case auth.StatusPending:
		return "", fmt.Errorf("%w: %s login not finished", shared.ErrAuthPending, platform)
	default:
		err := fmt.Errorf("%w: %s: %s", shared.ErrAuthFailed, platform, report.Message)
		s.failLocked(err)
		return "", err
	}

	creds, err := live.Credentials()
	if err != nil {
		err = fmt.Errorf("%w: extracting %s credentials: %v", shared.ErrAuthFailed, platform, err)
		s.failLocked(err)
		return "", err
	}

	s.credentials[platform] = creds.Blob
	s.releaseLiveLocked()
	s.deps.Logger.Info("auth completed", "session", s.id, "platform", platform)

	if !isSource {
		s.state = StateBothAuthenticated
		return "", nil
	}

	// Source is done; chain straight into the target handshake.
	s.state = StateSourceAuthenticated
	url, err := s.beginAuthLocked(ctx, s.target)
	if err != nil {
		s.failLocked(err)
		return "", err
	}

	s.state = StateTargetAuthPending
	s.deps.Logger.Info("auth started", "session", s.id, "platform", s.target)
	return url, nil
}

// FetchLibrary captures the source library snapshot. Valid only once both
// platforms are authenticated. A collaborator failure leaves the session in
// both-authenticated so the fetch can be retried; a credential failure is
// unrecoverable and fails the session.
func (s *Session) FetchLibrary(ctx context.Context) (*models.LibrarySnapshot, error) {
	s.mu.Lock()
	if s.state != StateBothAuthenticated {
		defer s.mu.Unlock()
		return nil, s.phaseError("fetch library")
	}
	credentials := s.credentials[s.source]
	s.mu.Unlock()

	snapshot, err := s.deps.Library.FetchLibrary(ctx, s.source, credentials)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateBothAuthenticated {
		// Cancelled while fetching; drop the result.
		return nil, s.phaseError("fetch library")
	}
	if err != nil {
		if shared.IsCredentialError(err) {
			s.failLocked(err)
		}
		return nil, fmt.Errorf("library fetch failed: %w", err)
	}

	s.snapshot = snapshot
	s.state = StateLibraryFetched
	s.deps.Logger.Info("library fetched", "session", s.id, "platform", s.source, "tracks", snapshot.TrackCount())
	return snapshot, nil
}

// MatchSummary reports the outcome of a selection-and-match pass.
type MatchSummary struct {
	Records []models.MatchRecord `json:"records"`
	Matched int                  `json:"matched"`
	Skipped int                  `json:"skipped"`
}

// SelectAndMatch resolves the selected track ids against the snapshot and
// matches each resolved track on the target platform. Ids that do not appear
// in the snapshot are skipped silently and counted, never failed on. Valid
// only in the library-fetched state; an empty resolved selection still
// produces a (trivially complete) matching-done state.
func (s *Session) SelectAndMatch(ctx context.Context, trackIDs []string) (MatchSummary, error) {
	s.mu.Lock()
	if s.state != StateLibraryFetched {
		defer s.mu.Unlock()
		return MatchSummary{}, s.phaseError("match")
	}
	if s.deps.Matcher == nil {
		defer s.mu.Unlock()
		return MatchSummary{}, fmt.Errorf("%w: no match engine configured", shared.ErrMissingConfig)
	}

	tracks := make([]models.Track, 0, len(trackIDs))
	selected := make([]string, 0, len(trackIDs))
	skipped := 0
	for _, id := range trackIDs {
		track, ok := s.snapshot.TrackByID(id)
		if !ok {
			skipped++
			continue
		}
		tracks = append(tracks, track)
		selected = append(selected, id)
	}
	s.mu.Unlock()

	records := make([]models.MatchRecord, 0, len(tracks))
	matched := 0
	for _, track := range tracks {
		record := s.deps.Matcher.Match(ctx, track, s.target)
		if record.Found() {
			matched++
		}
		records = append(records, record)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLibraryFetched {
		return MatchSummary{}, s.phaseError("match")
	}

	s.selected = selected
	s.matches = records
	s.skipped = skipped
	s.state = StateMatchingDone
	s.deps.Logger.Info("matching done", "session", s.id,
		"requested", len(trackIDs), "matched", matched, "skipped", skipped)

	return MatchSummary{Records: records, Matched: matched, Skipped: skipped}, nil
}

// CorrectMatch re-runs matching for one already-matched track with
// user-supplied title and artist, replacing its record in place. Valid only
// in the matching-done state; an id without a record is ErrUnknownTrack.
func (s *Session) CorrectMatch(ctx context.Context, trackID, title, artist string) (models.MatchRecord, error) {
	s.mu.Lock()
	if s.state != StateMatchingDone {
		defer s.mu.Unlock()
		return models.MatchRecord{}, s.phaseError("correct match")
	}

	index := -1
	for i, record := range s.matches {
		if record.OriginalID == trackID {
			index = i
			break
		}
	}
	if index < 0 {
		defer s.mu.Unlock()
		return models.MatchRecord{}, fmt.Errorf("%w: %s", shared.ErrUnknownTrack, trackID)
	}
	s.mu.Unlock()

	record := s.deps.Matcher.Rematch(ctx, trackID, title, artist, s.target)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateMatchingDone {
		return models.MatchRecord{}, s.phaseError("correct match")
	}

	s.matches[index] = record
	s.deps.Logger.Info("match corrected", "session", s.id, "track", trackID,
		"status", record.Status, "confidence", record.Confidence)
	return record, nil
}

// ConfirmResult reports the created playlist.
type ConfirmResult struct {
	PlaylistURL string `json:"playlist_url"`
	TrackCount  int    `json:"track_count"`
}

// Confirm assembles the accepted matches for the given final track ids and
// creates the playlist on the target platform. Valid only in the
// matching-done state. On collaborator failure the session stays in
// matching-done so the caller can retry or correct; on success it moves to
// confirmed and releases its resources.
func (s *Session) Confirm(ctx context.Context, finalTrackIDs []string) (ConfirmResult, error) {
	s.mu.Lock()
	if s.state != StateMatchingDone {
		defer s.mu.Unlock()
		return ConfirmResult{}, s.phaseError("confirm")
	}
	if s.deps.Assembler == nil {
		defer s.mu.Unlock()
		return ConfirmResult{}, fmt.Errorf("%w: no assembler configured", shared.ErrMissingConfig)
	}

	final := make(map[string]bool, len(finalTrackIDs))
	for _, id := range finalTrackIDs {
		final[id] = true
	}

	// Stored record order is preserved; the final id set only filters.
	records := make([]models.MatchRecord, 0, len(s.matches))
	for _, record := range s.matches {
		if final[record.OriginalID] {
			records = append(records, record)
		}
	}
	s.mu.Unlock()

	payload, err := s.deps.Assembler.Assemble(records, s.target)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("playlist assembly failed: %w", err)
	}

	url, err := s.deps.Library.CreatePlaylist(ctx, s.target, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateMatchingDone {
		return ConfirmResult{}, s.phaseError("confirm")
	}
	if err != nil {
		s.deps.Logger.Warn("playlist creation failed", "session", s.id, "err", err)
		return ConfirmResult{}, fmt.Errorf("playlist creation failed: %w", err)
	}

	s.playlistURL = url
	s.state = StateConfirmed
	s.releaseLocked()
	s.deps.Logger.Info("conversion confirmed", "session", s.id,
		"playlist", url, "tracks", len(payload.Tracks))

	return ConfirmResult{PlaylistURL: url, TrackCount: len(payload.Tracks)}, nil
}

// Cancel aborts the conversion and releases every held resource. Safe to
// call from any state, idempotent, and a no-op on an already-terminal
// session.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return nil
	}

	s.releaseLocked()
	s.state = StateCancelled
	s.deps.Logger.Info("conversion cancelled", "session", s.id)
	return nil
}

// StatusReport is the side-effect-free view of a session.
type StatusReport struct {
	SessionID       string            `json:"session_id"`
	Source          models.Platform   `json:"source"`
	Target          models.Platform   `json:"target"`
	State           string            `json:"state"`
	Auth            auth.StatusReport `json:"auth"`
	PendingPlatform models.Platform   `json:"pending_platform,omitempty"`
	TrackCount      int               `json:"track_count"`
	MatchCount      int               `json:"match_count"`
	SkippedTracks   int               `json:"skipped_tracks"`
	PlaylistURL     string            `json:"playlist_url,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// Status reports the session without blocking or driving transitions. While
// an authentication is outstanding it relays the live handshake's own poll
// result; observing a completed handshake here does not advance the session,
// only CompleteAuth does.
func (s *Session) Status() StatusReport {
	s.mu.Lock()
	report := StatusReport{
		SessionID:     s.id,
		Source:        s.source,
		Target:        s.target,
		State:         s.state.String(),
		MatchCount:    len(s.matches),
		SkippedTracks: s.skipped,
		PlaylistURL:   s.playlistURL,
	}
	if s.snapshot != nil {
		report.TrackCount = s.snapshot.TrackCount()
	}
	if s.failure != nil {
		report.Error = s.failure.Error()
	}

	var live auth.PlatformSession
	switch s.state {
	case StateSourceAuthPending:
		report.PendingPlatform = s.source
		live = s.live
	case StateTargetAuthPending:
		report.PendingPlatform = s.target
		live = s.live
	}
	s.mu.Unlock()

	switch {
	case live != nil:
		// Poll outside the session lock so a slow handle cannot stall
		// other callers.
		report.Auth = live.Status()
	case report.State == StateFailed.String():
		report.Auth = auth.StatusReport{Status: auth.StatusError, Message: report.Error}
	case report.State == StateCancelled.String():
		report.Auth = auth.StatusReport{Status: auth.StatusError, Message: "conversion cancelled"}
	case report.PendingPlatform != "":
		report.Auth = auth.StatusReport{Status: auth.StatusError, Message: "login handle released"}
	default:
		report.Auth = auth.StatusReport{Status: auth.StatusCompleted, Message: "no authentication outstanding"}
	}

	return report
}

// Matches returns a copy of the current match records.
func (s *Session) Matches() []models.MatchRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]models.MatchRecord, len(s.matches))
	copy(records, s.matches)
	return records
}

// Snapshot returns the fetched library snapshot, or nil before the fetch.
func (s *Session) Snapshot() *models.LibrarySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

func (s *Session) beginAuthLocked(ctx context.Context, platform models.Platform) (string, error) {
	live, err := s.deps.Launcher.NewSession(platform)
	if err != nil {
		return "", fmt.Errorf("allocating %s login: %w", platform, err)
	}

	url, err := live.Begin(ctx)
	if err != nil {
		live.Close()
		return "", fmt.Errorf("starting %s login: %w", platform, err)
	}

	s.live = live
	s.livePlat = platform
	return url, nil
}

func (s *Session) releaseLiveLocked() {
	if s.live == nil {
		return
	}
	if err := s.live.Close(); err != nil {
		s.deps.Logger.Warn("failed to close login handle", "session", s.id, "platform", s.livePlat, "err", err)
	}
	s.live = nil
	s.livePlat = ""
}

// releaseLocked drops every held resource on the way into a terminal state.
func (s *Session) releaseLocked() {
	s.releaseLiveLocked()
	s.snapshot = nil
	s.selected = nil
	s.credentials = make(map[models.Platform][]byte, 2)
}

func (s *Session) failLocked(err error) {
	s.failure = err
	s.releaseLocked()
	s.state = StateFailed
	s.deps.Logger.Error("conversion failed", "session", s.id, "err", err)
}

func (s *Session) phaseError(op string) error {
	return fmt.Errorf("%w: cannot %s in state %s", shared.ErrInvalidPhase, op, s.state)
}
