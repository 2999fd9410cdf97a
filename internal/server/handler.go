// Package server exposes the conversion lifecycle over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/amestrin/crosstune/internal/models"
	"github.com/amestrin/crosstune/internal/session"
	"github.com/amestrin/crosstune/internal/shared"
	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
)

// Handler handles conversion HTTP requests.
type Handler struct {
	registry *session.Registry
	logger   *log.Logger
}

// NewHandler creates a handler over the session registry.
func NewHandler(registry *session.Registry, logger *log.Logger) *Handler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Handler{registry: registry, logger: logger}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/convert/start", h.StartConversion)
	e.POST("/convert/:id/auth/complete", h.CompleteAuth)
	e.GET("/convert/:id/auth/status", h.AuthStatus)
	e.POST("/convert/:id/fetch", h.FetchLibrary)
	e.POST("/convert/:id/match", h.MatchTracks)
	e.POST("/convert/:id/match/correct", h.CorrectMatch)
	e.POST("/convert/:id/confirm", h.ConfirmConversion)
	e.POST("/convert/:id/cancel", h.CancelConversion)
	e.GET("/convert/:id/status", h.SessionStatus)
	e.GET("/convert/:id/matches", h.SessionMatches)

	e.GET("/status", h.ServiceStatus)
	e.GET("/health", h.Health)
}

// StartRequest creates a conversion session.
type StartRequest struct {
	Source models.Platform `json:"source"`
	Target models.Platform `json:"target"`
}

// StartConversion creates a session and begins the source handshake.
// POST /convert/start
func (h *Handler) StartConversion(c echo.Context) error {
	var req StartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	sess, err := h.registry.Create(req.Source, req.Target)
	if err != nil {
		return h.writeError(c, err)
	}

	authURL, err := sess.Start(c.Request().Context())
	if err != nil {
		h.registry.Remove(sess.ID())
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"session_id": sess.ID(),
		"source":     sess.Source(),
		"target":     sess.Target(),
		"state":      sess.State().String(),
		"auth_url":   authURL,
	})
}

// CompleteAuthRequest names the platform whose handshake finished.
type CompleteAuthRequest struct {
	Platform models.Platform `json:"platform"`
}

// CompleteAuth finalizes the pending handshake. When the source handshake
// completes the response carries the chained target auth URL.
// POST /convert/:id/auth/complete
func (h *Handler) CompleteAuth(c echo.Context) error {
	var req CompleteAuthRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := req.Platform.Validate(); err != nil {
		return h.writeError(c, err)
	}

	var authURL, state string
	err := h.registry.Transition(c.Request().Context(), c.Param("id"), func(ctx context.Context, s *session.Session) error {
		url, err := s.CompleteAuth(ctx, req.Platform)
		if err != nil {
			return err
		}
		authURL = url
		state = s.State().String()
		return nil
	})
	if err != nil {
		return h.writeError(c, err)
	}

	resp := map[string]any{"state": state}
	if authURL != "" {
		resp["auth_url"] = authURL
	}
	return c.JSON(http.StatusOK, resp)
}

// AuthStatus polls the outstanding handshake without driving a transition.
// GET /convert/:id/auth/status
func (h *Handler) AuthStatus(c echo.Context) error {
	sess, err := h.registry.Get(c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}

	report := sess.Status()
	return c.JSON(http.StatusOK, map[string]any{
		"state":            report.State,
		"pending_platform": report.PendingPlatform,
		"auth":             report.Auth,
	})
}

// FetchLibrary captures the source library snapshot.
// POST /convert/:id/fetch
func (h *Handler) FetchLibrary(c echo.Context) error {
	var snapshot *models.LibrarySnapshot
	err := h.registry.Transition(c.Request().Context(), c.Param("id"), func(ctx context.Context, s *session.Session) error {
		snap, err := s.FetchLibrary(ctx)
		if err != nil {
			return err
		}
		snapshot = snap
		return nil
	})
	if err != nil {
		return h.writeError(c, err)
	}

	counts := make(map[string]int, len(snapshot.Items))
	for category, items := range snapshot.Items {
		counts[category] = len(items)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"platform":    snapshot.Platform,
		"items":       snapshot.Items,
		"track_count": snapshot.TrackCount(),
		"counts":      counts,
	})
}

// MatchRequest selects the tracks to match.
type MatchRequest struct {
	TrackIDs []string `json:"track_ids"`
}

// MatchTracks matches the selected tracks on the target platform.
// POST /convert/:id/match
func (h *Handler) MatchTracks(c echo.Context) error {
	var req MatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	var summary session.MatchSummary
	err := h.registry.Transition(c.Request().Context(), c.Param("id"), func(ctx context.Context, s *session.Session) error {
		result, err := s.SelectAndMatch(ctx, req.TrackIDs)
		if err != nil {
			return err
		}
		summary = result
		return nil
	})
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, summary)
}

// CorrectRequest re-matches one track with user-supplied metadata.
type CorrectRequest struct {
	TrackID string `json:"track_id"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
}

// CorrectMatch replaces one match record from a corrected query.
// POST /convert/:id/match/correct
func (h *Handler) CorrectMatch(c echo.Context) error {
	var req CorrectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.TrackID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "track_id is required"})
	}

	var record models.MatchRecord
	err := h.registry.Transition(c.Request().Context(), c.Param("id"), func(ctx context.Context, s *session.Session) error {
		result, err := s.CorrectMatch(ctx, req.TrackID, req.Title, req.Artist)
		if err != nil {
			return err
		}
		record = result
		return nil
	})
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, record)
}

// ConfirmRequest finalizes the conversion with the accepted track ids.
type ConfirmRequest struct {
	TrackIDs []string `json:"track_ids"`
}

// ConfirmConversion creates the playlist on the target platform.
// POST /convert/:id/confirm
func (h *Handler) ConfirmConversion(c echo.Context) error {
	var req ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	var result session.ConfirmResult
	err := h.registry.Transition(c.Request().Context(), c.Param("id"), func(ctx context.Context, s *session.Session) error {
		res, err := s.Confirm(ctx, req.TrackIDs)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// CancelConversion aborts the session. Idempotent.
// POST /convert/:id/cancel
func (h *Handler) CancelConversion(c echo.Context) error {
	err := h.registry.Transition(c.Request().Context(), c.Param("id"), func(ctx context.Context, s *session.Session) error {
		return s.Cancel()
	})
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"state": session.StateCancelled.String()})
}

// SessionStatus reports the full session view.
// GET /convert/:id/status
func (h *Handler) SessionStatus(c echo.Context) error {
	sess, err := h.registry.Get(c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, sess.Status())
}

// SessionMatches returns the current match records.
// GET /convert/:id/matches
func (h *Handler) SessionMatches(c echo.Context) error {
	sess, err := h.registry.Get(c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"records": sess.Matches(),
	})
}

// ServiceStatus reports service-level counters.
// GET /status
func (h *Handler) ServiceStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": h.registry.Len(),
	})
}

// Health returns health status.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// writeError maps domain errors onto HTTP statuses: bad input is 400,
// unknown resources are 404, phase violations and still-pending auth are
// 409, collaborator failures are 502.
func (h *Handler) writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrSamePlatform),
		errors.Is(err, models.ErrUnsupportedPlatform),
		errors.Is(err, shared.ErrMissingArgument):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrUnknownSession),
		errors.Is(err, shared.ErrUnknownTrack),
		errors.Is(err, shared.ErrPlaylistNotFound),
		errors.Is(err, shared.ErrTrackNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidPhase),
		errors.Is(err, shared.ErrAuthPending):
		status = http.StatusConflict
	case errors.Is(err, shared.ErrCollaborator),
		errors.Is(err, shared.ErrServiceUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, shared.ErrAuthFailed),
		errors.Is(err, shared.ErrAuthTimeout),
		errors.Is(err, shared.ErrMissingCredentials),
		errors.Is(err, shared.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.Path(), "err", err)
	}

	return c.JSON(status, map[string]string{"error": err.Error()})
}
