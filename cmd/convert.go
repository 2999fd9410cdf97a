package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/amestrin/crosstune/internal/auth"
	"github.com/amestrin/crosstune/internal/formatter"
	"github.com/amestrin/crosstune/internal/models"
	"github.com/amestrin/crosstune/internal/session"
	"github.com/amestrin/crosstune/internal/shared"
	"github.com/amestrin/crosstune/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
)

const authPollInterval = 2 * time.Second

// Convert drives a full conversion: sequential authentication, library
// fetch, matching, optional interactive review, and playlist creation.
func (r *Runner) Convert(ctx context.Context, cmd *cli.Command) error {
	source := models.Platform(cmd.String("source"))
	target := models.Platform(cmd.String("target"))

	st, err := r.buildStack()
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := st.registry.Create(source, target)
	if err != nil {
		return err
	}
	defer st.registry.Remove(sess.ID())

	authURL, err := sess.Start(ctx)
	if err != nil {
		return err
	}
	if err := r.authenticate(ctx, sess, source, authURL, cmd.Bool("no-browser")); err != nil {
		return err
	}

	targetURL, err := sess.CompleteAuth(ctx, source)
	if err != nil {
		return err
	}
	if err := r.authenticate(ctx, sess, target, targetURL, cmd.Bool("no-browser")); err != nil {
		return err
	}
	if _, err := sess.CompleteAuth(ctx, target); err != nil {
		return err
	}

	r.logger.Info("fetching library", "platform", source)
	snapshot, err := sess.FetchLibrary(ctx)
	if err != nil {
		return err
	}
	r.writePlainln("Fetched %d tracks from %s", snapshot.TrackCount(), source.DisplayName())

	trackIDs := selectTracks(cmd.String("tracks"), snapshot)
	summary, err := sess.SelectAndMatch(ctx, trackIDs)
	if err != nil {
		return err
	}
	r.writePlainln("Matched %d of %d tracks (%d skipped)", summary.Matched, len(summary.Records), summary.Skipped)

	var result session.ConfirmResult
	if cmd.Bool("review") {
		result, err = r.review(ctx, sess)
	} else {
		accepted := make([]string, 0, len(summary.Records))
		for _, record := range summary.Records {
			if record.Found() {
				accepted = append(accepted, record.OriginalID)
			}
		}
		result, err = sess.Confirm(ctx, accepted)
	}
	if err != nil {
		return err
	}

	report := &formatter.MatchReport{
		Source:      source,
		Target:      target,
		Records:     summary.Records,
		Skipped:     summary.Skipped,
		PlaylistURL: result.PlaylistURL,
	}
	if path := cmd.String("save"); path != "" {
		if err := saveReportJSON(report, path); err != nil {
			return err
		}
		r.writePlainln("Saved match report JSON to %s", path)
	}
	if path := cmd.String("report"); path != "" {
		written, err := formatter.WriteReport(report, path)
		if err != nil {
			return err
		}
		r.writePlainln("Wrote match report to %s", written)
	}

	r.writePlainln("Playlist created: %s (%d tracks)", result.PlaylistURL, result.TrackCount)
	return nil
}

// authenticate opens the login URL and polls the session until the
// handshake completes or degrades to an error.
func (r *Runner) authenticate(ctx context.Context, sess *session.Session, platform models.Platform, url string, noBrowser bool) error {
	r.writePlainln("Authenticate with %s:\n  %s", platform.DisplayName(), url)

	if !noBrowser {
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}

	ticker := time.NewTicker(authPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		report := sess.Status().Auth
		switch report.Status {
		case auth.StatusCompleted:
			return nil
		case auth.StatusError:
			return fmt.Errorf("%w: %s", shared.ErrAuthFailed, report.Message)
		}
	}
}

// review runs the interactive match review and returns its confirm result.
func (r *Runner) review(ctx context.Context, sess *session.Session) (session.ConfirmResult, error) {
	model := ui.NewModel(ctx, sess)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return session.ConfirmResult{}, fmt.Errorf("review UI failed: %w", err)
	}

	result, err := model.Result()
	if err != nil {
		return session.ConfirmResult{}, err
	}
	if result.PlaylistURL == "" {
		return session.ConfirmResult{}, fmt.Errorf("%w: review abandoned before confirmation", shared.ErrInvalidPhase)
	}
	return result, nil
}

// selectTracks parses the --tracks flag, defaulting to every snapshot track
// in a stable order.
func selectTracks(flag string, snapshot *models.LibrarySnapshot) []string {
	if flag != "" {
		parts := strings.Split(flag, ",")
		ids := make([]string, 0, len(parts))
		for _, part := range parts {
			if id := strings.TrimSpace(part); id != "" {
				ids = append(ids, id)
			}
		}
		return ids
	}

	ids := make([]string, 0, len(snapshot.Tracks))
	for id := range snapshot.Tracks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func saveReportJSON(report *formatter.MatchReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report JSON: %w", err)
	}
	return nil
}
