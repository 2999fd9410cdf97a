package main

import (
	"context"

	"github.com/amestrin/crosstune/internal/models"
	"github.com/urfave/cli/v3"
)

// MatchTrack matches a single title/artist pair against a target platform
// using stored credentials.
func (r *Runner) MatchTrack(ctx context.Context, cmd *cli.Command) error {
	target := models.Platform(cmd.String("target"))
	if err := target.Validate(); err != nil {
		return err
	}

	st, err := r.buildStack()
	if err != nil {
		return err
	}
	defer st.Close()

	title := cmd.String("title")
	artist := cmd.String("artist")

	// Rematch skips the acceptance gate so a sub-threshold best candidate
	// is still shown with its confidence.
	record := st.engine.Rematch(ctx, "", title, artist, target)

	if cmd.Bool("json") {
		return r.writeJSON(record, cmd.Bool("pretty"))
	}

	if !record.Found() {
		return r.writePlainln("No match for %s - %s on %s", artist, title, target.DisplayName())
	}

	return r.writePlainln("%s - %s => %s - %s (%.1f%%, %s)",
		artist, title, record.MatchedArtist, record.MatchedTitle, record.Confidence, record.Status)
}
