package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/amestrin/crosstune/internal/formatter"
	"github.com/urfave/cli/v3"
)

// Report renders a saved match report JSON into CSV, Markdown, or text.
func (r *Runner) Report(ctx context.Context, cmd *cli.Command) error {
	data, err := os.ReadFile(cmd.String("input"))
	if err != nil {
		return fmt.Errorf("failed to read report JSON: %w", err)
	}

	var report formatter.MatchReport
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("failed to parse report JSON: %w", err)
	}

	written, err := formatter.WriteReport(&report, cmd.String("output"))
	if err != nil {
		return err
	}

	return r.writePlainln("Wrote match report to %s (%d records, %d matched)",
		written, len(report.Records), report.Matched())
}
