// package formatter exports match reports to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/amestrin/crosstune/internal/models"
)

// MatchReport pairs the conversion context with its match records for export.
type MatchReport struct {
	Source      models.Platform      `json:"source"`
	Target      models.Platform      `json:"target"`
	Records     []models.MatchRecord `json:"records"`
	Skipped     int                  `json:"skipped"`
	PlaylistURL string               `json:"playlist_url,omitempty"`
}

// Matched counts records that carry a usable match.
func (r *MatchReport) Matched() int {
	count := 0
	for _, record := range r.Records {
		if record.Found() {
			count++
		}
	}
	return count
}

// ExportToCSV converts a MatchReport to CSV with columns:
// Original ID, Original Title, Original Artist, Matched ID, Matched Title,
// Matched Artist, Confidence, Status
func ExportToCSV(report *MatchReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Original ID", "Original Title", "Original Artist", "Matched ID", "Matched Title", "Matched Artist", "Confidence", "Status"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, record := range report.Records {
		row := []string{
			record.OriginalID,
			record.OriginalTitle,
			record.OriginalArtist,
			record.MatchedID,
			record.MatchedTitle,
			record.MatchedArtist,
			strconv.FormatFloat(record.Confidence, 'f', 1, 64),
			string(record.Status),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a MatchReport to a Markdown document with a
// summary section and a per-track table.
func ExportToMarkdown(report *MatchReport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Conversion Report: %s to %s\n\n", report.Source.DisplayName(), report.Target.DisplayName()))

	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(report.Records)))
	buf.WriteString(fmt.Sprintf("**Matched**: %d\n", report.Matched()))
	buf.WriteString(fmt.Sprintf("**Skipped**: %d\n", report.Skipped))
	if report.PlaylistURL != "" {
		buf.WriteString(fmt.Sprintf("**Playlist**: %s\n", report.PlaylistURL))
	}
	buf.WriteString("\n## Matches\n\n")

	buf.WriteString("| # | Original | Match | Confidence | Status |\n")
	buf.WriteString("|---|----------|-------|------------|--------|\n")
	for i, record := range report.Records {
		match := "-"
		if record.MatchedID != "" {
			match = fmt.Sprintf("%s - %s", record.MatchedArtist, record.MatchedTitle)
		}
		buf.WriteString(fmt.Sprintf("| %d | %s - %s | %s | %.1f | %s |\n",
			i+1, record.OriginalArtist, record.OriginalTitle, match, record.Confidence, record.Status))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a MatchReport to plain text.
func ExportToText(report *MatchReport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Conversion: %s -> %s\n", report.Source.DisplayName(), report.Target.DisplayName()))
	buf.WriteString(fmt.Sprintf("Tracks: %d (matched %d, skipped %d)\n\n", len(report.Records), report.Matched(), report.Skipped))

	for i, record := range report.Records {
		switch {
		case record.MatchedID != "":
			buf.WriteString(fmt.Sprintf("%d. %s - %s => %s - %s (%.1f, %s)\n",
				i+1, record.OriginalArtist, record.OriginalTitle,
				record.MatchedArtist, record.MatchedTitle, record.Confidence, record.Status))
		default:
			buf.WriteString(fmt.Sprintf("%d. %s - %s => not found\n",
				i+1, record.OriginalArtist, record.OriginalTitle))
		}
	}

	return buf.Bytes(), nil
}

// WriteReport exports a report to the given path, choosing the format from
// the extension (.csv, .md, anything else is plain text).
func WriteReport(report *MatchReport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_to_%s_report.txt", report.Source, report.Target)
	}

	var data []byte
	var err error
	switch {
	case strings.HasSuffix(path, ".csv"):
		data, err = ExportToCSV(report)
	case strings.HasSuffix(path, ".md"):
		data, err = ExportToMarkdown(report)
	default:
		data, err = ExportToText(report)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	return path, nil
}
