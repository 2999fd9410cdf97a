package ui

import (
	"fmt"

	"github.com/amestrin/crosstune/internal/models"
	"github.com/charmbracelet/bubbles/list"
)

var _ list.Item = matchItem{}

// matchItem wraps [models.MatchRecord] to implement [list.Item].
type matchItem struct {
	record   models.MatchRecord
	accepted bool
}

func (i matchItem) FilterValue() string { return i.record.OriginalTitle }

func (i matchItem) Title() string {
	marker := "[ ]"
	if i.accepted {
		marker = "[x]"
	}
	return fmt.Sprintf("%s %s - %s", marker, i.record.OriginalArtist, i.record.OriginalTitle)
}

func (i matchItem) Description() string {
	switch i.record.Status {
	case models.StatusNotFound:
		return "no match found"
	default:
		return fmt.Sprintf("%s - %s • %.1f%% • %s",
			i.record.MatchedArtist, i.record.MatchedTitle, i.record.Confidence, i.record.Status)
	}
}
