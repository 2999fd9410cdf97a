package match

import (
	"context"
	"testing"

	"github.com/amestrin/crosstune/internal/models"
	th "github.com/amestrin/crosstune/internal/testing"
)

func track(id, title, artist string) models.Track {
	return models.Track{SourceID: id, Title: title, Artist: artist, Source: models.PlatformYTMusic}
}

func TestSimilarity(t *testing.T) {
	engine := NewEngine(&th.StubCandidates{})

	t.Run("identical strings score 100", func(t *testing.T) {
		if got := engine.Similarity("Hey Jude", "Hey Jude"); got != 100 {
			t.Errorf("expected 100, got %v", got)
		}
	})

	t.Run("case differences are ignored", func(t *testing.T) {
		a := engine.Similarity("hey jude", "HEY JUDE")
		if a != 100 {
			t.Errorf("expected case-insensitive 100, got %v", a)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		ab := engine.Similarity("Hey Jude", "Hey Jude Remastered")
		ba := engine.Similarity("Hey Jude Remastered", "Hey Jude")
		if ab != ba {
			t.Errorf("similarity not symmetric: %v vs %v", ab, ba)
		}
	})

	t.Run("disjoint strings score low", func(t *testing.T) {
		if got := engine.Similarity("Hey Jude", "Bohemian Rhapsody"); got > 50 {
			t.Errorf("expected low score, got %v", got)
		}
	})
}

func TestMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("exact candidate is matched with full confidence", func(t *testing.T) {
		source := &th.StubCandidates{Default: []models.Track{
			track("yt1", "Hey Jude", "The Beatles"),
		}}
		engine := NewEngine(source)

		record := engine.Match(ctx, track("sp1", "Hey Jude", "The Beatles"), models.PlatformYTMusic)

		if record.Status != models.StatusMatched {
			t.Fatalf("expected matched, got %s", record.Status)
		}
		if record.MatchedID != "yt1" {
			t.Errorf("expected yt1, got %q", record.MatchedID)
		}
		if record.Confidence != 100 {
			t.Errorf("expected confidence 100, got %v", record.Confidence)
		}
	})

	t.Run("best of several candidates wins", func(t *testing.T) {
		source := &th.StubCandidates{Default: []models.Track{
			track("yt1", "Hey Jude Karaoke Version", "Karaoke Band"),
			track("yt2", "Hey Jude", "The Beatles"),
			track("yt3", "Hey Dude", "The Turtles"),
		}}
		engine := NewEngine(source)

		record := engine.Match(ctx, track("sp1", "Hey Jude", "The Beatles"), models.PlatformYTMusic)

		if record.MatchedID != "yt2" {
			t.Errorf("expected yt2 to win, got %q", record.MatchedID)
		}
	})

	t.Run("sub-threshold candidates are rejected as not_found", func(t *testing.T) {
		source := &th.StubCandidates{Default: []models.Track{
			track("yt1", "Completely Different Song", "Somebody Else"),
		}}
		engine := NewEngine(source)

		record := engine.Match(ctx, track("sp1", "Hey Jude", "The Beatles"), models.PlatformYTMusic)

		if record.Status != models.StatusNotFound {
			t.Fatalf("expected not_found, got %s", record.Status)
		}
		if record.MatchedID != "" || record.Confidence != 0 {
			t.Errorf("rejected record must stay empty, got %+v", record)
		}
		if record.OriginalID != "sp1" || record.OriginalTitle != "Hey Jude" {
			t.Errorf("original identity must be preserved, got %+v", record)
		}
	})

	t.Run("no candidates yields not_found", func(t *testing.T) {
		engine := NewEngine(&th.StubCandidates{})

		record := engine.Match(ctx, track("sp1", "Hey Jude", "The Beatles"), models.PlatformYTMusic)

		if record.Status != models.StatusNotFound {
			t.Errorf("expected not_found, got %s", record.Status)
		}
	})

	t.Run("search failure degrades to not_found", func(t *testing.T) {
		engine := NewEngine(&th.StubCandidates{Err: context.DeadlineExceeded})

		record := engine.Match(ctx, track("sp1", "Hey Jude", "The Beatles"), models.PlatformYTMusic)

		if record.Status != models.StatusNotFound {
			t.Errorf("expected not_found on search failure, got %s", record.Status)
		}
	})

	t.Run("deterministic across repeated runs", func(t *testing.T) {
		source := &th.StubCandidates{Default: []models.Track{
			track("yt1", "Hey Jude", "The Beatles Tribute"),
			track("yt2", "Hey Jude", "The Beatles Tribute"),
		}}
		engine := NewEngine(source)
		input := track("sp1", "Hey Jude", "The Beatles")

		first := engine.Match(ctx, input, models.PlatformYTMusic)
		for i := 0; i < 5; i++ {
			again := engine.Match(ctx, input, models.PlatformYTMusic)
			if again != first {
				t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
			}
		}
		// Ties keep the first candidate in source order.
		if first.MatchedID != "yt1" {
			t.Errorf("expected tie to keep yt1, got %q", first.MatchedID)
		}
	})
}

func TestRematch(t *testing.T) {
	ctx := context.Background()

	t.Run("bypasses the threshold gate", func(t *testing.T) {
		source := &th.StubCandidates{Default: []models.Track{
			track("yt1", "Somewhat Similar Song", "Another Artist"),
		}}
		engine := NewEngine(source)

		record := engine.Rematch(ctx, "sp1", "Hey Jude", "The Beatles", models.PlatformYTMusic)

		if record.Status != models.StatusLowConfidence {
			t.Fatalf("expected low_confidence, got %s", record.Status)
		}
		if record.MatchedID != "yt1" {
			t.Errorf("expected the sub-threshold candidate to be kept, got %q", record.MatchedID)
		}
		if record.Confidence <= 0 || record.Confidence >= engine.Threshold() {
			t.Errorf("expected sub-threshold confidence, got %v", record.Confidence)
		}
	})

	t.Run("keeps original identity", func(t *testing.T) {
		source := &th.StubCandidates{Default: []models.Track{
			track("yt1", "Hey Jude", "The Beatles"),
		}}
		engine := NewEngine(source)

		record := engine.Rematch(ctx, "sp1", "Hey Jude", "The Beatles", models.PlatformYTMusic)

		if record.OriginalID != "sp1" {
			t.Errorf("expected original id sp1, got %q", record.OriginalID)
		}
		if record.Status != models.StatusMatched {
			t.Errorf("expected matched, got %s", record.Status)
		}
	})

	t.Run("no candidates stays not_found", func(t *testing.T) {
		engine := NewEngine(&th.StubCandidates{})

		record := engine.Rematch(ctx, "sp1", "Hey Jude", "The Beatles", models.PlatformYTMusic)

		if record.Status != models.StatusNotFound {
			t.Errorf("expected not_found, got %s", record.Status)
		}
	})
}

func TestClassify(t *testing.T) {
	engine := NewEngine(&th.StubCandidates{})

	cases := []struct {
		name  string
		score float64
		want  models.MatchStatus
	}{
		{"well above threshold", 95, models.StatusMatched},
		{"exactly at threshold", DefaultConfidenceThreshold, models.StatusMatched},
		{"just below threshold", DefaultConfidenceThreshold - 0.1, models.StatusLowConfidence},
		{"zero", 0, models.StatusLowConfidence},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := engine.Classify(tc.score); got != tc.want {
				t.Errorf("Classify(%v) = %s, want %s", tc.score, got, tc.want)
			}
		})
	}
}

func TestMatchAll(t *testing.T) {
	ctx := context.Background()
	source := &th.StubCandidates{ByQuery: map[string][]models.Track{
		"Hey Jude The Beatles": {track("yt1", "Hey Jude", "The Beatles")},
	}}
	engine := NewEngine(source)

	records := engine.MatchAll(ctx, []models.Track{
		track("sp1", "Hey Jude", "The Beatles"),
		track("sp2", "Unknown Song", "Unknown Artist"),
	}, models.PlatformYTMusic)

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Status != models.StatusMatched {
		t.Errorf("expected first record matched, got %s", records[0].Status)
	}
	if records[1].Status != models.StatusNotFound {
		t.Errorf("expected second record not_found, got %s", records[1].Status)
	}
}

func TestBuildQuery(t *testing.T) {
	if got := BuildQuery("Hey Jude", "The Beatles"); got != "Hey Jude The Beatles" {
		t.Errorf("unexpected query %q", got)
	}
	if got := BuildQuery("Instrumental", ""); got != "Instrumental" {
		t.Errorf("expected trimmed query, got %q", got)
	}
}

func TestEngineOptions(t *testing.T) {
	engine := NewEngine(&th.StubCandidates{}, WithThreshold(85), WithCandidateLimit(10))
	if engine.Threshold() != 85 {
		t.Errorf("expected threshold 85, got %v", engine.Threshold())
	}
	if engine.limit != 10 {
		t.Errorf("expected limit 10, got %d", engine.limit)
	}

	// Non-positive overrides keep defaults.
	engine = NewEngine(&th.StubCandidates{}, WithThreshold(-1), WithCandidateLimit(0))
	if engine.Threshold() != DefaultConfidenceThreshold {
		t.Errorf("expected default threshold, got %v", engine.Threshold())
	}
	if engine.limit != DefaultCandidateLimit {
		t.Errorf("expected default limit, got %d", engine.limit)
	}
}
