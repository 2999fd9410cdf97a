package shared

import (
	"testing"
)

func TestGenerateID(t *testing.T) {
	first := GenerateID()
	second := GenerateID()

	if first == "" || second == "" {
		t.Fatal("expected non-empty ids")
	}
	if first == second {
		t.Error("expected unique ids")
	}
	if len(first) != 36 {
		t.Errorf("expected UUID length 36, got %d", len(first))
	}
}

func TestNormalizeTrackKey(t *testing.T) {
	cases := []struct {
		name   string
		title  string
		artist string
		want   string
	}{
		{"simple", "Hey Jude", "The Beatles", "hey jude|the beatles"},
		{"case folded", "HEY JUDE", "the BEATLES", "hey jude|the beatles"},
		{"whitespace collapsed", "  Hey   Jude ", "The  Beatles", "hey jude|the beatles"},
		{"empty artist", "Hey Jude", "", "hey jude|"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeTrackKey(tc.title, tc.artist); got != tc.want {
				t.Errorf("NormalizeTrackKey(%q, %q) = %q, want %q", tc.title, tc.artist, got, tc.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{60, "1:00"},
		{125, "2:05"},
		{-5, "0:00"},
	}

	for _, tc := range cases {
		if got := FormatDuration(tc.seconds); got != tc.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	if logger := NewLogger(nil); logger == nil {
		t.Fatal("expected a logger")
	}
}

func TestIsCredentialError(t *testing.T) {
	if !IsCredentialError(ErrMissingCredentials) {
		t.Error("ErrMissingCredentials should be a credential error")
	}
	if !IsCredentialError(ErrInvalidCredentials) {
		t.Error("ErrInvalidCredentials should be a credential error")
	}
	if IsCredentialError(ErrCollaborator) {
		t.Error("ErrCollaborator should not be a credential error")
	}
}
