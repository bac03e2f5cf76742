package static

import (
	"strings"
	"testing"
	"time"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/cache"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/remote"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func TestSaveRow(t *testing.T) {
	t.Parallel()

	s := remote.SaveSummary{
		Slot: 2,
		Metadata: remote.SaveMetadata{
			Title:             "Chapter 4",
			PlaytimeFormatted: "1h 20m",
		},
		Timestamp: now.Add(-3 * time.Hour),
	}

	row := SaveRow(s, now)

	// Must have exactly 4 columns matching headers: SLOT, TITLE, PLAYTIME, SAVED
	if len(row) != len(SavesHeaders) {
		t.Fatalf("expected %d columns, got %d", len(SavesHeaders), len(row))
	}
	want := []string{"2", "Chapter 4", "1h 20m", "3 hours ago"}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("column %d (%s) = %q, want %q", i, SavesHeaders[i], row[i], want[i])
		}
	}
}

func TestSaveRow_FallsBackToMetadataTimestamp(t *testing.T) {
	t.Parallel()

	s := remote.SaveSummary{Slot: 1, Metadata: remote.SaveMetadata{Timestamp: now.Add(-time.Minute)}}
	row := SaveRow(s, now)
	if row[3] != "1 minute ago" {
		t.Errorf("SAVED = %q, want 1 minute ago", row[3])
	}
	if !strings.Contains(row[1], "untitled") {
		t.Errorf("TITLE = %q, want untitled placeholder", row[1])
	}
}

func TestFormatSavesTable(t *testing.T) {
	t.Parallel()

	if got := FormatSavesTable(nil, now); got != "" {
		t.Errorf("empty listing rendered %q", got)
	}

	out := FormatSavesTable([]remote.SaveSummary{
		{Slot: 1, Metadata: remote.SaveMetadata{Title: "Prologue"}, Timestamp: now},
		{Slot: 3, Metadata: remote.SaveMetadata{Title: "Finale"}, Timestamp: now},
	}, now)
	for _, want := range []string{"SLOT", "Prologue", "Finale"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestStatsRows(t *testing.T) {
	t.Parallel()

	st := cache.Stats{
		Total: 4,
		Scopes: map[string]*cache.ScopeStats{
			"u2": {Entries: 1, Fresh: 1, Oldest: now.Add(-30 * time.Second)},
			"u1": {Entries: 3, Fresh: 1, Stale: 1, Corrupt: 1, Oldest: now.Add(-2 * 24 * time.Hour)},
		},
	}

	rows := StatsRows(st, now)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0][0] != "u1" || rows[1][0] != "u2" {
		t.Errorf("rows not sorted by identity: %q, %q", rows[0][0], rows[1][0])
	}
	if rows[0][1] != "3" || rows[0][5] != "2 days ago" {
		t.Errorf("u1 row = %q", rows[0])
	}
	if rows[1][3] != "0" || rows[1][4] != "0" {
		t.Errorf("clean scope should be plain zeros, got %q", rows[1])
	}
	if rows[1][5] != "just now" {
		t.Errorf("u2 OLDEST = %q, want just now", rows[1][5])
	}
}

func TestFormatAge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{45 * time.Minute, "45 minutes ago"},
		{time.Hour, "1 hour ago"},
		{23 * time.Hour, "23 hours ago"},
		{72 * time.Hour, "3 days ago"},
	}
	for _, tt := range tests {
		if got := FormatAge(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("FormatAge(-%s) = %q, want %q", tt.ago, got, tt.want)
		}
	}
	if got := FormatAge(time.Time{}, now); got != "-" {
		t.Errorf("FormatAge(zero) = %q, want -", got)
	}
}
