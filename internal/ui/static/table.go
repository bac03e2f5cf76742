// Package static provides non-interactive terminal output components.
//
// This package contains components for rendering formatted output
// that does not require user interaction, such as the saves and cache
// statistics tables printed by the savesync CLI.
package static

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/cache"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/remote"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/ui/styles"
)

// Table headers
var (
	SavesHeaders = []string{"SLOT", "TITLE", "PLAYTIME", "SAVED"}
	StatsHeaders = []string{"IDENTITY", "ENTRIES", "FRESH", "STALE", "CORRUPT", "OLDEST"}
)

// RenderTable creates a formatted table with proper column alignment.
// Headers and rows are rendered using lipgloss/table which automatically
// calculates column widths based on content. No borders are rendered.
func RenderTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	var output strings.Builder

	t := table.New().
		Headers(headers...).
		Rows(rows...).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		BorderRow(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})

	output.WriteString(t.String())
	output.WriteString("\n")

	return output.String()
}

// SaveRow returns the table row for one save: SLOT, TITLE, PLAYTIME, SAVED.
func SaveRow(s remote.SaveSummary, now time.Time) []string {
	title := s.Metadata.Title
	if title == "" {
		title = styles.MutedStyle.Render("(untitled)")
	}
	saved := s.Timestamp
	if saved.IsZero() {
		saved = s.Metadata.Timestamp
	}
	return []string{
		strconv.Itoa(s.Slot),
		title,
		s.Metadata.PlaytimeFormatted,
		FormatAge(saved, now),
	}
}

// FormatSavesTable renders a save listing.
func FormatSavesTable(saves []remote.SaveSummary, now time.Time) string {
	rows := make([][]string, 0, len(saves))
	for _, s := range saves {
		rows = append(rows, SaveRow(s, now))
	}
	return RenderTable(SavesHeaders, rows)
}

// StatsRows returns one row per identity, sorted by identity. Scopes with
// stale or corrupt entries are highlighted.
func StatsRows(st cache.Stats, now time.Time) [][]string {
	ids := make([]string, 0, len(st.Scopes))
	for id := range st.Scopes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		sc := st.Scopes[id]
		name := id
		if name == "" {
			name = styles.MutedStyle.Render("(unscoped)")
		}
		stale := strconv.Itoa(sc.Stale)
		if sc.Stale > 0 {
			stale = styles.WarningStyle.Render(stale)
		}
		corrupt := strconv.Itoa(sc.Corrupt)
		if sc.Corrupt > 0 {
			corrupt = styles.ErrorStyle.Render(corrupt)
		}
		rows = append(rows, []string{
			name,
			strconv.Itoa(sc.Entries),
			strconv.Itoa(sc.Fresh),
			stale,
			corrupt,
			FormatAge(sc.Oldest, now),
		})
	}
	return rows
}

// FormatAge renders t relative to now ("just now", "5 minutes ago").
// A zero time renders as "-".
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int(d/(24*time.Hour)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
