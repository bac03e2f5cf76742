package styles

import (
	"charm.land/lipgloss/v2"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/syncengine"
)

// Status symbols
const (
	SymbolOK      = "✓"
	SymbolWarn    = "⚠"
	SymbolFail    = "✗"
	SymbolPending = "○"
)

// NoticeSymbol returns the symbol shown before a notice.
func NoticeSymbol(n syncengine.Notice) string {
	switch n {
	case syncengine.NoticeSaved, syncengine.NoticeProgressSaved:
		return SymbolOK
	case syncengine.NoticeLocalOnly, syncengine.NoticeUsingLocal:
		return SymbolWarn
	case syncengine.NoticeSecurity:
		return SymbolFail
	default:
		return SymbolPending
	}
}

func noticeStyle(n syncengine.Notice) lipgloss.Style {
	switch n {
	case syncengine.NoticeSaved, syncengine.NoticeProgressSaved:
		return SuccessStyle
	case syncengine.NoticeLocalOnly, syncengine.NoticeUsingLocal:
		return WarningStyle
	case syncengine.NoticeSecurity:
		return ErrorStyle
	default:
		return NormalStyle
	}
}

// FormatNotice renders a notice as "<symbol> <message>" in its color.
func FormatNotice(n syncengine.Notice) string {
	return noticeStyle(n).Render(NoticeSymbol(n) + " " + n.Message())
}

// FormatSource renders where a save was loaded from.
func FormatSource(s syncengine.Source) string {
	switch s {
	case syncengine.SourceCloud:
		return SuccessStyle.Render(s.String())
	case syncengine.SourceCache:
		return PrimaryStyle.Render(s.String())
	case syncengine.SourceLocal:
		return WarningStyle.Render(s.String())
	default:
		return MutedStyle.Render(s.String())
	}
}
