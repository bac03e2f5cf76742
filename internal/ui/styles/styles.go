// Package styles provides shared lipgloss styles for CLI output.
//
// This package centralizes color definitions so tables, notices and
// diagnostics render consistently. Call Init once after loading config;
// until then the default theme is active.
package styles

import "charm.land/lipgloss/v2"

// Theme colors, replaced by Init
var (
	// Primary is the main accent color (cyan/teal)
	Primary = DefaultTheme.Primary

	// Success is used for checkmarks and positive outcomes (green)
	Success = DefaultTheme.Success

	// Error is used for error messages (red)
	Error = DefaultTheme.Error

	// Muted is used for secondary text (gray)
	Muted = DefaultTheme.Muted

	// Normal is the standard text color (light gray)
	Normal = DefaultTheme.Normal

	// Warning is used for degraded states such as local-only saves
	Warning = DefaultTheme.Warning
)

// Common styles
var (
	// Bold applies bold formatting
	Bold = lipgloss.NewStyle().Bold(true)

	// PrimaryStyle applies the primary color
	PrimaryStyle = lipgloss.NewStyle().Foreground(Primary)

	// SuccessStyle applies the success color
	SuccessStyle = lipgloss.NewStyle().Foreground(Success)

	// ErrorStyle applies the error color with bold
	ErrorStyle = lipgloss.NewStyle().Foreground(Error).Bold(true)

	// MutedStyle applies the muted color
	MutedStyle = lipgloss.NewStyle().Foreground(Muted)

	// NormalStyle applies the normal text color
	NormalStyle = lipgloss.NewStyle().Foreground(Normal)

	// WarningStyle applies the warning color
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)
)
