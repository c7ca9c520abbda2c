// Package style renders CLI output with terminal-aware coloring.
package style

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
	reminderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

func init() {
	// Force plain output when stdout is not a terminal so scripted callers
	// get stable text.
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// Error styles a fatal error line.
func Error(s string) string { return errStyle.Render(s) }

// Warning styles a non-fatal warning line.
func Warning(s string) string { return warnStyle.Render(s) }

// OK styles a success line.
func OK(s string) string { return okStyle.Render(s) }

// Dim styles secondary detail.
func Dim(s string) string { return dimStyle.Render(s) }

// Reminder styles a system-reminder block.
func Reminder(s string) string { return reminderStyle.Render(s) }
