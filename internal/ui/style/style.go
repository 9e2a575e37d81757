// Package style centralizes terminal styling for the CLI.
package style

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	heading = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	symbol  = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	detail  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errText = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	okText  = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
)

// IsDisabled returns true if colors are disabled via environment.
func IsDisabled() bool {
	return os.Getenv("PHOSTDIO_NO_COLOR") != "" || os.Getenv("NO_COLOR") != ""
}

func render(st lipgloss.Style, s string) string {
	if IsDisabled() {
		return s
	}
	return st.Render(s)
}

// Heading formats a section heading.
func Heading(s string) string { return render(heading, s) }

// Symbol formats a registered symbol name.
func Symbol(s string) string { return render(symbol, s) }

// Detail formats secondary information.
func Detail(s string) string { return render(detail, s) }

// Error formats an error message.
func Error(s string) string { return render(errText, s) }

// OK formats a success marker.
func OK(s string) string { return render(okText, s) }
