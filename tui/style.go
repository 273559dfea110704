package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleNarration = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleMarkup = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Italic(true)

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleMedia = lipgloss.NewStyle().
			Foreground(lipgloss.Color("111"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the source of an output line for styling.
type lineKind int

const (
	kindNarration lineKind = iota
	kindMarkup
	kindInput
	kindSystem
	kindMedia
	kindTrace
	kindBlank
)

func (k lineKind) style() lipgloss.Style {
	switch k {
	case kindMarkup:
		return styleMarkup
	case kindInput:
		return stylePlayerInput
	case kindSystem:
		return styleSystem
	case kindMedia:
		return styleMedia
	case kindTrace:
		return styleTrace
	default:
		return styleNarration
	}
}

// decorate adds the brackets and prompt markers a line kind is shown with.
func (k lineKind) decorate(text string) string {
	switch k {
	case kindInput:
		return "> " + text
	case kindSystem, kindMedia:
		return "[" + text + "]"
	default:
		return text
	}
}
