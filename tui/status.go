package tui

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nathoo/voicequest/engine/state"
)

// nodeDisplayName names the scene a path is in: the segment below the
// root, split on underscores and case changes.
// "detective.Approached_Car.Ask" -> "Approached Car",
// "detective.FirstEntrance" -> "First Entrance".
func nodeDisplayName(path string) string {
	segs := strings.Split(path, ".")
	if len(segs) < 2 {
		return ""
	}
	var words []string
	for _, part := range strings.Split(segs[1], "_") {
		words = append(words, splitCamel(part)...)
	}
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// splitCamel breaks "WaitToStart" into "Wait", "To", "Start". Runs of
// capitals stay together.
func splitCamel(s string) []string {
	rs := []rune(s)
	var words []string
	start := 0
	for i := 1; i < len(rs); i++ {
		lowerToUpper := unicode.IsLower(rs[i-1]) && unicode.IsUpper(rs[i])
		acronymEnd := unicode.IsUpper(rs[i-1]) && unicode.IsUpper(rs[i]) && i+1 < len(rs) && unicode.IsLower(rs[i+1])
		if lowerToUpper || acronymEnd {
			words = append(words, string(rs[start:i]))
			start = i
		}
	}
	if start < len(rs) {
		words = append(words, string(rs[start:]))
	}
	return words
}

// renderStatusBar produces a full-width inverted status line showing the
// current scene, the player, the inventory and the turn count.
func (m Model) renderStatusBar() string {
	s := m.engine.State

	left := " " + nodeDisplayName(m.engine.Path())
	if s.PlayerName != "" {
		left += " | " + s.PlayerName
	}
	if m.driver.media.Sound != "" {
		left += " | ♪"
	}

	right := fmt.Sprintf("T:%d ", s.Turn)
	if n := len(s.Inventory); n > 0 {
		candidate := fmt.Sprintf("Inv: %s | T:%d ", state.InventoryText(s), s.Turn)
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
			right = candidate
		} else {
			right = fmt.Sprintf("Inv: %d | T:%d ", n, s.Turn)
		}
	}

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
