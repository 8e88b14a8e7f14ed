package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Terminal styles for the plantcare CLI.

const (
	IconPlant   = "🪴"
	IconDrop    = "💧"
	IconDone    = "✅"
	IconSkip    = "⏭"
	IconFail    = "❌"
	IconClock   = "⏰"
	IconHeart   = "💚"
	IconError   = "🥀"
	IconLoop    = "🔁"
	IconGauge   = "📊"
	IconRunning = "▶️"
)

var (
	cPrimary = lipgloss.Color("35")  // leaf green
	cAccent  = lipgloss.Color("78")  // mint
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	Gold  = lipgloss.NewStyle().Bold(true).Foreground(cGold)

	Panel = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
)

func Heading(icon string, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// Score colors a 0-100 health score.
func Score(score int) string {
	text := fmt.Sprintf("%d/100", score)
	switch {
	case score >= 80:
		return Good.Render(text)
	case score >= 50:
		return Warn.Render(text)
	default:
		return Bad.Render(text)
	}
}

// Count renders n with style when it is non-zero and muted otherwise.
func Count(n int, style lipgloss.Style) string {
	if n == 0 {
		return Muted.Render("0")
	}
	return style.Render(fmt.Sprintf("%d", n))
}
