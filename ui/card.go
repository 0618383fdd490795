package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"node.town/attacca/pipeline"
)

// RenderReading draws the outcome of a recording as a coloured card.
func RenderReading(r *pipeline.Reading, width int) string {
	if width <= 0 {
		width = 60
	}

	if r == nil || !r.Classified() {
		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#808080")).
			Padding(1, 2).
			Width(width)
		msg := "Nothing captured. Try again a little closer to the mic."
		if r != nil && r.Canceled && r.Transcript != "" {
			msg = fmt.Sprintf("Stopped early.\n\n“%s”", r.Transcript)
		}
		return box.Render(msg)
	}

	rec := r.Action
	text := lipgloss.Color(rec.Text)
	color := lipgloss.Color(rec.Color)

	quote := lipgloss.NewStyle().
		Italic(true).
		Foreground(text).
		Render(fmt.Sprintf("“%s”", r.Transcript))

	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(text).
		Border(lipgloss.NormalBorder()).
		BorderForeground(text).
		Padding(0, 1).
		Render(r.Banner)

	recommendation := lipgloss.JoinVertical(
		lipgloss.Center,
		lipgloss.NewStyle().Bold(true).Foreground(text).Render(r.Recommendation.Header),
		lipgloss.NewStyle().Foreground(color).Bold(true).Render(r.Recommendation.LinkText),
		lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(r.Recommendation.URL),
	)
	recBox := lipgloss.NewStyle().
		Background(lipgloss.Color(rec.Darker)).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(1, 2).
		Render(recommendation)

	body := lipgloss.JoinVertical(lipgloss.Center, quote, "", banner, "", recBox)

	return lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(color).
		Padding(1, 2).
		Width(width).
		Align(lipgloss.Center).
		Render(body)
}

// PlainReading is the uncoloured form, for --plain and pipes.
func PlainReading(r *pipeline.Reading) string {
	if r == nil || !r.Classified() {
		if r != nil && r.Canceled && r.Transcript != "" {
			return fmt.Sprintf("Stopped early: %q\n", r.Transcript)
		}
		return "Nothing captured.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "“%s”\n", r.Transcript)
	fmt.Fprintln(&b, r.Banner)
	fmt.Fprintln(&b, r.Recommendation.Header)
	fmt.Fprintf(&b, "%s %s\n", r.Recommendation.LinkText, r.Recommendation.URL)
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	return b.String()
}
