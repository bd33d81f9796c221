package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m model) View() string {
	cfg := config.Get()

	color := lipgloss.Color(m.color)
	highlight := lipgloss.NewStyle().Foreground(color)
	white := lipgloss.NewStyle().Foreground(lipgloss.Color("15")) // ANSI white

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(1, 2)

	labelStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	var textContent strings.Builder
	var progressBarContent string

	current := m.current()
	if current == nil {
		// Show friendly placeholder for "nothing playing" state
		textContent.WriteString(highlight.Render("󰓃 Now Playing") + "\n\n")
		textContent.WriteString(mutedStyle.Render("Nothing playing") + "\n\n")
		textContent.WriteString(dimStyle.Render("Start playing media to begin"))
	} else {
		header := "󰓃 Now Playing"
		if len(m.sessions) > 1 {
			header += dimStyle.Render(fmt.Sprintf("  %d/%d", m.selected+1, len(m.sessions)))
		}
		textContent.WriteString(highlight.Render(header) + "\n")
		textContent.WriteString(dimStyle.Render(represent(current.AppID)) + "\n\n")

		maxLen := m.maxTextLength()
		addLine := func(label, value string) {
			fmt.Fprintf(&textContent, "%s %s\n", labelStyle.Render(label), scrollText(value, maxLen, m.scrollOffset))
		}

		addLine("󰎈 ", represent(current.Title))
		addLine("󰠃 ", represent(current.Artist))
		addLine("󰀥 ", represent(current.AlbumTitle))

		statusIcon := "󰐊 " // play icon (default)
		switch current.PlaybackStatus {
		case StatusPaused:
			statusIcon = "󰏤 "
		case StatusStopped, StatusClosed:
			statusIcon = "󰓛 "
		}
		addLine(statusIcon, current.PlaybackStatus.String())

		if tl := current.Timeline; tl != nil && tl.DurationMs() > 0 {
			position := m.currentPositionMs() - tl.StartMs
			progress := float64(position) / float64(tl.DurationMs())
			if progress < 0 {
				progress = 0
			} else if progress > 1 {
				progress = 1
			}

			// Bar width leaves room for timestamps
			barWidth := cfg.UI.MaxWidth - 17
			filled := int(float64(barWidth) * progress)
			progressBar := highlight.Render(strings.Repeat("█", filled)) +
				white.Render(strings.Repeat("─", barWidth-filled))

			progressBarContent = fmt.Sprintf(
				"\n%s %s/%s",
				progressBar,
				highlight.Render(formatTime(position/1000)),
				highlight.Render(formatTime(tl.DurationMs()/1000)),
			)
		}
	}

	// Combine artwork and text content
	var topSection string
	if m.artworkEncoded != "" && m.artworkVisible() {
		paddedText := lipgloss.NewStyle().
			PaddingLeft(cfg.Artwork.Padding).
			Render(textContent.String())
		topSection = m.artworkEncoded + paddedText
	} else if m.supportsKitty {
		// Delete any image still on screen
		topSection = "\033_Ga=d,d=A\033\\" + textContent.String()
	} else {
		topSection = textContent.String()
	}

	contentStr := borderStyle.
		Width(cfg.UI.MaxWidth).
		Render(topSection + progressBarContent)

	var helpText string
	if m.showHelp {
		helpText = lipgloss.NewStyle().
			Width(cfg.UI.MaxWidth).
			Align(lipgloss.Center).
			Render(lipgloss.JoinHorizontal(
				lipgloss.Center,
				"Next: "+highlight.Render("tab"),
				"  Previous: "+highlight.Render("shift+tab"),
				"  Toggle Art: "+highlight.Render("a"),
				"  Quit: "+highlight.Render("q"),
				"  Hide: "+highlight.Render("?"),
			))
	} else {
		helpText = mutedStyle.Render("Press ? for help")
	}

	fullUI := lipgloss.JoinVertical(lipgloss.Center, contentStr, "\n"+helpText)

	return lipgloss.Place(
		m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		fullUI,
	)
}
