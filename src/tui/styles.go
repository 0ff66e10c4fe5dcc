package tui

import "github.com/charmbracelet/lipgloss"

// Palette names colours by role. Each colour adapts to light and dark
// terminal backgrounds.
type Palette struct {
	Title       lipgloss.AdaptiveColor
	Text        lipgloss.AdaptiveColor
	Muted       lipgloss.AdaptiveColor
	Border      lipgloss.AdaptiveColor
	FocusBorder lipgloss.AdaptiveColor
	Bar         lipgloss.AdaptiveColor
	Selection   lipgloss.AdaptiveColor

	Failure   lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
}

// DefaultPalette is the palette the viewer starts with.
func DefaultPalette() *Palette {
	return &Palette{
		Title:       lipgloss.AdaptiveColor{Light: "#1F4E9E", Dark: "#8AB4F8"},
		Text:        lipgloss.AdaptiveColor{Light: "#202124", Dark: "#E8EAED"},
		Muted:       lipgloss.AdaptiveColor{Light: "#5F6368", Dark: "#9AA0A6"},
		Border:      lipgloss.AdaptiveColor{Light: "#BDC1C6", Dark: "#5F6368"},
		FocusBorder: lipgloss.AdaptiveColor{Light: "#1A73E8", Dark: "#4285F4"},
		Bar:         lipgloss.AdaptiveColor{Light: "#F1F3F4", Dark: "#1E1E1E"},
		Selection:   lipgloss.AdaptiveColor{Light: "#E8F0FE", Dark: "#303134"},
		Failure:     lipgloss.AdaptiveColor{Light: "#C5221F", Dark: "#F28B82"},
		Success:     lipgloss.AdaptiveColor{Light: "#137333", Dark: "#81C995"},
		Highlight:   lipgloss.AdaptiveColor{Light: "#B06000", Dark: "#FDD663"},
	}
}

// State colours a build state; unknown states are muted.
func (p *Palette) State(state string) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch state {
	case "failure":
		return style.Foreground(p.Failure)
	case "success":
		return style.Foreground(p.Success)
	}
	return style.Foreground(p.Muted)
}

func (p *Palette) Help() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(p.Muted).Padding(0, 2)
}

// Panel is a rounded box whose border marks keyboard focus.
func (p *Palette) Panel(focused bool) lipgloss.Style {
	style := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.Border)
	if focused {
		style = style.BorderForeground(p.FocusBorder)
	}
	return style
}

// Heading is the bold title used above panels.
func (p *Palette) Heading() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(p.Title).Bold(true)
}
