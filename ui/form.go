package ui

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"node.town/attacca/action"
)

type Preferences struct {
	Platform string
	Genre    string
	Duration int
}

// AskPreferences lets the user pick platform, genre and duration,
// starting from the values already in p.
func AskPreferences(p *Preferences) error {
	platforms := []huh.Option[string]{
		huh.NewOption("Spotify", string(action.Spotify)),
		huh.NewOption("YouTube", string(action.YouTube)),
	}

	durations := make([]huh.Option[int], 0, 8)
	for s := 3; s <= 10; s++ {
		durations = append(durations, huh.NewOption(fmt.Sprintf("%d seconds", s), s))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Medium").
				Options(platforms...).
				Value(&p.Platform),
			huh.NewSelect[string]().
				Title("Preferred Genre").
				Options(huh.NewOptions(action.Genres...)...).
				Value(&p.Genre),
			huh.NewSelect[int]().
				Title("Orb Energy Duration").
				Options(durations...).
				Value(&p.Duration),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("preferences form: %w", err)
	}
	return nil
}
