package action

import (
	"fmt"
	"math"
	"net/url"
	"strings"
)

type Platform string

const (
	Spotify Platform = "spotify"
	YouTube Platform = "youtube"
)

func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case Spotify, YouTube:
		return p, nil
	case "":
		return Spotify, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

func (p Platform) MediaType() string {
	if p == YouTube {
		return "video"
	}
	return "music"
}

func (p Platform) Title() string {
	if p == YouTube {
		return "YouTube"
	}
	return "Spotify"
}

var Genres = []string{
	"pop", "rock", "hip-hop", "r-n-b", "edm", "dance",
	"jazz", "classical", "k-pop", "lofi", "indie",
	"metal", "country", "blues", "reggae", "punk",
}

const DefaultGenre = "pop"

func ValidGenre(genre string) bool {
	for _, g := range Genres {
		if g == genre {
			return true
		}
	}
	return false
}

type Recommendation struct {
	Platform  Platform `json:"platform"`
	MediaType string   `json:"media_type"`
	Header    string   `json:"header"`
	LinkText  string   `json:"link_text"`
	URL       string   `json:"url"`
}

// Recommend builds the search link for a character and genre.
func Recommend(rec Record, genre string, platform Platform) Recommendation {
	mood := string(rec.Label)
	out := Recommendation{
		Platform:  platform,
		MediaType: platform.MediaType(),
		Header:    fmt.Sprintf("%s recommends this %s to Riley", rec.Name, platform.MediaType()),
	}

	switch platform {
	case YouTube:
		out.LinkText = "Explore on YouTube →"
		out.URL = "https://www.youtube.com/results?search_query=" +
			url.PathEscape(fmt.Sprintf("%s %s music video", genre, mood))
	default:
		out.Platform = Spotify
		out.LinkText = fmt.Sprintf("Open %s's Playlist →", rec.Name)
		out.URL = fmt.Sprintf(
			"https://open.spotify.com/search/%s%%20%s",
			url.PathEscape(genre),
			url.PathEscape(mood),
		)
	}
	return out
}

// Banner is the one-line summary shown once a label is chosen.
func Banner(rec Record, score float64) string {
	return fmt.Sprintf(
		"Core Memory Formed: %s %s (%d%% Energy)",
		rec.Emoji,
		strings.ToUpper(rec.Name),
		int(math.Round(score*100)),
	)
}
