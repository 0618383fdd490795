// Package action maps an emotion label to what the user sees: a character
// with its colours and image, and a recommendation link.
package action

import (
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"node.town/attacca/emotion"
)

// TextColor is the foreground used on every character's background.
const TextColor = "#ffffff"

type Record struct {
	Label  emotion.Label `json:"label"`
	Name   string        `json:"name"`
	Emoji  string        `json:"emoji"`
	Color  string        `json:"color"`
	Darker string        `json:"darker"`
	Text   string        `json:"text"`
	Image  string        `json:"image"`
}

var records = map[emotion.Label]Record{
	emotion.Joy:      {emotion.Joy, "Joy", "💛", "#FEE033", "#998200", TextColor, "joy.png"},
	emotion.Sadness:  {emotion.Sadness, "Sadness", "💙", "#4A90E2", "#214a7a", TextColor, "sadness.png"},
	emotion.Anger:    {emotion.Anger, "Anger", "🔴", "#E23E28", "#8b1a0d", TextColor, "anger.png"},
	emotion.Fear:     {emotion.Fear, "Fear", "🟣", "#A386D5", "#5e438a", TextColor, "fear.png"},
	emotion.Surprise: {emotion.Surprise, "Surprise", "🩷", "#FF4DD8", "#f71ccf", TextColor, "surprise.png"},
	emotion.Disgust:  {emotion.Disgust, "Disgust", "💚", "#76D672", "#3a6d38", TextColor, "disgust.png"},
	emotion.Neutral:  {emotion.Neutral, "Ennui", "⚪", "#808080", "#404040", TextColor, "neutral.png"},
}

// Map returns the record for label. Unknown labels get the neutral record.
func Map(label emotion.Label) Record {
	if rec, ok := records[label]; ok {
		return rec
	}
	return records[emotion.Neutral]
}

// Records returns every record in label order.
func Records() []Record {
	out := make([]Record, 0, len(emotion.Labels))
	for _, l := range emotion.Labels {
		out = append(out, records[l])
	}
	return out
}

func (r Record) ImagePath(dir string) string {
	return filepath.Join(dir, r.Image)
}

// ImageDataURI reads a PNG and returns it as a data URI. A missing or
// unreadable file yields "" and is only logged.
func ImageDataURI(path string, logger *log.Logger) string {
	if logger == nil {
		logger = log.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("image", "path", path, "error", err)
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}
