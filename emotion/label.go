package emotion

import "strings"

// Label is one of the seven emotions the classifier reports.
type Label string

const (
	Joy      Label = "joy"
	Sadness  Label = "sadness"
	Anger    Label = "anger"
	Fear     Label = "fear"
	Surprise Label = "surprise"
	Disgust  Label = "disgust"
	Neutral  Label = "neutral"
)

// Labels lists the closed label set in display order.
var Labels = []Label{Joy, Sadness, Anger, Fear, Surprise, Disgust, Neutral}

func (l Label) Valid() bool {
	for _, known := range Labels {
		if l == known {
			return true
		}
	}
	return false
}

func (l Label) String() string { return string(l) }

// ParseLabel normalizes s and reports whether it names a known label.
// The normalized label is returned even when it is unknown.
func ParseLabel(s string) (Label, bool) {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	return l, l.Valid()
}
