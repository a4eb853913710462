// Package speech sends replies to connected clients to be read out loud.
package speech

import "strings"

// Settings are the fixed synthesis parameters
type Settings struct {
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

func DefaultSettings() Settings {
	return Settings{Rate: 1.0, Pitch: 1.0, Volume: 0.8}
}

// Voice is a synthesis voice offered by a client
type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

var femaleHints = []string{"female", "woman", "samantha", "victoria", "karen", "zira", "susan", "serena", "moira", "tessa"}

// SelectVoice picks the voice a client should use. English voices whose
// name suggests a female speaker come first, then Google English voices,
// then any English voice. An empty name means the client default.
func SelectVoice(voices []Voice) string {
	var google, english string
	for _, v := range voices {
		if !strings.HasPrefix(strings.ToLower(v.Lang), "en") {
			continue
		}
		name := strings.ToLower(v.Name)
		for _, hint := range femaleHints {
			if strings.Contains(name, hint) {
				return v.Name
			}
		}
		if google == "" && strings.Contains(name, "google") {
			google = v.Name
		}
		if english == "" {
			english = v.Name
		}
	}
	if google != "" {
		return google
	}
	return english
}
