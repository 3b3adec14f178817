package speech

import (
	"fmt"
	"strings"
)

// VoiceStyle is a hint for which voice should read a question.
type VoiceStyle string

const (
	VoiceDefault   VoiceStyle = "default"
	VoiceFeminine  VoiceStyle = "feminine"
	VoiceMasculine VoiceStyle = "masculine"
)

func ParseVoiceStyle(s string) (VoiceStyle, error) {
	switch style := VoiceStyle(strings.ToLower(strings.TrimSpace(s))); style {
	case "", VoiceDefault:
		return VoiceDefault, nil
	case VoiceFeminine, VoiceMasculine:
		return style, nil
	default:
		return "", fmt.Errorf("unknown voice style %q", s)
	}
}

// Voice is one synthesis voice offered by a speech engine.
type Voice struct {
	Name    string `json:"name"`
	Lang    string `json:"lang"`
	Default bool   `json:"default"`
}

var styleHints = map[VoiceStyle][]string{
	VoiceFeminine: {
		"female", "woman", "samantha", "victoria", "karen", "zira", "susan",
		"moira", "tessa", "fiona", "serena", "allison", "ava", "aria", "jenny",
	},
	VoiceMasculine: {
		"male", "man", "daniel", "alex", "david", "fred", "mark", "george",
		"guy", "james", "oliver", "rishi", "tom",
	},
}

// SelectVoice picks the voice whose name best matches style. Names are
// split into words so "Female" never counts as a "male" hint. Without a
// match it falls back to the first voice. It returns false only when
// voices is empty.
func SelectVoice(voices []Voice, style VoiceStyle) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}

	if hints, ok := styleHints[style]; ok {
		for _, voice := range voices {
			words := nameWords(voice.Name)
			for _, hint := range hints {
				if words[hint] {
					return voice, true
				}
			}
		}
	}

	return voices[0], true
}

func nameWords(name string) map[string]bool {
	words := make(map[string]bool)
	for _, word := range strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		words[word] = true
	}
	return words
}
