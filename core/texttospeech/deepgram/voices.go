package deepgram

import (
	"slices"

	"github.com/koscakluka/prep-core/core/speech"
)

type Voice string

const (
	VoiceThalia    Voice = "aura-2-thalia-en"
	VoiceAndromeda Voice = "aura-2-andromeda-en"
	VoiceHelena    Voice = "aura-2-helena-en"
	VoiceApollo    Voice = "aura-2-apollo-en"
	VoiceOrion     Voice = "aura-2-orion-en"
	VoiceArcas     Voice = "aura-2-arcas-en"

	defaultVoice = VoiceThalia
)

func AvailableVoices() []Voice {
	return []Voice{VoiceThalia, VoiceAndromeda, VoiceHelena, VoiceApollo, VoiceOrion, VoiceArcas}
}

func (v Voice) Valid() bool {
	return slices.Contains(AvailableVoices(), v)
}

// VoiceFor maps a voice style to the voice used for it.
func VoiceFor(style speech.VoiceStyle) Voice {
	switch style {
	case speech.VoiceMasculine:
		return VoiceOrion
	case speech.VoiceFeminine:
		return VoiceAndromeda
	default:
		return defaultVoice
	}
}
