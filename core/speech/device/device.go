package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/koscakluka/prep-core/core/audio"
	"github.com/koscakluka/prep-core/core/speech"
	"github.com/koscakluka/prep-core/core/texttospeech"
)

// Player is the speaker side of the device backend.
type Player interface {
	Write(samples []byte) error
	AwaitMark(ctx context.Context) error
	Clear()
	EncodingInfo() audio.EncodingInfo
}

// VoiceMapper turns a voice style into the synthesizer's voice name.
type VoiceMapper func(speech.VoiceStyle) string

// Backend synthesizes text on the host and plays it through the speakers.
type Backend struct {
	synthesizer texttospeech.Synthesizer
	player      Player
	voiceFor    VoiceMapper
}

func NewBackend(synthesizer texttospeech.Synthesizer, player Player, voiceFor VoiceMapper) *Backend {
	if voiceFor == nil {
		voiceFor = func(speech.VoiceStyle) string { return "" }
	}
	return &Backend{synthesizer: synthesizer, player: player, voiceFor: voiceFor}
}

var _ speech.Backend = (*Backend)(nil)

// Speak returns once the synthesized audio has been played. Cancelling ctx
// drops whatever is still queued on the player.
func (b *Backend) Speak(ctx context.Context, text string, style speech.VoiceStyle) error {
	if b.synthesizer == nil || b.player == nil {
		return errors.New("device speech is not configured")
	}

	var writeErr error
	err := b.synthesizer.Synthesize(ctx, text, b.voiceFor(style),
		texttospeech.WithEncodingInfo(b.player.EncodingInfo()),
		texttospeech.WithAudioCallback(func(samples []byte) {
			if writeErr == nil {
				writeErr = b.player.Write(samples)
			}
		}))
	if err != nil {
		b.player.Clear()
		return fmt.Errorf("failed to synthesize speech: %w", err)
	}
	if writeErr != nil {
		b.player.Clear()
		return fmt.Errorf("failed to play speech: %w", writeErr)
	}

	if err := b.player.AwaitMark(ctx); err != nil {
		b.player.Clear()
		return err
	}
	return nil
}
