package texttospeech

import (
	"context"

	"github.com/koscakluka/prep-core/core/audio"
)

type SynthesisOptions struct {
	// AudioCallback receives audio as it is produced, in order.
	AudioCallback func(audio []byte)
	EncodingInfo  audio.EncodingInfo
}

type SynthesisOption func(*SynthesisOptions)

func WithAudioCallback(callback func([]byte)) SynthesisOption {
	return func(o *SynthesisOptions) { o.AudioCallback = callback }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SynthesisOption {
	return func(o *SynthesisOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

func NewSynthesisOptions(opts ...SynthesisOption) SynthesisOptions {
	options := SynthesisOptions{
		AudioCallback: func([]byte) {},
		EncodingInfo:  audio.DefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.AudioCallback == nil {
		options.AudioCallback = func([]byte) {}
	}
	return options
}

// Synthesizer turns a piece of text into audio. Synthesize returns once all
// audio for text has been handed to the audio callback.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string, opts ...SynthesisOption) error
}
