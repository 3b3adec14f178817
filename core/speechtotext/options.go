package speechtotext

type TranscriptionOptions struct {
	Model       string
	Language    string
	SmartFormat bool
}

type TranscriptionOption func(*TranscriptionOptions)

func WithModel(model string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if model != "" {
			o.Model = model
		}
	}
}

func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if language != "" {
			o.Language = language
		}
	}
}

func WithSmartFormat(enabled bool) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.SmartFormat = enabled }
}

func NewTranscriptionOptions(opts ...TranscriptionOption) TranscriptionOptions {
	options := TranscriptionOptions{Model: "nova-3", Language: "en-US", SmartFormat: true}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
