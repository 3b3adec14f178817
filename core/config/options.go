package config

import (
	"github.com/koscakluka/prep-core/core/assessment"
	"github.com/koscakluka/prep-core/core/autosave"
	"github.com/koscakluka/prep-core/core/interview"
	"github.com/koscakluka/prep-core/core/sessionapi"
	"github.com/koscakluka/prep-core/core/speech"
	"github.com/koscakluka/prep-core/core/speechtotext"
)

func (c *Config) AutosaveOptions() []autosave.Option {
	return []autosave.Option{
		autosave.WithDebounce(c.Autosave.Debounce),
		autosave.WithInterval(c.Autosave.Interval),
	}
}

func (c *Config) AssessmentOptions() []assessment.MachineOption {
	return []assessment.MachineOption{
		assessment.WithTickInterval(c.Assessment.TickInterval),
		assessment.WithAutosaveOptions(c.AutosaveOptions()...),
	}
}

// InterviewOptions does not include narration or capture, those need live
// devices and are wired by the caller.
func (c *Config) InterviewOptions() []interview.OrchestratorOption {
	iv := c.Interview
	style, err := speech.ParseVoiceStyle(iv.VoiceStyle)
	if err != nil {
		style = speech.VoiceDefault
	}
	return []interview.OrchestratorOption{
		interview.WithStrictTurnTaking(iv.StrictTurnTaking),
		interview.WithAutoMic(iv.AutoMic),
		interview.WithPushToTalk(iv.PushToTalk),
		interview.WithAutoAdvance(iv.AutoAdvance, iv.AutoAdvanceDelay),
		interview.WithPreCountdown(iv.PreCountdown),
		interview.WithThinkingDelay(iv.ThinkingMin, iv.ThinkingMax),
		interview.WithVoiceStyle(style),
	}
}

func (c *Config) TranscriptionOptions() []speechtotext.TranscriptionOption {
	return []speechtotext.TranscriptionOption{
		speechtotext.WithModel(c.Transcription.Model),
		speechtotext.WithLanguage(c.Transcription.Language),
		speechtotext.WithSmartFormat(c.Transcription.SmartFormat),
	}
}

// NewAPIClient builds the backend client from the api section and the
// credentials.
func (c *Config) NewAPIClient(opts ...sessionapi.ClientOption) (*sessionapi.Client, error) {
	base := []sessionapi.ClientOption{sessionapi.WithTimeout(c.API.Timeout)}
	if c.Credentials.APIToken != "" {
		base = append(base, sessionapi.WithToken(c.Credentials.APIToken))
	}
	return sessionapi.NewClient(c.API.BaseURL, append(base, opts...)...)
}
