package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/koscakluka/prep-core/core/autosave"
	"github.com/koscakluka/prep-core/core/interview"
	"github.com/koscakluka/prep-core/core/speech"
	"github.com/koscakluka/prep-core/core/timers"
	"gopkg.in/yaml.v3"
)

// Config holds the tunables of the session engine. Secrets are never read
// from the file, only from the environment.
type Config struct {
	API           APIConfig           `yaml:"api"`
	Assessment    AssessmentConfig    `yaml:"assessment"`
	Autosave      AutosaveConfig      `yaml:"autosave"`
	Interview     InterviewConfig     `yaml:"interview"`
	Speech        SpeechConfig        `yaml:"speech"`
	Transcription TranscriptionConfig `yaml:"transcription"`

	Credentials Credentials `yaml:"-"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type AssessmentConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
}

type AutosaveConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	Interval time.Duration `yaml:"interval"`
}

type InterviewConfig struct {
	StrictTurnTaking bool          `yaml:"strict_turn_taking"`
	Narration        bool          `yaml:"narration"`
	AutoMic          bool          `yaml:"auto_mic"`
	PushToTalk       bool          `yaml:"push_to_talk"`
	AutoAdvance      bool          `yaml:"auto_advance"`
	AutoAdvanceDelay time.Duration `yaml:"auto_advance_delay"`
	PreCountdown     time.Duration `yaml:"pre_countdown"`
	ThinkingMin      time.Duration `yaml:"thinking_min"`
	ThinkingMax      time.Duration `yaml:"thinking_max"`
	VoiceStyle       string        `yaml:"voice_style"`
}

type SpeechConfig struct {
	Platform speech.Platform `yaml:"platform"`
}

type TranscriptionConfig struct {
	Model       string `yaml:"model"`
	Language    string `yaml:"language"`
	SmartFormat bool   `yaml:"smart_format"`
}

type Credentials struct {
	DeepgramAPIKey string
	APIToken       string
}

func Defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
		Assessment: AssessmentConfig{TickInterval: timers.DefaultInterval},
		Autosave: AutosaveConfig{
			Debounce: autosave.DefaultDebounce,
			Interval: autosave.DefaultInterval,
		},
		Interview: InterviewConfig{
			StrictTurnTaking: true,
			Narration:        true,
			AutoAdvance:      true,
			AutoAdvanceDelay: interview.DefaultAutoAdvanceDelay,
			PreCountdown:     interview.DefaultPreCountdown,
			ThinkingMin:      interview.DefaultThinkingMin,
			ThinkingMax:      interview.DefaultThinkingMax,
			VoiceStyle:       string(speech.VoiceDefault),
		},
		Speech: SpeechConfig{Platform: speech.PlatformDevice},
		Transcription: TranscriptionConfig{
			Model:       "nova-3",
			Language:    "en-US",
			SmartFormat: true,
		},
	}
}

// ParseError is returned when a config file exists but cannot be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse config %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads path over the defaults. Keys missing from the file keep their
// default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	config := Defaults()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &config, nil
}

func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.API.BaseURL); err != nil || !u.IsAbs() {
		errs = append(errs, fmt.Errorf("api.base_url must be an absolute url, got %q", c.API.BaseURL))
	}
	if c.API.Timeout < 0 {
		errs = append(errs, errors.New("api.timeout cannot be negative"))
	}
	if c.Assessment.TickInterval <= 0 {
		errs = append(errs, errors.New("assessment.tick_interval must be positive"))
	}
	if c.Autosave.Debounce < 0 || c.Autosave.Interval <= 0 {
		errs = append(errs, errors.New("autosave.debounce cannot be negative and autosave.interval must be positive"))
	}

	iv := c.Interview
	if iv.PreCountdown < 0 || iv.AutoAdvanceDelay < 0 {
		errs = append(errs, errors.New("interview delays cannot be negative"))
	}
	if iv.ThinkingMin < 0 || iv.ThinkingMax < iv.ThinkingMin {
		errs = append(errs, fmt.Errorf("interview thinking delay range %s..%s is invalid", iv.ThinkingMin, iv.ThinkingMax))
	}
	if _, err := speech.ParseVoiceStyle(iv.VoiceStyle); err != nil {
		errs = append(errs, fmt.Errorf("interview.voice_style: %w", err))
	}

	switch c.Speech.Platform {
	case speech.PlatformDevice, speech.PlatformBrowser:
	default:
		errs = append(errs, fmt.Errorf("unknown speech.platform %q", c.Speech.Platform))
	}
	if c.Transcription.Model == "" {
		errs = append(errs, errors.New("transcription.model must be set"))
	}

	return errors.Join(errs...)
}
