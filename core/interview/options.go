package interview

import (
	"context"
	"time"

	"github.com/koscakluka/prep-core/core/capture"
	"github.com/koscakluka/prep-core/core/events"
	"github.com/koscakluka/prep-core/core/speech"
)

const (
	DefaultPreCountdown     = 3 * time.Second
	DefaultThinkingMin      = time.Second
	DefaultThinkingMax      = 2500 * time.Millisecond
	DefaultAutoAdvanceDelay = 2 * time.Second
)

// Narrator reads questions aloud. *speech.Adapter is the production one.
type Narrator interface {
	Speak(ctx context.Context, questionID, text string, style speech.VoiceStyle) *speech.Playback
	Cancel()
}

// Capture records and transcribes spoken answers. *capture.Pipeline is the
// production one.
type Capture interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (string, error)
	Cancel()
	Reset()
	Transcript() string
	IsRecording() bool
}

var (
	_ Narrator = (*speech.Adapter)(nil)
	_ Capture  = (*capture.Pipeline)(nil)
)

type OrchestratorOption func(*Orchestrator)

// WithStrictTurnTaking keeps answer input locked until the question has been
// presented. Without it input is available as soon as the question starts.
func WithStrictTurnTaking(strict bool) OrchestratorOption {
	return func(o *Orchestrator) { o.strict = strict }
}

// WithNarration reads every question aloud before listening.
func WithNarration(narrator Narrator) OrchestratorOption {
	return func(o *Orchestrator) { o.narrator = narrator }
}

func WithVoiceStyle(style speech.VoiceStyle) OrchestratorOption {
	return func(o *Orchestrator) { o.voiceStyle = style }
}

func WithCapture(capture Capture) OrchestratorOption {
	return func(o *Orchestrator) { o.capture = capture }
}

// WithAutoMic starts capturing as soon as input unlocks, unless push-to-talk
// is enabled.
func WithAutoMic(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) { o.autoMic = enabled }
}

func WithPushToTalk(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) { o.pushToTalk = enabled }
}

// WithAutoAdvance moves to the next question after delay once feedback is
// shown. A disabled auto-advance waits for Continue.
func WithAutoAdvance(enabled bool, delay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.autoAdvance = enabled
		if delay > 0 {
			o.autoAdvanceDelay = delay
		}
	}
}

func WithPreCountdown(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.preCountdown = d
		}
	}
}

// WithThinkingDelay bounds the randomized pause before each question.
func WithThinkingDelay(low, high time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if low < 0 || high < low {
			return
		}
		o.thinkingMin, o.thinkingMax = low, high
	}
}

// WithTickInterval shortens the one second tick of the elapsed clock.
func WithTickInterval(interval time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if interval > 0 {
			o.tickInterval = interval
		}
	}
}

func WithEventHandler(handler events.Handler) OrchestratorOption {
	return func(o *Orchestrator) {
		if handler != nil {
			o.emit = handler
		}
	}
}

// WithContext sets the context that background work derives from.
func WithContext(ctx context.Context) OrchestratorOption {
	return func(o *Orchestrator) {
		if ctx != nil {
			o.baseContext = ctx
		}
	}
}
