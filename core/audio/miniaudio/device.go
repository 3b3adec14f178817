package miniaudio

import (
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/prep-core/core/sessions"
)

// Device owns the miniaudio context shared by the recorder and the player.
type Device struct {
	audioContext *malgo.AllocatedContext
}

func NewDevice() (*Device, error) {
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, sessions.NewError(sessions.ErrorPermission, "open audio context", err)
	}

	return &Device{audioContext: audioCtx}, nil
}

func (d *Device) NewRecorder() (*Recorder, error) {
	recorder := &Recorder{}
	if err := recorder.init(d.audioContext); err != nil {
		return nil, sessions.NewError(sessions.ErrorPermission, "open microphone", err)
	}
	return recorder, nil
}

func (d *Device) NewPlayer() (*Player, error) {
	player := &Player{}
	if err := player.init(d.audioContext); err != nil {
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	if err := player.start(); err != nil {
		player.Close()
		return nil, err
	}
	return player, nil
}

func (d *Device) Close() {
	if d == nil || d.audioContext == nil {
		return
	}
	_ = d.audioContext.Uninit()
	d.audioContext.Free()
	d.audioContext = nil
}
