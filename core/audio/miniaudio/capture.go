package miniaudio

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/prep-core/core/audio"
	"github.com/koscakluka/prep-core/core/capture"
	"github.com/koscakluka/prep-core/core/sessions"
)

var _ capture.Recorder = (*Recorder)(nil)

// Recorder captures microphone audio into memory between Start and Stop.
type Recorder struct {
	device *malgo.Device
	info   audio.EncodingInfo

	mu        sync.Mutex
	buffer    bytes.Buffer
	recording bool
}

func (r *Recorder) init(audioContext *malgo.AllocatedContext) error {
	r.info = audio.DefaultEncodingInfo()
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * r.info.Channels

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(r.info.SampleRate)
	config.Capture.Format = format
	config.Capture.Channels = uint32(r.info.Channels)
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = 480
	config.Periods = 3

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(input) < n || n == 0 {
				return
			}

			r.mu.Lock()
			defer r.mu.Unlock()
			if r.recording {
				r.buffer.Write(input[:n])
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	r.device = device
	return nil
}

// Start begins buffering audio. Starting an active recorder does nothing.
func (r *Recorder) Start(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.device == nil {
		return fmt.Errorf("device not initialized")
	}
	if r.recording {
		return nil
	}

	r.buffer.Reset()
	if err := r.device.Start(); err != nil {
		return sessions.NewError(sessions.ErrorPermission, "start capture", err)
	}
	r.recording = true
	return nil
}

// Stop ends the recording and returns everything captured since Start.
func (r *Recorder) Stop() ([]byte, error) {
	r.mu.Lock()
	if r.device == nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("device not initialized")
	}
	if !r.recording {
		r.mu.Unlock()
		return nil, nil
	}
	r.recording = false
	captured := bytes.Clone(r.buffer.Bytes())
	r.buffer.Reset()
	device := r.device
	r.mu.Unlock()

	// The data callback takes r.mu, so the device is stopped without it.
	if err := device.Stop(); err != nil {
		return captured, fmt.Errorf("failed to stop capture device: %w", err)
	}
	return captured, nil
}

func (r *Recorder) EncodingInfo() audio.EncodingInfo {
	return r.info
}

func (r *Recorder) Close() {
	r.mu.Lock()
	device := r.device
	r.device = nil
	r.recording = false
	r.mu.Unlock()

	if device != nil {
		device.Uninit()
	}
}
