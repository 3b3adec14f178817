package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/prep-core/core/audio"
)

// Player plays queued PCM and reports when playback passes a mark.
type Player struct {
	device *malgo.Device
	info   audio.EncodingInfo

	mu      sync.Mutex
	pending []byte
	marks   []playbackMark
}

type playbackMark struct {
	name     string
	position int
	callback func(string)
}

func (p *Player) init(audioContext *malgo.AllocatedContext) error {
	p.info = audio.DefaultEncodingInfo()
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * p.info.Channels

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(p.info.SampleRate)
	config.Playback.Format = format
	config.Playback.Channels = uint32(p.info.Channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(p.info.SampleRate / 10) // ~100ms of audio
	config.Periods = 4

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: p.processAudio(bytesPerFrame),
	})
	if err != nil {
		return err
	}

	p.device = device
	return nil
}

func (p *Player) start() error {
	if err := p.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

func (p *Player) EncodingInfo() audio.EncodingInfo {
	return p.info
}

// Write queues audio for playback.
func (p *Player) Write(samples []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device == nil {
		return fmt.Errorf("device not initialized")
	}
	p.pending = append(p.pending, samples...)
	return nil
}

// Mark calls callback once everything queued so far has been played. Marks
// dropped by Clear are called too, so nobody waits forever.
func (p *Player) Mark(name string, callback func(string)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.marks = append(p.marks, playbackMark{name: name, position: len(p.pending), callback: callback})
}

// AwaitMark blocks until the queued audio has been played.
func (p *Player) AwaitMark(ctx context.Context) error {
	played := make(chan struct{})
	p.Mark("", func(string) { close(played) })

	select {
	case <-played:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clear drops queued audio and releases pending marks.
func (p *Player) Clear() {
	p.mu.Lock()
	p.pending = nil
	dropped := p.marks
	p.marks = nil
	p.mu.Unlock()

	for _, mark := range dropped {
		mark.callback(mark.name)
	}
}

func (p *Player) Close() {
	p.Clear()

	p.mu.Lock()
	device := p.device
	p.device = nil
	p.mu.Unlock()

	if device != nil {
		device.Uninit()
	}
}

func (p *Player) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(output, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		p.mu.Lock()
		n := copy(output[:min(need, len(output))], p.pending)
		p.pending = p.pending[n:]
		passed := p.advanceMarksLocked(n, need)
		p.mu.Unlock()

		if len(passed) > 0 {
			go func() {
				for _, mark := range passed {
					mark.callback(mark.name)
				}
			}()
		}
	}
}

// advanceMarksLocked moves marks forward by the played bytes. When the queue
// ran dry every remaining mark has been reached.
func (p *Player) advanceMarksLocked(played, requested int) []playbackMark {
	passed := 0
	for i := range p.marks {
		p.marks[i].position -= played
		if p.marks[i].position <= 0 || played < requested {
			passed = i + 1
		}
	}
	if passed == 0 {
		return nil
	}

	done := p.marks[:passed:passed]
	p.marks = p.marks[passed:]
	return done
}
