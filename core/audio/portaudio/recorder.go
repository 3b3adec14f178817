package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/prep-core/core/audio"
	"github.com/koscakluka/prep-core/core/capture"
	"github.com/koscakluka/prep-core/core/sessions"
)

const DefaultBufferSize = 480

var _ capture.Recorder = (*Recorder)(nil)

// Recorder reads the default input device on a background loop while
// recording. It is the blocking-stream alternative to the miniaudio
// recorder.
type Recorder struct {
	stream *portaudio.Stream
	in     []int16

	mu        sync.Mutex
	buffer    bytes.Buffer
	recording bool
	stop      chan struct{}
	done      chan struct{}
}

func NewRecorder(bufferSize int) (*Recorder, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, sessions.NewError(sessions.ErrorPermission, "initialize portaudio", err)
	}

	in := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(audio.DefaultChannels, 0, audio.DefaultSampleRate, bufferSize, in)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, sessions.NewError(sessions.ErrorPermission, "open microphone", err)
	}

	return &Recorder{stream: stream, in: in}, nil
}

func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return nil
	}
	if err := r.stream.Start(); err != nil {
		return sessions.NewError(sessions.ErrorPermission, "start capture", err)
	}

	r.buffer.Reset()
	r.recording = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.read(ctx, r.stop, r.done)
	return nil
}

func (r *Recorder) read(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	frame := bytes.Buffer{}
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := r.stream.Read(); err != nil {
			logger.WarnContext(ctx, "failed to read from input stream", "error", err)
			continue
		}

		frame.Reset()
		_ = binary.Write(&frame, binary.LittleEndian, r.in)
		r.mu.Lock()
		r.buffer.Write(frame.Bytes())
		r.mu.Unlock()
	}
}

func (r *Recorder) Stop() ([]byte, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil, nil
	}
	r.recording = false
	close(r.stop)
	done := r.done
	r.mu.Unlock()

	<-done

	r.mu.Lock()
	captured := bytes.Clone(r.buffer.Bytes())
	r.buffer.Reset()
	r.mu.Unlock()

	if err := r.stream.Stop(); err != nil {
		return captured, fmt.Errorf("failed to stop input stream: %w", err)
	}
	return captured, nil
}

func (r *Recorder) EncodingInfo() audio.EncodingInfo {
	return audio.DefaultEncodingInfo()
}

func (r *Recorder) Close() {
	_, _ = r.Stop()
	_ = r.stream.Close()
	_ = portaudio.Terminate()
}
