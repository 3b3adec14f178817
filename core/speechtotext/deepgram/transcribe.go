package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/prep-core/core/audio"
	"github.com/koscakluka/prep-core/core/capture"
	"github.com/koscakluka/prep-core/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultEndpoint = "wss://api.deepgram.com/v1/listen"
	// chunkDuration is how much audio goes into one websocket frame.
	chunkDuration = 100 * time.Millisecond
)

const errorResponse api.TypeResponse = "Error"

var ErrMissingAPIKey = errors.New("deepgram api key not set")

// TranscriptionClient transcribes finished captures over the Deepgram listen
// websocket. Every capture gets its own connection.
type TranscriptionClient struct {
	apiKey   string
	endpoint string
	dialer   *websocket.Dialer
	options  speechtotext.TranscriptionOptions
}

type ClientOption func(*TranscriptionClient)

// WithEndpoint overrides the listen websocket URL.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *TranscriptionClient) { c.endpoint = endpoint }
}

func WithTranscriptionOptions(opts ...speechtotext.TranscriptionOption) ClientOption {
	return func(c *TranscriptionClient) {
		for _, opt := range opts {
			opt(&c.options)
		}
	}
}

var _ capture.Transcriber = (*TranscriptionClient)(nil)

func NewTranscriptionClient(apiKey string, opts ...ClientOption) (*TranscriptionClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &TranscriptionClient{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		dialer:   websocket.DefaultDialer,
		options:  speechtotext.NewTranscriptionOptions(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Transcribe sends samples, asks the service to finish, and joins every
// final transcript it returns.
func (c *TranscriptionClient) Transcribe(ctx context.Context, samples []byte, info audio.EncodingInfo) (transcript string, err error) {
	ctx, span := tracer.Start(ctx, "transcribe audio", trace.WithAttributes(
		attribute.Int("stt.bytes", len(samples)),
		attribute.String("stt.model", c.options.Model),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	encoding, err := convertEncoding(info)
	if err != nil {
		return "", fmt.Errorf("invalid encoding: %w", err)
	}

	conn, err := c.connect(ctx, *encoding)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	results := make(chan result, 1)
	go readTranscripts(ctx, conn, results)

	if err := sendAudio(conn, samples, chunkSize(info)); err != nil {
		return "", err
	}

	select {
	case res := <-results:
		return res.transcript, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *TranscriptionClient) connect(ctx context.Context, encoding encodingInfo) (*websocket.Conn, error) {
	listenUrl, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid listen endpoint: %w", err)
	}

	queryParams := listenUrl.Query()
	queryParams.Set("encoding", encoding.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	queryParams.Set("channels", strconv.Itoa(encoding.Channels))
	queryParams.Set("model", c.options.Model)
	queryParams.Set("language", c.options.Language)
	queryParams.Set("smart_format", strconv.FormatBool(c.options.SmartFormat))
	listenUrl.RawQuery = queryParams.Encode()

	conn, _, err := c.dialer.DialContext(ctx, listenUrl.String(),
		http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}

func chunkSize(info audio.EncodingInfo) int {
	size := info.SampleRate * info.BytesPerFrame() * int(chunkDuration/time.Millisecond) / 1000
	if size <= 0 {
		return 3200
	}
	return size
}

func sendAudio(conn *websocket.Conn, samples []byte, size int) error {
	for start := 0; start < len(samples); start += size {
		end := min(start+size, len(samples))
		if err := conn.WriteMessage(websocket.BinaryMessage, samples[start:end]); err != nil {
			return fmt.Errorf("failed to write to deepgram client: %w", err)
		}
	}

	if err := conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return fmt.Errorf("failed to close deepgram stream: %w", err)
	}
	return nil
}

type result struct {
	transcript string
	err        error
}

// readTranscripts collects final transcripts until the service closes the
// connection after the stream was closed.
func readTranscripts(ctx context.Context, conn *websocket.Conn, results chan<- result) {
	var segments []string
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				results <- result{transcript: strings.Join(segments, " ")}
				return
			}
			results <- result{err: fmt.Errorf("failed to read deepgram websocket message: %w", err)}
			return
		}
		if msgType == websocket.BinaryMessage {
			continue
		}

		var parsedMsg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &parsedMsg); err != nil {
			logger.DebugContext(ctx, "failed to unmarshal deepgram message", "error", err)
			continue
		}

		switch api.TypeResponse(parsedMsg.Type) {
		case api.TypeMessageResponse:
			var msgResp api.MessageResponse
			if err := json.Unmarshal(msg, &msgResp); err != nil {
				logger.DebugContext(ctx, "failed to unmarshal deepgram result", "error", err)
				continue
			}
			if !msgResp.IsFinal || len(msgResp.Channel.Alternatives) == 0 {
				continue
			}
			if transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript); transcript != "" {
				segments = append(segments, transcript)
			}
		case errorResponse:
			results <- result{err: fmt.Errorf("deepgram transcription error: %s", msg)}
			return
		}
	}
}
