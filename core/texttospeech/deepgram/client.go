package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/prep-core/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultEndpoint = "wss://api.deepgram.com/v1/speak"

var ErrMissingAPIKey = errors.New("deepgram api key not set")

// Client synthesizes speech over the Deepgram speak websocket. Each call to
// Synthesize uses its own connection.
type Client struct {
	apiKey   string
	endpoint string
	dialer   *websocket.Dialer
}

type ClientOption func(*Client)

// WithEndpoint overrides the speak websocket URL.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) { c.endpoint = endpoint }
}

func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *Client) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{apiKey: apiKey, endpoint: defaultEndpoint, dialer: websocket.DefaultDialer}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ texttospeech.Synthesizer = (*Client)(nil)

// Synthesize speaks text with voice and streams the audio to the callback.
// It returns when the service confirms the text has been flushed. An empty
// voice uses the default one.
func (c *Client) Synthesize(ctx context.Context, text, voice string, opts ...texttospeech.SynthesisOption) (err error) {
	options := texttospeech.NewSynthesisOptions(opts...)
	if voice == "" {
		voice = string(defaultVoice)
	}

	ctx, span := tracer.Start(ctx, "synthesize speech", trace.WithAttributes(
		attribute.String("tts.voice", voice),
		attribute.Int("tts.text_length", len(text)),
	))
	defer func() {
		if err != nil && !errors.Is(err, context.Canceled) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ws, err := c.connect(ctx, Voice(voice), options)
	if err != nil {
		return err
	}
	req := &request{ws: ws}
	defer req.close()

	flushed := make(chan error, 1)
	go req.readMessages(ctx, options.AudioCallback, flushed)

	if err := req.send(speakMessage{Type: "Speak", Text: text}); err != nil {
		return err
	}
	if err := req.send(controlMessage{Type: "Flush"}); err != nil {
		return err
	}

	select {
	case err := <-flushed:
		return err
	case <-ctx.Done():
		if err := req.send(controlMessage{Type: "Clear"}); err != nil {
			logger.DebugContext(ctx, "failed to clear speech", "error", err)
		}
		return ctx.Err()
	}
}

func (c *Client) connect(ctx context.Context, voice Voice, options texttospeech.SynthesisOptions) (*websocket.Conn, error) {
	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid speak endpoint: %w", err)
	}

	query := endpoint.Query()
	if err := encodingQuery(options.EncodingInfo, query); err != nil {
		return nil, fmt.Errorf("invalid encoding: %w", err)
	}
	query.Set("model", string(voice))
	endpoint.RawQuery = query.Encode()

	ws, _, err := c.dialer.DialContext(ctx, endpoint.String(),
		http.Header{"Authorization": {"token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return ws, nil
}

type request struct {
	ws *websocket.Conn
	mu sync.Mutex
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type controlMessage struct {
	Type string `json:"type"`
}

func (r *request) readMessages(ctx context.Context, onAudio func([]byte), flushed chan<- error) {
	for {
		msgType, msg, err := r.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				err = errors.New("speak connection closed before flush")
			}
			flushed <- fmt.Errorf("failed to read speech: %w", err)
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(msg) > 0 {
				onAudio(msg)
			}
		case websocket.TextMessage:
			var parsed struct {
				Type        string `json:"type"`
				Description string `json:"description"`
			}
			if err := json.Unmarshal(msg, &parsed); err != nil {
				logger.DebugContext(ctx, "failed to unmarshal deepgram message", "error", err)
				continue
			}

			switch parsed.Type {
			case "Flushed":
				flushed <- nil
				return
			case "Error":
				flushed <- fmt.Errorf("deepgram speak error: %s", parsed.Description)
				return
			}
		}
	}
}

func (r *request) send(msg any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}

func (r *request) close() {
	if err := r.send(controlMessage{Type: "Close"}); err != nil {
		logger.Debug("failed to send close message", "error", err)
	}
	_ = r.ws.Close()
}
