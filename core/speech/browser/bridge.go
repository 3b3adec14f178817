package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/prep-core/core/speech"
)

var (
	ErrNotConnected = errors.New("no browser page connected")
	ErrDisconnected = errors.New("browser page disconnected")
)

const (
	messageSpeak  = "speak"
	messageCancel = "cancel"
	messageVoices = "voices"
	messageEnded  = "ended"
	messageError  = "error"
)

type message struct {
	Type   string        `json:"type"`
	ID     string        `json:"id,omitempty"`
	Text   string        `json:"text,omitempty"`
	Voice  string        `json:"voice,omitempty"`
	Voices []speech.Voice `json:"voices,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// Bridge is the browser speech backend. A page running speechSynthesis
// connects over a websocket, reports its voices and speaks what it is sent.
// The latest page to connect replaces any earlier one.
type Bridge struct {
	upgrader     websocket.Upgrader
	writeTimeout time.Duration

	mu     sync.Mutex
	conn   *connection
	voices []speech.Voice
}

// connection is one connected page. Requests are pending on the page they
// were sent to, so a replaced page still releases its own requests.
type connection struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	// pending and closed are guarded by Bridge.mu.
	pending map[string]chan error
	closed  bool
}

type Option func(*Bridge)

// WithCheckOrigin replaces the same-origin check of the websocket upgrade.
func WithCheckOrigin(check func(r *http.Request) bool) Option {
	return func(b *Bridge) {
		b.upgrader.CheckOrigin = check
	}
}

func WithWriteTimeout(timeout time.Duration) Option {
	return func(b *Bridge) {
		if timeout > 0 {
			b.writeTimeout = timeout
		}
	}
}

var _ speech.Backend = (*Bridge)(nil)

func NewBridge(opts ...Option) *Bridge {
	b := &Bridge{writeTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnContext(r.Context(), "failed to upgrade speech connection", "error", err)
		return
	}

	conn := &connection{ws: ws, pending: make(map[string]chan error)}
	b.mu.Lock()
	previous := b.conn
	b.conn = conn
	b.mu.Unlock()
	if previous != nil {
		_ = previous.ws.Close()
	}

	b.readLoop(r.Context(), conn)
}

func (b *Bridge) readLoop(ctx context.Context, conn *connection) {
	defer func() {
		_ = conn.ws.Close()

		b.mu.Lock()
		if b.conn == conn {
			b.conn = nil
		}
		conn.closed = true
		pending := conn.pending
		conn.pending = make(map[string]chan error)
		b.mu.Unlock()

		for _, result := range pending {
			result <- ErrDisconnected
		}
	}()

	for {
		var msg message
		if err := conn.ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.DebugContext(ctx, "speech connection closed", "error", err)
			}
			return
		}

		switch msg.Type {
		case messageVoices:
			b.mu.Lock()
			b.voices = msg.Voices
			b.mu.Unlock()
		case messageEnded:
			b.resolve(conn, msg.ID, nil)
		case messageError:
			b.resolve(conn, msg.ID, fmt.Errorf("browser speech failed: %s", msg.Error))
		default:
			logger.DebugContext(ctx, "unknown speech message", "type", msg.Type)
		}
	}
}

func (b *Bridge) resolve(conn *connection, id string, err error) {
	b.mu.Lock()
	result, ok := conn.pending[id]
	delete(conn.pending, id)
	b.mu.Unlock()

	if ok {
		result <- err
	}
}

// Voices returns the voices the connected page reported.
func (b *Bridge) Voices() []speech.Voice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]speech.Voice(nil), b.voices...)
}

func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// Speak asks the page to speak text with the voice that best matches style
// and waits for it to report the end of the utterance.
func (b *Bridge) Speak(ctx context.Context, text string, style speech.VoiceStyle) error {
	id := uuid.NewString()
	result := make(chan error, 1)

	b.mu.Lock()
	conn := b.conn
	if conn == nil || conn.closed {
		b.mu.Unlock()
		return ErrNotConnected
	}
	voice, _ := speech.SelectVoice(b.voices, style)
	conn.pending[id] = result
	b.mu.Unlock()

	if err := b.write(conn, message{Type: messageSpeak, ID: id, Text: text, Voice: voice.Name}); err != nil {
		b.forget(conn, id)
		return fmt.Errorf("failed to send speak request: %w", err)
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		b.forget(conn, id)
		if err := b.write(conn, message{Type: messageCancel, ID: id}); err != nil {
			logger.DebugContext(ctx, "failed to cancel browser speech", "error", err)
		}
		return ctx.Err()
	}
}

func (b *Bridge) forget(conn *connection, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(conn.pending, id)
}

func (b *Bridge) write(conn *connection, msg message) error {
	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()

	_ = conn.ws.SetWriteDeadline(time.Now().Add(b.writeTimeout))
	return conn.ws.WriteJSON(msg)
}

// Close disconnects the current page.
func (b *Bridge) Close() error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	if conn == nil {
		return nil
	}

	conn.writeMu.Lock()
	_ = conn.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(b.writeTimeout))
	conn.writeMu.Unlock()
	return conn.ws.Close()
}
