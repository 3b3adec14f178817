package deepgram

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/prep-core/core/audio"
	"github.com/koscakluka/prep-core/core/speech"
	"github.com/koscakluka/prep-core/core/texttospeech"
)

func newSpeakServer(t *testing.T, handle func(ws *websocket.Conn, r *http.Request)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("failed to upgrade: %v", err)
			return
		}
		defer ws.Close()
		handle(ws, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(""); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestSynthesizeStreamsAudioUntilFlushed(t *testing.T) {
	requests := make(chan *http.Request, 1)
	server := newSpeakServer(t, func(ws *websocket.Conn, r *http.Request) {
		requests <- r

		var speak speakMessage
		if err := ws.ReadJSON(&speak); err != nil || speak.Type != "Speak" || speak.Text != "hello" {
			t.Errorf("expected speak message, got %+v (%v)", speak, err)
			return
		}
		var flush controlMessage
		if err := ws.ReadJSON(&flush); err != nil || flush.Type != "Flush" {
			t.Errorf("expected flush message, got %+v (%v)", flush, err)
			return
		}

		_ = ws.WriteMessage(websocket.BinaryMessage, []byte{1, 2})
		_ = ws.WriteMessage(websocket.BinaryMessage, []byte{3, 4})
		_ = ws.WriteJSON(controlMessage{Type: "Flushed"})

		var closeMsg controlMessage
		_ = ws.ReadJSON(&closeMsg)
	})

	client, err := NewClient("secret", WithEndpoint(wsURL(server)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var received bytes.Buffer
	err = client.Synthesize(context.Background(), "hello", string(VoiceFor(speech.VoiceMasculine)),
		texttospeech.WithAudioCallback(func(b []byte) { received.Write(b) }))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !bytes.Equal(received.Bytes(), []byte{1, 2, 3, 4}) {
		t.Fatalf("expected all audio chunks in order, got %v", received.Bytes())
	}

	r := <-requests
	if got := r.Header.Get("Authorization"); got != "token secret" {
		t.Fatalf("expected token authorization, got %q", got)
	}
	query := r.URL.Query()
	if query.Get("model") != string(VoiceOrion) {
		t.Fatalf("expected masculine voice model, got %q", query.Get("model"))
	}
	if query.Get("encoding") != "linear16" || query.Get("sample_rate") != "16000" {
		t.Fatalf("expected default encoding, got %v", query)
	}
}

func TestSynthesizeCancelClearsSpeech(t *testing.T) {
	cleared := make(chan struct{})
	server := newSpeakServer(t, func(ws *websocket.Conn, _ *http.Request) {
		for {
			var msg controlMessage
			if err := ws.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == "Clear" {
				close(cleared)
			}
		}
	})

	client, _ := NewClient("secret", WithEndpoint(wsURL(server)))
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	if err := client.Synthesize(ctx, "hello", ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	select {
	case <-cleared:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a clear message after cancel")
	}
}

func TestSynthesizeRejectsUnsupportedEncoding(t *testing.T) {
	client, _ := NewClient("secret", WithEndpoint("ws://127.0.0.1:1"))
	err := client.Synthesize(context.Background(), "hello", "",
		texttospeech.WithEncodingInfo(audio.EncodingInfo{SampleRate: 44100, Format: audio.EncodingLinear16}))
	if err == nil || !strings.Contains(err.Error(), "invalid encoding") {
		t.Fatalf("expected invalid encoding error, got %v", err)
	}
}

func TestVoiceFor(t *testing.T) {
	for style, want := range map[speech.VoiceStyle]Voice{
		speech.VoiceDefault:   VoiceThalia,
		speech.VoiceFeminine:  VoiceAndromeda,
		speech.VoiceMasculine: VoiceOrion,
	} {
		if got := VoiceFor(style); got != want || !got.Valid() {
			t.Fatalf("expected %s for %s, got %s", want, style, got)
		}
	}
}
