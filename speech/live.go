package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// TranscriptEvent is one streaming transcription update. Final events mark
// the end of an utterance (the user stopped speaking).
type TranscriptEvent struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"is_final"`
	Confidence float64 `json:"confidence,omitempty"`
}

// LiveTranscriber streams microphone audio to Deepgram over websocket and
// emits interim and final transcripts for the realtime pipeline.
type LiveTranscriber struct {
	cfg    DeepgramConfig
	logger *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	events chan TranscriptEvent
	audio  chan []byte
	closed bool
}

// NewLiveTranscriber creates a live Deepgram transcriber. Connect must be
// called before sending audio.
func NewLiveTranscriber(cfg DeepgramConfig, logger *zap.Logger) *LiveTranscriber {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepgram.com"
	}
	if cfg.STTModel == "" {
		cfg.STTModel = "nova-2"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveTranscriber{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "speech.live")),
		events: make(chan TranscriptEvent, 64),
		audio:  make(chan []byte, 256),
	}
}

// deepgramLiveMessage is the subset of Deepgram's streaming response the
// pipeline consumes.
type deepgramLiveMessage struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// Connect dials the streaming endpoint and starts the read/write pumps.
func (t *LiveTranscriber) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return nil
	}
	if t.cfg.APIKey == "" {
		return fmt.Errorf("deepgram api key is required")
	}

	params := url.Values{}
	params.Set("model", t.cfg.STTModel)
	params.Set("encoding", "linear16")
	params.Set("sample_rate", "16000")
	params.Set("channels", "1")
	params.Set("interim_results", "true")
	params.Set("punctuate", "true")
	if t.cfg.Language != "" {
		params.Set("language", t.cfg.Language)
	}

	wsURL := fmt.Sprintf("%s/v1/listen?%s",
		strings.Replace(strings.TrimRight(t.cfg.BaseURL, "/"), "http", "ws", 1),
		params.Encode())

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: map[string][]string{
			"Authorization": {"Token " + t.cfg.APIKey},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to dial deepgram: %w", err)
	}
	// Audio frames are small; raise the limit for transcript payloads only.
	conn.SetReadLimit(1 << 20)

	t.conn = conn
	go t.readPump(ctx, conn)
	go t.writePump(ctx, conn)

	t.logger.Info("live transcription connected", zap.String("model", t.cfg.STTModel))
	return nil
}

// SendAudio queues a PCM frame for transmission. Frames are dropped when the
// queue is full rather than blocking the capture loop.
func (t *LiveTranscriber) SendAudio(frame []byte) error {
	t.mu.Lock()
	closed := t.closed
	conn := t.conn
	t.mu.Unlock()
	if closed || conn == nil {
		return fmt.Errorf("live transcriber is not connected")
	}
	select {
	case t.audio <- frame:
		return nil
	default:
		t.logger.Warn("audio queue full, dropping frame")
		return nil
	}
}

// Events returns the transcript event channel. It is closed when the
// connection ends.
func (t *LiveTranscriber) Events() <-chan TranscriptEvent { return t.events }

// Close finishes the stream and releases the connection.
func (t *LiveTranscriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.audio)
	if t.conn != nil {
		err := t.conn.Close(websocket.StatusNormalClosure, "done")
		t.conn = nil
		return err
	}
	return nil
}

func (t *LiveTranscriber) readPump(ctx context.Context, conn *websocket.Conn) {
	defer close(t.events)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if !closed && ctx.Err() == nil {
				t.logger.Warn("live transcription read ended", zap.Error(err))
			}
			return
		}

		var msg deepgramLiveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.logger.Warn("bad live transcription message", zap.Error(err))
			continue
		}
		if len(msg.Channel.Alternatives) == 0 {
			continue
		}
		alt := msg.Channel.Alternatives[0]
		if strings.TrimSpace(alt.Transcript) == "" {
			continue
		}

		ev := TranscriptEvent{
			Text:       alt.Transcript,
			IsFinal:    msg.IsFinal || msg.SpeechFinal,
			Confidence: alt.Confidence,
		}
		select {
		case t.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (t *LiveTranscriber) writePump(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-t.audio:
			if !ok {
				// Empty binary message tells Deepgram the stream is finished.
				_ = conn.Write(ctx, websocket.MessageBinary, nil)
				return
			}
			if err := conn.Write(ctx, websocket.MessageBinary, frame); err != nil {
				t.logger.Warn("failed to send audio frame", zap.Error(err))
				return
			}
		}
	}
}
