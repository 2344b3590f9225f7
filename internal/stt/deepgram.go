package stt

import (
	"context"
	"fmt"
	"sync"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/interlingo/voice-gateway/internal/observability"
)

// DeepgramDialer creates Deepgram streaming links. The credential passed to
// NewLink is the Deepgram API key borrowed from the pool for the session.
type DeepgramDialer struct {
	Model    string
	Language string
}

// NewLink creates an unstarted link bound to one credential.
func (d *DeepgramDialer) NewLink(credentialID string, cfg AudioConfig) Link {
	return &deepgramLink{
		apiKey:   credentialID,
		model:    d.Model,
		language: d.Language,
		audio:    cfg,
		events:   make(chan Event, 100),
		logger:   observability.GetLogger().With().Str("component", "stt").Logger(),
	}
}

// deepgramLink implements Link using Deepgram's streaming WebSocket API.
type deepgramLink struct {
	apiKey   string
	model    string
	language string
	audio    AudioConfig

	mu      sync.Mutex
	client  *listenClient.WSCallback
	started bool
	closed  bool
	cancel  context.CancelFunc

	events chan Event
	logger zerolog.Logger
}

// messageCallbackHandler implements the LiveMessageCallback interface.
// It embeds the default handler and overrides only Message and Error.
type messageCallbackHandler struct {
	*websocketv1api.DefaultCallbackHandler
	onMessage func(*msginterfaces.MessageResponse)
	onError   func(*msginterfaces.ErrorResponse)
}

func (m *messageCallbackHandler) Message(msg *msginterfaces.MessageResponse) error {
	m.onMessage(msg)
	return nil
}

func (m *messageCallbackHandler) Error(resp *msginterfaces.ErrorResponse) error {
	m.onError(resp)
	return nil
}

// Start opens the Deepgram streaming connection.
func (l *deepgramLink) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return fmt.Errorf("%w: link already started", ErrProviderUnavailable)
	}

	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          l.model,
		Language:       l.language,
		Punctuate:      true,
		InterimResults: true,
		UtteranceEndMs: "1000",
		Encoding:       l.audio.Encoding,
		Channels:       l.audio.Channels,
		SampleRate:     l.audio.SampleRate,
	}

	callback := &messageCallbackHandler{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		onMessage:              l.handleMessage,
		onError: func(resp *msginterfaces.ErrorResponse) {
			detail := fmt.Sprintf("%+v", resp)
			l.logger.Warn().Str("detail", detail).Msg("Deepgram reported an error")
			l.deliver(Event{Kind: EventError, Detail: detail})
		},
	}

	linkCtx, cancel := context.WithCancel(ctx)

	client, err := listenClient.NewWSUsingCallback(
		linkCtx,
		l.apiKey,
		nil, // ClientOptions - nil uses defaults
		tOptions,
		callback,
	)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	l.client = client
	l.cancel = cancel
	l.started = true

	l.logger.Debug().
		Str("model", l.model).
		Str("language", l.language).
		Msg("Deepgram streaming link started")
	return nil
}

// handleMessage turns Deepgram transcription results into fragment events.
// Interim results are skipped; only final transcripts become fragments.
func (l *deepgramLink) handleMessage(msg *msginterfaces.MessageResponse) {
	if msg == nil {
		return
	}

	switch msg.Type {
	case "Results", "Message":
		if len(msg.Channel.Alternatives) == 0 {
			return
		}
		alt := msg.Channel.Alternatives[0]
		if alt.Transcript == "" || !msg.IsFinal {
			return
		}
		l.deliver(Event{Kind: EventFragment, Text: alt.Transcript})

	case "Metadata", "SpeechStarted", "UtteranceEnd":
		// Informational only

	default:
		l.logger.Debug().Str("type", msg.Type).Msg("Unhandled Deepgram message type")
	}
}

// deliver sends an event without blocking the Deepgram callback goroutine.
// Events arriving after Stop are dropped.
func (l *deepgramLink) deliver(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	select {
	case l.events <- ev:
	default:
		l.logger.Warn().Msg("Link event channel full, dropping event")
	}
}

// Feed forwards one audio chunk to Deepgram.
func (l *deepgramLink) Feed(chunk []byte) error {
	l.mu.Lock()
	started := l.started
	client := l.client
	l.mu.Unlock()

	if !started || client == nil {
		return fmt.Errorf("%w: link not started", ErrSendFailed)
	}

	if _, err := client.Write(chunk); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// Events returns the link's event stream.
func (l *deepgramLink) Events() <-chan Event {
	return l.events
}

// Stop closes the Deepgram connection. Safe to call more than once.
func (l *deepgramLink) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		l.client.Finish()
		l.cancel()
		l.started = false
		l.logger.Debug().Msg("Deepgram streaming link stopped")
	}

	if !l.closed {
		l.closed = true
		close(l.events)
	}
}
