package stt

import (
	"context"
	"errors"
)

// ErrProviderUnavailable indicates the upstream transcription connection
// could not be established.
var ErrProviderUnavailable = errors.New("transcription provider unavailable")

// ErrSendFailed indicates an audio chunk was rejected, either because the
// link is not started or the upstream refused it. A send failure never tears
// down a session by itself; the caller decides.
var ErrSendFailed = errors.New("failed to send audio to transcription provider")

// EventKind tags events delivered asynchronously by a Link.
type EventKind int

const (
	// EventFragment carries a piece of transcribed text
	EventFragment EventKind = iota
	// EventError carries an asynchronous upstream fault
	EventError
)

// Event is one asynchronous notification from a transcription link.
// Fragments from one link arrive in the order the upstream produced them.
type Event struct {
	Kind   EventKind
	Text   string // transcript fragment (EventFragment)
	Detail string // fault description (EventError)
}

// AudioConfig describes the inbound audio format forwarded to the provider.
type AudioConfig struct {
	Encoding   string
	SampleRate int
	Channels   int
}

// Link is one live upstream transcription connection for one
// credential/client pair.
type Link interface {
	// Start opens the upstream streaming connection. Fails with
	// ErrProviderUnavailable if the connection cannot be established.
	Start(ctx context.Context) error

	// Feed forwards one raw audio chunk. Fails with ErrSendFailed if the
	// link is not started or the upstream rejects the chunk.
	Feed(chunk []byte) error

	// Events returns the stream of transcript fragments and provider
	// errors. The channel is closed when the link stops.
	Events() <-chan Event

	// Stop releases upstream resources. Safe to call multiple times;
	// best-effort (failures are logged, never propagated).
	Stop()
}

// Dialer creates transcription links. The session manager depends on this
// so tests can substitute fakes for the Deepgram client.
type Dialer interface {
	NewLink(credentialID string, cfg AudioConfig) Link
}
