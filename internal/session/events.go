package session

// Event types pushed to the client. The exact wire schema is owned by the
// transport; these are the in-process payloads.
const (
	EventTranscript  = "transcript"
	EventTranslation = "translation"
	EventError       = "error"
)

// Error codes carried by error events. Each maps to one recoverable failure
// in the session flow; none of them aborts the session.
const (
	CodeNoCapacity        = "no_capacity"
	CodeCreationFailed    = "creation_failed"
	CodeSendFailed        = "send_failed"
	CodeTranslationFailed = "translation_failed"
	CodeProviderError     = "provider_error"
)

// Event is one outbound notification for a specific client.
type Event struct {
	Type   string
	Text   string // transcript sentence or translated text
	Source string // source sentence, set on translation events
	Code   string // error code, set on error events
	Detail string // error detail, set on error events
}

// Emitter pushes events to one connected client. Fire-and-forget: no
// acknowledgment and no backpressure into the session flow.
type Emitter interface {
	Emit(clientID string, ev Event)
}

// Presence reports whether a client is still connected. The manager polls
// it after link startup, the one suspension long enough for a disconnect to
// race ahead of session registration.
type Presence interface {
	Connected(clientID string) bool
}
