package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/interlingo/voice-gateway/internal/billing"
	"github.com/interlingo/voice-gateway/internal/credential"
	"github.com/interlingo/voice-gateway/internal/observability"
	"github.com/interlingo/voice-gateway/internal/segment"
	"github.com/interlingo/voice-gateway/internal/stt"
	"github.com/interlingo/voice-gateway/internal/translate"
)

// Deps bundles the collaborators the manager composes.
type Deps struct {
	Pool       *credential.Pool
	Dialer     stt.Dialer
	Translator translate.Provider
	Emitter    Emitter
	Presence   Presence
	Billing    billing.Hooks
	Audio      stt.AudioConfig

	SourceLanguage string
	TargetLanguage string

	Logger zerolog.Logger
}

// Manager owns the per-client session registry, the in-flight-creation
// guard and the per-session sentence buffers. It drives the per-client
// state machine: Absent -> Creating -> Active -> Closed.
//
// The registry and the creation guard are the only shared mutable state;
// both are confined behind mu so every check-then-act window is atomic.
// A client identifier is in at most one of {creating, sessions} at any
// instant.
type Manager struct {
	pool       *credential.Pool
	dialer     stt.Dialer
	translator translate.Provider
	emitter    Emitter
	presence   Presence
	billing    billing.Hooks
	audio      stt.AudioConfig
	sourceLang string
	targetLang string
	logger     zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*clientSession
	creating map[string]struct{}
}

// clientSession is one client's active transcription/translation flow. It
// exclusively owns its credential and its link for its lifetime. The
// sentence buffer is touched only by the session's event pump goroutine.
type clientSession struct {
	clientID  string
	cred      *credential.Credential
	link      stt.Link
	buffer    string
	createdAt time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	metrics *observability.SessionMetrics
	logger  zerolog.Logger
}

// NewManager creates a session manager with independent state, so one can
// be instantiated per process or per test.
func NewManager(d Deps) *Manager {
	return &Manager{
		pool:       d.Pool,
		dialer:     d.Dialer,
		translator: d.Translator,
		emitter:    d.Emitter,
		presence:   d.Presence,
		billing:    d.Billing,
		audio:      d.Audio,
		sourceLang: d.SourceLanguage,
		targetLang: d.TargetLanguage,
		logger:     d.Logger.With().Str("component", "session").Logger(),
		sessions:   make(map[string]*clientSession),
		creating:   make(map[string]struct{}),
	}
}

// HandleAudio routes one inbound audio frame for a client. The first frame
// for an unknown client triggers session creation; frames arriving while
// creation is in flight are dropped silently so only the first concurrent
// trigger proceeds.
func (m *Manager) HandleAudio(ctx context.Context, clientID string, chunk []byte) {
	m.mu.Lock()
	if s, ok := m.sessions[clientID]; ok {
		m.mu.Unlock()
		m.feed(s, chunk)
		return
	}
	if _, inflight := m.creating[clientID]; inflight {
		m.mu.Unlock()
		return
	}
	m.creating[clientID] = struct{}{}
	m.mu.Unlock()

	s := m.createSession(ctx, clientID)
	if s == nil {
		return
	}
	m.feed(s, chunk)
}

// createSession runs the Creating state: borrow a credential, start a link,
// re-check liveness, register. Every early return removes the creation
// guard and leaves zero busy credentials attributable to the client.
func (m *Manager) createSession(ctx context.Context, clientID string) *clientSession {
	logger := observability.WithCorrelationID("").With().Str("client_id", clientID).Logger()

	cred := m.pool.Acquire()
	if cred == nil {
		logger.Warn().Msg("No transcription credential available")
		observability.RecordError("no_capacity", "session")
		m.emitter.Emit(clientID, Event{Type: EventError, Code: CodeNoCapacity, Detail: "all transcription slots are in use"})
		m.removeGuard(clientID)
		return nil
	}
	observability.SetCredentialsBusy(m.pool.Busy())

	link := m.dialer.NewLink(cred.ID, m.audio)
	if err := link.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to start transcription link")
		m.pool.Release(cred)
		observability.SetCredentialsBusy(m.pool.Busy())
		observability.RecordError("creation_failed", "session")
		m.emitter.Emit(clientID, Event{Type: EventError, Code: CodeCreationFailed, Detail: "could not start transcription"})
		m.removeGuard(clientID)
		return nil
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &clientSession{
		clientID:  clientID,
		cred:      cred,
		link:      link,
		createdAt: time.Now(),
		ctx:       sctx,
		cancel:    cancel,
		metrics:   observability.NewSessionMetrics(clientID),
		logger:    logger,
	}

	// Link startup is the slowest step of creation; the client may have
	// disconnected while it ran. The liveness re-check, registration and
	// guard removal share one critical section: the transport flips
	// Connected before it calls Disconnect, so a racing disconnect either
	// lands before this check (creation abandons) or its Disconnect call
	// waits on mu and tears down the session it then finds registered.
	// The identifier is never in both the guard and the registry.
	m.mu.Lock()
	if !m.presence.Connected(clientID) {
		delete(m.creating, clientID)
		m.mu.Unlock()
		logger.Info().Msg("Client disconnected during session creation")
		cancel()
		link.Stop()
		m.pool.Release(cred)
		observability.SetCredentialsBusy(m.pool.Busy())
		return nil
	}
	m.sessions[clientID] = s
	delete(m.creating, clientID)
	m.mu.Unlock()

	s.metrics.RecordSessionStart()
	m.billing.SessionStarted(sctx, clientID, cred.ID)
	logger.Info().Str("credential_id", cred.ID).Msg("Session registered")

	go m.pump(s)
	return s
}

func (m *Manager) removeGuard(clientID string) {
	m.mu.Lock()
	delete(m.creating, clientID)
	m.mu.Unlock()
}

// feed forwards one frame to the session's link. A send failure surfaces as
// an error event but leaves the session active.
func (m *Manager) feed(s *clientSession, chunk []byte) {
	s.metrics.RecordAudioBytes("in", int64(len(chunk)))

	if err := s.link.Feed(chunk); err != nil {
		s.logger.Error().Err(err).Msg("Failed to forward audio frame")
		s.metrics.RecordError("send_failed", "stt")
		m.emitter.Emit(s.clientID, Event{Type: EventError, Code: CodeSendFailed, Detail: "audio frame was not accepted"})
	}
}

// pump consumes the link's event stream for one session until the link
// stops or the session is torn down. It is the only goroutine that touches
// the session's sentence buffer.
func (m *Manager) pump(s *clientSession) {
	for {
		select {
		case ev, ok := <-s.link.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case stt.EventFragment:
				m.handleFragment(s, ev.Text)
			case stt.EventError:
				// Transient provider faults are surfaced, not fatal;
				// teardown only happens on explicit disconnect.
				s.logger.Warn().Str("detail", ev.Detail).Msg("Transcription provider error")
				s.metrics.RecordError("provider_error", "stt")
				m.emitter.Emit(s.clientID, Event{Type: EventError, Code: CodeProviderError, Detail: ev.Detail})
			}

		case <-s.ctx.Done():
			return
		}
	}
}

// handleFragment appends a transcript fragment to the session buffer,
// extracts completed sentences and translates each one. A translation
// failure is scoped to its sentence; the rest of the batch proceeds.
func (m *Manager) handleFragment(s *clientSession, fragment string) {
	s.buffer = strings.TrimSpace(s.buffer) + " " + strings.TrimSpace(fragment)

	sentences, rest := segment.Extract(s.buffer)
	s.buffer = rest

	for _, sentence := range sentences {
		s.metrics.RecordSentence()
		m.emitter.Emit(s.clientID, Event{Type: EventTranscript, Text: sentence})

		translated, err := m.translator.Translate(s.ctx, sentence, m.sourceLang, m.targetLang)
		if err != nil {
			s.logger.Error().Err(err).Str("sentence", sentence).Msg("Translation failed")
			s.metrics.RecordTranslation(false)
			s.metrics.RecordError("translation_failed", "translate")
			m.emitter.Emit(s.clientID, Event{Type: EventError, Code: CodeTranslationFailed, Source: sentence, Detail: "translation unavailable for this sentence"})
			continue
		}

		s.metrics.RecordTranslation(true)
		m.emitter.Emit(s.clientID, Event{Type: EventTranslation, Text: translated, Source: sentence})
	}
}

// Disconnect tears down the client's session: stop the link, return the
// credential, drop the registry entry. Idempotent; a second call finds no
// session and leaves state unchanged. A creation still in flight cleans
// itself up via the post-start liveness re-check.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	s, ok := m.sessions[clientID]
	if ok {
		delete(m.sessions, clientID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	s.cancel()
	s.link.Stop()
	m.pool.Release(s.cred)
	observability.SetCredentialsBusy(m.pool.Busy())

	s.metrics.RecordSessionEnd()
	m.billing.SessionEnded(context.Background(), clientID, time.Since(s.createdAt))
	s.logger.Info().Msg("Session closed")
}

// Shutdown tears down every active session, releasing each credential
// exactly once.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Disconnect(id)
	}
}

// ActiveSessions returns the number of registered sessions.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// HasSession reports whether a session is registered for the client.
func (m *Manager) HasSession(clientID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[clientID]
	return ok
}
