package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_gateway_active_sessions",
		Help: "Number of active transcription sessions",
	})

	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_gateway_sessions_started_total",
		Help: "Total number of transcription sessions started",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_gateway_session_duration_seconds",
		Help:    "Duration of transcription sessions in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	})

	// Time from session registration to the first completed sentence
	timeToFirstSentence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_gateway_time_to_first_sentence_seconds",
		Help:    "Latency from session start to first extracted sentence",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30},
	})

	sentencesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_gateway_sentences_total",
		Help: "Total number of completed sentences extracted",
	})

	// Translation metrics
	translationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_gateway_translation_requests_total",
		Help: "Total number of translation requests",
	}, []string{"status"})

	// Credential pool metrics
	credentialsBusy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_gateway_credentials_busy",
		Help: "Number of transcription credentials currently assigned",
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_gateway_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"})
)

// SessionMetrics tracks metrics for a single session
type SessionMetrics struct {
	clientID  string
	startTime time.Time

	mu            sync.Mutex
	firstSentence bool
}

// NewSessionMetrics creates a metrics tracker for one session
func NewSessionMetrics(clientID string) *SessionMetrics {
	return &SessionMetrics{
		clientID:  clientID,
		startTime: time.Now(),
	}
}

// RecordSessionStart records a session becoming active
func (m *SessionMetrics) RecordSessionStart() {
	activeSessions.Inc()
	sessionsStarted.Inc()
}

// RecordSessionEnd records a session teardown
func (m *SessionMetrics) RecordSessionEnd() {
	activeSessions.Dec()
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordSentence records one completed sentence; the first one also
// observes time-to-first-sentence latency.
func (m *SessionMetrics) RecordSentence() {
	sentencesTotal.Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.firstSentence {
		m.firstSentence = true
		timeToFirstSentence.Observe(time.Since(m.startTime).Seconds())
	}
}

// RecordTranslation records a translation attempt
func (m *SessionMetrics) RecordTranslation(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	translationRequests.WithLabelValues(status).Inc()
}

// RecordError records an error
func (m *SessionMetrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes processed
func (m *SessionMetrics) RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}

// RecordError records an error outside any session scope
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// SetCredentialsBusy updates the busy-credential gauge
func SetCredentialsBusy(count int) {
	credentialsBusy.Set(float64(count))
}
