package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/interlingo/voice-gateway/internal/session"
)

// fakeSessions records the calls the transport makes into the manager.
type fakeSessions struct {
	mu          sync.Mutex
	audio       [][]byte
	clientID    string
	disconnects int
}

func (f *fakeSessions) HandleAudio(ctx context.Context, clientID string, chunk []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clientID = clientID
	f.audio = append(f.audio, chunk)
}

func (f *fakeSessions) Disconnect(clientID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
}

func (f *fakeSessions) audioCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.audio)
}

func (f *fakeSessions) client() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clientID
}

func (f *fakeSessions) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met before timeout")
}

func newTestGateway(token string) (*Gateway, *fakeSessions, *httptest.Server) {
	g := New(&TokenAuthorizer{Token: token}, zerolog.Nop())
	sessions := &fakeSessions{}
	g.SetSessions(sessions)
	server := httptest.NewServer(g.Handler())
	return g, sessions, server
}

func wsURL(server *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + query
}

func TestGateway_BinaryFramesReachSessions(t *testing.T) {
	g, sessions, server := newTestGateway("")
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, ""), nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}

	waitFor(t, time.Second, func() bool { return sessions.audioCount() == 1 })

	if !g.Connected(sessions.client()) {
		t.Error("Expected the client to be reported connected")
	}
}

func TestGateway_EmitDeliversWireEvent(t *testing.T) {
	g, sessions, server := newTestGateway("")
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, ""), nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()

	// Learn the generated client ID via the first frame
	conn.WriteMessage(websocket.BinaryMessage, []byte{1})
	waitFor(t, time.Second, func() bool { return sessions.audioCount() == 1 })

	g.Emit(sessions.client(), session.Event{
		Type:   session.EventTranslation,
		Text:   "Hola.",
		Source: "Hello.",
	})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg wireEvent
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	if msg.Type != "translation" || msg.Text != "Hola." || msg.Source != "Hello." {
		t.Errorf("Unexpected wire event: %+v", msg)
	}
}

func TestGateway_DisconnectOnClose(t *testing.T) {
	g, sessions, server := newTestGateway("")
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, ""), nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}

	conn.WriteMessage(websocket.BinaryMessage, []byte{1})
	waitFor(t, time.Second, func() bool { return sessions.audioCount() == 1 })
	clientID := sessions.client()

	conn.Close()

	waitFor(t, time.Second, func() bool { return sessions.disconnectCount() == 1 })

	if g.Connected(clientID) {
		t.Error("Expected client to be reported disconnected after close")
	}
}

func TestGateway_EmitToUnknownClientIsDropped(t *testing.T) {
	g, _, server := newTestGateway("")
	defer server.Close()

	// Must not panic or block
	g.Emit("nobody-home", session.Event{Type: session.EventError, Code: "no_capacity"})
}

func TestGateway_RejectsBadToken(t *testing.T) {
	_, _, server := newTestGateway("secret")
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "?token=wrong"), nil)
	if err == nil {
		t.Fatal("Expected dial to fail with a bad token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 rejection, got %+v", resp)
	}
}

func TestGateway_AcceptsGoodToken(t *testing.T) {
	_, sessions, server := newTestGateway("secret")
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "?token=secret"), nil)
	if err != nil {
		t.Fatalf("Expected dial to succeed with the right token: %v", err)
	}
	defer conn.Close()

	conn.WriteMessage(websocket.BinaryMessage, []byte{1})
	waitFor(t, time.Second, func() bool { return sessions.audioCount() == 1 })
}

func TestTokenAuthorizer_UniqueClientIDs(t *testing.T) {
	auth := &TokenAuthorizer{}
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)

	a, err := auth.Authorize(r)
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	b, err := auth.Authorize(r)
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if a == b {
		t.Error("Expected a fresh client ID per connection")
	}
}

func TestTokenAuthorizer_BearerHeader(t *testing.T) {
	auth := &TokenAuthorizer{Token: "secret"}
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Bearer secret")

	if _, err := auth.Authorize(r); err != nil {
		t.Errorf("Expected bearer header to authorize, got %v", err)
	}
}
