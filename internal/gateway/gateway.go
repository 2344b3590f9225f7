package gateway

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/interlingo/voice-gateway/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering belongs to the deployment front door
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Sessions is the slice of the session manager the transport drives.
type Sessions interface {
	HandleAudio(ctx context.Context, clientID string, chunk []byte)
	Disconnect(clientID string)
}

// Gateway owns the client-facing WebSocket connections. It implements
// session.Emitter and session.Presence over its connection registry:
// binary frames flow in to the manager, JSON events flow back out.
type Gateway struct {
	auth     Authorizer
	sessions Sessions
	logger   zerolog.Logger

	mu    sync.RWMutex
	conns map[string]*clientConn
}

// clientConn is one live client connection. Writes are serialized because
// gorilla/websocket allows only one concurrent writer.
type clientConn struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// wireEvent is the outbound event schema. Owned here, not by the session
// core.
type wireEvent struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Source string `json:"source,omitempty"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// New creates a gateway. The session manager is attached afterwards via
// SetSessions because the manager itself depends on the gateway for
// emitting events and liveness checks.
func New(auth Authorizer, logger zerolog.Logger) *Gateway {
	return &Gateway{
		auth:   auth,
		logger: logger.With().Str("component", "gateway").Logger(),
		conns:  make(map[string]*clientConn),
	}
}

// SetSessions attaches the session manager. Must be called before Handler
// serves traffic.
func (g *Gateway) SetSessions(s Sessions) {
	g.sessions = s
}

// Handler is the entry point for client WebSocket connections.
func (g *Gateway) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, err := g.auth.Authorize(r)
		if err != nil {
			g.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("Connection rejected")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			g.logger.Error().Err(err).Msg("Failed to upgrade connection")
			return
		}

		cc := &clientConn{id: clientID, conn: conn}
		g.register(cc)
		g.logger.Info().Str("client_id", clientID).Msg("Client connected")

		defer func() {
			g.unregister(clientID)
			g.sessions.Disconnect(clientID)
			conn.Close()
			g.logger.Info().Str("client_id", clientID).Msg("Client disconnected")
		}()

		g.readLoop(r.Context(), cc)
	}
}

// readLoop forwards binary frames to the session manager until the
// connection closes.
func (g *Gateway) readLoop(ctx context.Context, cc *clientConn) {
	for {
		msgType, data, err := cc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				g.logger.Warn().Err(err).Str("client_id", cc.id).Msg("WebSocket read error")
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			g.sessions.HandleAudio(ctx, cc.id, data)
		case websocket.TextMessage:
			// Control frames from the client are not part of the protocol
			g.logger.Debug().Str("client_id", cc.id).Msg("Ignoring text message")
		}
	}
}

func (g *Gateway) register(cc *clientConn) {
	g.mu.Lock()
	g.conns[cc.id] = cc
	g.mu.Unlock()
}

func (g *Gateway) unregister(clientID string) {
	g.mu.Lock()
	delete(g.conns, clientID)
	g.mu.Unlock()
}

// Emit pushes one event to a client. Fire-and-forget: events for clients
// that are already gone are dropped, and write failures are logged only.
func (g *Gateway) Emit(clientID string, ev session.Event) {
	g.mu.RLock()
	cc, ok := g.conns[clientID]
	g.mu.RUnlock()

	if !ok {
		g.logger.Debug().Str("client_id", clientID).Str("type", ev.Type).Msg("Dropping event for disconnected client")
		return
	}

	msg := wireEvent{
		Type:   ev.Type,
		Text:   ev.Text,
		Source: ev.Source,
		Code:   ev.Code,
		Detail: ev.Detail,
	}

	cc.writeMu.Lock()
	err := cc.conn.WriteJSON(msg)
	cc.writeMu.Unlock()

	if err != nil {
		g.logger.Warn().Err(err).Str("client_id", clientID).Msg("Failed to write event")
	}
}

// Connected reports whether the client's connection is still registered.
func (g *Gateway) Connected(clientID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.conns[clientID]
	return ok
}
