package figma

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"nhooyr.io/websocket"

	"github.com/nmfisher/figma-mcp/internal/domain"
	"github.com/nmfisher/figma-mcp/internal/infra/config"
)

// session is one accepted plugin connection.
type session struct {
	id string
	ws *websocket.Conn

	// Writes from concurrent Call goroutines share one socket; serialize
	// them so frames cannot interleave.
	sendMu sync.Mutex
}

// Send implements Transport.
func (s *session) Send(ctx context.Context, data []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.ws.Write(ctx, websocket.MessageText, data)
}

// Server accepts the plugin's WebSocket connection and supervises the
// session lifecycle: at most one session is authoritative at a time.
//
// When a second plugin connects while one is active, the policy decides:
// "replace" closes the old session and the new plugin wins (the original
// bridge behaved this way, silently); "reject" closes the new connection.
// Either way the choice is explicit, never an accidental overwrite.
type Server struct {
	bridge       *Bridge
	addr         string
	policy       string
	maxFrameSize int64
	audit        domain.AuditLogger
	logger       *slog.Logger

	httpSrv   *http.Server
	boundAddr atomic.Value // string

	mu     sync.Mutex
	active *session
}

// NewServer creates a plugin socket server bound to cfg.Addr. Session
// attach and detach events go to audit.
func NewServer(bridge *Bridge, cfg config.BridgeConfig, audit domain.AuditLogger, logger *slog.Logger) *Server {
	policy := cfg.OnSecondPeer
	if policy == "" {
		policy = config.PolicyReplace
	}
	maxFrameSize := cfg.MaxMessageBytes
	if maxFrameSize == 0 {
		maxFrameSize = config.DefaultMaxMessageBytes
	}
	return &Server{
		bridge:       bridge,
		addr:         cfg.Addr,
		policy:       policy,
		maxFrameSize: maxFrameSize,
		audit:        audit,
		logger:       logger,
	}
}

// Start begins accepting plugin connections. Blocks until ctx is cancelled
// or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("plugin socket listen: %w", err)
	}
	s.boundAddr.Store(listener.Addr().String())

	s.httpSrv = &http.Server{Handler: mux}

	s.logger.Info("plugin socket listening", "addr", listener.Addr().String())

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := s.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("plugin socket serve: %w", err)
	}
	return nil
}

// Stop closes the active session and shuts down the listener.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	sess := s.active
	s.active = nil
	s.mu.Unlock()

	if sess != nil {
		sess.ws.Close(websocket.StatusGoingAway, "server shutting down")
	}

	if s.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// BoundAddr returns the actual address the server bound to. Only valid after Start.
func (s *Server) BoundAddr() string {
	if addr, ok := s.boundAddr.Load().(string); ok {
		return addr
	}
	return ""
}

// Connected reports whether a plugin session is active.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// WaitConnected blocks until a plugin attaches or ctx expires.
func (s *Server) WaitConnected(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if s.Connected() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The plugin dials from Figma's embedded browser on the same machine.
		OriginPatterns: []string{
			"localhost",
			"localhost:*",
			"127.0.0.1",
			"127.0.0.1:*",
			"[::1]",
			"[::1]:*",
			"*.figma.com",
		},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	// The library default read limit is 32 KiB; export replies carry whole
	// base64 images in one frame.
	ws.SetReadLimit(s.maxFrameSize)

	sess := &session{id: ulid.Make().String(), ws: ws}

	s.mu.Lock()
	old := s.active
	if old != nil && s.policy == config.PolicyReject {
		s.mu.Unlock()
		s.logger.Warn("rejecting second plugin connection", "session", sess.id)
		ws.Close(websocket.StatusPolicyViolation, "a plugin is already connected")
		return
	}
	s.active = sess
	// Attach under the same critical section as the session swap: a second
	// concurrent accept must not interleave between them, or a stale handler
	// could hand the bridge an already-replaced transport. Attach also fails
	// any commands still pending against the replaced session.
	s.bridge.Attach(sess)
	s.mu.Unlock()

	if old != nil {
		s.logger.Warn("replacing active plugin connection", "old", old.id, "new", sess.id)
		old.ws.Close(websocket.StatusPolicyViolation, "replaced by a new plugin connection")
	}

	s.logger.Info("figma plugin connected", "session", sess.id)
	s.recordAudit(r.Context(), domain.AuditPluginAttach)

	s.readLoop(r.Context(), sess)

	// The read loop returning is the disconnect signal.
	s.mu.Lock()
	if s.active == sess {
		s.active = nil
	}
	s.mu.Unlock()

	s.bridge.Detach(sess)
	ws.Close(websocket.StatusNormalClosure, "")
	s.logger.Info("figma plugin disconnected", "session", sess.id)
	s.recordAudit(context.Background(), domain.AuditPluginDetach)
}

func (s *Server) recordAudit(ctx context.Context, typ domain.AuditEventType) {
	event := domain.AuditEvent{Timestamp: time.Now().UTC(), Type: typ}
	if err := s.audit.Log(ctx, event); err != nil {
		s.logger.Warn("audit write failed", "error", err)
	}
}

// readLoop drains inbound frames and feeds them to the correlator until the
// connection closes. A single reader per session keeps frame order intact.
func (s *Server) readLoop(ctx context.Context, sess *session) {
	for {
		typ, data, err := sess.ws.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			s.logger.Debug("ignoring non-text frame", "session", sess.id)
			continue
		}
		s.bridge.HandleMessage(data)
	}
}
