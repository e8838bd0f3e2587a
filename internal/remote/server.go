package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/janessatran/portal/internal/debug"
)

// Handler applies changes to the scene. Apply may block until the change
// has been applied on the render thread.
type Handler interface {
	Apply(ctx context.Context, c debug.Change) error
	Snapshot(ctx context.Context) ([]ControlState, error)
}

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server upgrades /controls requests and relays set messages to a Handler.
// After every accepted change the other connected clients get a fresh
// snapshot so several panels stay in sync.
type Server struct {
	handler  Handler
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewServer(h Handler, log *zap.Logger) *Server {
	return &Server{
		handler: h,
		log:     log.Named("remote"),
		upgrader: websocket.Upgrader{
			// The panel is a local companion process, not a browser page.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	snap, err := s.snapshot(r.Context())
	if err != nil {
		s.log.Warn("snapshot failed", zap.Error(err))
		conn.Close()
		return
	}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	c.send <- snap
	s.mu.Unlock()
	s.log.Debug("panel connected", zap.String("remote", conn.RemoteAddr().String()))

	go s.writePump(c)
	s.readPump(r.Context(), c)
}

func (s *Server) readPump(ctx context.Context, c *client) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		close(c.send)
		s.log.Debug("panel disconnected")
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("read failed", zap.Error(err))
			}
			return
		}
		msg, err := decode(data)
		if err != nil {
			s.reply(c, Message{Type: TypeError, Error: fmt.Sprintf("malformed message: %v", err)})
			continue
		}
		if msg.Type != TypeSet {
			s.reply(c, Message{Type: TypeError, ID: msg.ID, Error: fmt.Sprintf("unsupported message type %q", msg.Type)})
			continue
		}

		change := debug.Change{Name: msg.Name, Value: msg.Value}
		if err := s.handler.Apply(ctx, change); err != nil {
			s.log.Info("control rejected", zap.String("control", msg.Name), zap.Error(err))
			s.reply(c, Message{Type: TypeError, ID: msg.ID, Name: msg.Name, Error: err.Error()})
			continue
		}
		s.log.Debug("control applied", zap.String("control", msg.Name), zap.Any("value", msg.Value))
		s.reply(c, Message{Type: TypeAck, ID: msg.ID, Name: msg.Name})
		s.broadcastExcept(ctx, c)
	}
}

func (s *Server) writePump(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.log.Warn("write failed", zap.Error(err))
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (s *Server) reply(c *client, m Message) {
	data, err := encode(m)
	if err != nil {
		s.log.Error("encode reply", zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	default:
		s.log.Warn("client send buffer full, dropping message", zap.String("type", m.Type))
	}
}

func (s *Server) broadcastExcept(ctx context.Context, from *client) {
	s.mu.Lock()
	others := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		if c != from {
			others = append(others, c)
		}
	}
	s.mu.Unlock()
	if len(others) == 0 {
		return
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		s.log.Warn("snapshot failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range others {
		if _, ok := s.clients[c]; !ok {
			continue
		}
		select {
		case c.send <- snap:
		default:
		}
	}
}

func (s *Server) snapshot(ctx context.Context) ([]byte, error) {
	controls, err := s.handler.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return encode(Message{Type: TypeSnapshot, Controls: controls})
}

// Listen serves s on addr until ctx is done and returns the websocket URL
// clients should dial. Port 0 picks a free port.
func Listen(ctx context.Context, addr string, s *Server) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle(Path, s)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("control server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	url := "ws://" + ln.Addr().String() + Path
	s.log.Info("control channel listening", zap.String("url", url))
	return url, nil
}
