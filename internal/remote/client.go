package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/janessatran/portal/internal/debug"
)

// ErrClosed is returned by Set once the connection is gone.
var ErrClosed = errors.New("control channel closed")

// Client is the panel side of the control channel.
type Client struct {
	conn *websocket.Conn
	log  *zap.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	nextID   uint64
	pending  map[uint64]chan Message
	snapshot []ControlState
	onSnap   func([]ControlState)
	closed   bool

	done chan struct{}
}

// Dial connects to url and waits for the initial snapshot.
func Dial(ctx context.Context, url string, log *zap.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{
		conn:    conn,
		log:     log.Named("remote"),
		pending: make(map[uint64]chan Message),
		done:    make(chan struct{}),
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	first, err := decode(data)
	if err != nil || first.Type != TypeSnapshot {
		conn.Close()
		return nil, fmt.Errorf("expected %s message, got %q (%v)", TypeSnapshot, first.Type, err)
	}
	conn.SetReadDeadline(time.Time{})
	c.snapshot = first.Controls

	go c.readLoop()
	return c, nil
}

// Snapshot returns the most recent control states received.
func (c *Client) Snapshot() []ControlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ControlState(nil), c.snapshot...)
}

// OnSnapshot registers fn for snapshots pushed after the first one, e.g.
// when another panel changed a value.
func (c *Client) OnSnapshot(fn func([]ControlState)) {
	c.mu.Lock()
	c.onSnap = fn
	c.mu.Unlock()
}

// Set sends one change and waits for the server's verdict. A rejected
// change comes back as an error carrying the server's message.
func (c *Client) Set(ctx context.Context, ch debug.Change) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.nextID++
	id := c.nextID
	reply := make(chan Message, 1)
	c.pending[id] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	data, err := encode(Message{Type: TypeSet, ID: id, Name: ch.Name, Value: ch.Value})
	if err != nil {
		return fmt.Errorf("encode %s: %w", ch.Name, err)
	}
	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("send %s: %w", ch.Name, err)
	}

	select {
	case m := <-reply:
		if m.Type == TypeError {
			return fmt.Errorf("set %s: %s", ch.Name, m.Error)
		}
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Close() error {
	c.writeMu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("control channel read failed", zap.Error(err))
			}
			return
		}
		m, err := decode(data)
		if err != nil {
			c.log.Warn("malformed message", zap.Error(err))
			continue
		}
		switch m.Type {
		case TypeSnapshot:
			c.mu.Lock()
			c.snapshot = m.Controls
			fn := c.onSnap
			c.mu.Unlock()
			if fn != nil {
				fn(m.Controls)
			}
		case TypeAck, TypeError:
			c.mu.Lock()
			reply, ok := c.pending[m.ID]
			c.mu.Unlock()
			if ok {
				reply <- m
			} else if m.Type == TypeError {
				c.log.Warn("server error", zap.String("error", m.Error))
			}
		}
	}
}
