package remote

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/janessatran/portal/internal/colorx"
	"github.com/janessatran/portal/internal/debug"
)

type nopSink struct{}

func (nopSink) SetClearColor(colorx.RGB)       {}
func (nopSink) SetPortalColorStart(colorx.RGB) {}
func (nopSink) SetPortalColorEnd(colorx.RGB)   {}
func (nopSink) SetFireflySize(float32)         {}

type paramsHandler struct {
	mu       sync.Mutex
	params   debug.Params
	controls []debug.Control
}

func newParamsHandler() *paramsHandler {
	return &paramsHandler{
		params: debug.Params{
			ClearColor:       colorx.MustParse("#544054"),
			PortalColorStart: colorx.MustParse("#b2aada"),
			PortalColorEnd:   colorx.MustParse("#ffbb00"),
			FireflySize:      168,
		},
		controls: debug.ControlsFor(true),
	}
}

func (h *paramsHandler) Apply(_ context.Context, c debug.Change) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return debug.Apply(&h.params, c, h.controls, nopSink{})
}

func (h *paramsHandler) Snapshot(context.Context) ([]ControlState, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ControlState, 0, len(h.controls))
	for _, c := range h.controls {
		v, err := h.params.Value(c.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, ControlState{Control: c, Value: v})
	}
	return out, nil
}

func startServer(t *testing.T, h Handler) string {
	t.Helper()
	srv := httptest.NewServer(NewServer(h, zap.NewNop()))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + Path
}

func dial(t *testing.T, url string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSnapshotOnConnect(t *testing.T) {
	c := dial(t, startServer(t, newParamsHandler()))
	snap := c.Snapshot()
	require.Len(t, snap, 4)
	assert.Equal(t, debug.ClearColor, snap[0].Name)
	assert.Equal(t, debug.KindColor, snap[0].Kind)
	assert.Equal(t, "#544054", snap[0].Value)
	assert.Equal(t, debug.FirefliesSize, snap[3].Name)
	assert.Equal(t, 500.0, snap[3].Max)
	assert.Equal(t, 1.0, snap[3].Step)
	assert.Equal(t, 168.0, snap[3].Value)
}

func TestSetAckAndError(t *testing.T) {
	h := newParamsHandler()
	c := dial(t, startServer(t, h))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.Set(ctx, debug.Change{Name: debug.ClearColor, Value: "#ffffff"}))
	require.NoError(t, c.Set(ctx, debug.Change{Name: debug.FirefliesSize, Value: 900}))
	h.mu.Lock()
	assert.Equal(t, colorx.White, h.params.ClearColor)
	assert.Equal(t, float32(500), h.params.FireflySize)
	h.mu.Unlock()

	err := c.Set(ctx, debug.Change{Name: debug.PortalColorEnd, Value: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), debug.ErrInvalidValue.Error())

	err = c.Set(ctx, debug.Change{Name: "bloom", Value: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), debug.ErrUnknownControl.Error())

	// Size is sent as an int and arrives as a JSON number.
	require.NoError(t, c.Set(ctx, debug.Change{Name: debug.FirefliesSize, Value: 0}))
	h.mu.Lock()
	assert.Equal(t, float32(0), h.params.FireflySize)
	h.mu.Unlock()
}

func TestOtherPanelsGetSnapshot(t *testing.T) {
	url := startServer(t, newParamsHandler())
	a := dial(t, url)
	b := dial(t, url)

	got := make(chan []ControlState, 1)
	b.OnSnapshot(func(s []ControlState) { got <- s })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Set(ctx, debug.Change{Name: debug.PortalColorStart, Value: "#000000"}))

	select {
	case snap := <-got:
		assert.Equal(t, "#000000", snap[1].Value)
		assert.Equal(t, "#000000", b.Snapshot()[1].Value)
	case <-time.After(5 * time.Second):
		t.Fatal("second panel did not receive a snapshot")
	}
}

func TestServerRejectsUnknownMessageType(t *testing.T) {
	url := startServer(t, newParamsHandler())
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var first Message
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, TypeSnapshot, first.Type)

	require.NoError(t, conn.WriteJSON(Message{Type: "reset", ID: 7}))
	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, TypeError, reply.Type)
	assert.Equal(t, uint64(7), reply.ID)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, TypeError, reply.Type)
}

func TestSetAfterClose(t *testing.T) {
	c := dial(t, startServer(t, newParamsHandler()))
	require.NoError(t, c.Close())
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("read loop did not stop")
	}
	assert.ErrorIs(t, c.Set(context.Background(), debug.Change{Name: debug.ClearColor, Value: "#fff"}), ErrClosed)
}

func TestListen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	url, err := Listen(ctx, "127.0.0.1:0", NewServer(newParamsHandler(), zap.NewNop()))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "ws://127.0.0.1:"))
	assert.True(t, strings.HasSuffix(url, Path))

	c := dial(t, url)
	assert.Len(t, c.Snapshot(), 4)
}
