package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu       sync.Mutex
	progress []int
	total    int
	complete int
}

func (r *recorder) Progress(item string, loaded, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, loaded)
	r.total = total
}

func (r *recorder) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete++
}

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
}

func TestLoadAllReportsProgressThenComplete(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.bin", []byte("aaa"))
	writeFile(t, dir, "b.bin", []byte("bb"))
	writeFile(t, dir, "c.bin", []byte("c"))

	rec := &recorder{}
	m := NewManager(dir, rec, zap.NewNop())

	var mu sync.Mutex
	got := map[string]string{}
	decode := func(name string) func([]byte) error {
		return func(b []byte) error {
			mu.Lock()
			defer mu.Unlock()
			got[name] = string(b)
			return nil
		}
	}
	err := m.LoadAll(context.Background(), []Item{
		{Name: "a", Source: "a.bin", Decode: decode("a")},
		{Name: "b", Source: "b.bin", Decode: decode("b")},
		{Name: "c", Source: filepath.Join(dir, "c.bin"), Decode: decode("c")},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"a": "aaa", "b": "bb", "c": "c"}, got)
	assert.Equal(t, []int{1, 2, 3}, rec.progress)
	assert.Equal(t, 3, rec.total)
	assert.Equal(t, 1, rec.complete)
}

func TestLoadAllFailureSkipsComplete(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.bin", []byte("a"))

	rec := &recorder{}
	m := NewManager(dir, rec, zap.NewNop())
	err := m.LoadAll(context.Background(), []Item{
		{Name: "a", Source: "a.bin"},
		{Name: "missing", Source: "missing.bin"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
	assert.Zero(t, rec.complete)
}

func TestLoadAllDecodeError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.bin", []byte("a"))
	boom := errors.New("boom")

	rec := &recorder{}
	m := NewManager(dir, rec, zap.NewNop())
	err := m.LoadAll(context.Background(), []Item{
		{Name: "a", Source: "a.bin", Decode: func([]byte) error { return boom }},
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, rec.progress)
}

func TestFetchRemoteRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("model"))
	}))
	defer srv.Close()

	m := NewManager("", &recorder{}, zap.NewNop(), WithHTTPClient(srv.Client()), WithFetchTimeout(10*time.Second))
	data, err := m.Fetch(context.Background(), srv.URL+"/portal.glb")
	require.NoError(t, err)
	assert.Equal(t, "model", string(data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchRemoteNotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	m := NewManager("", &recorder{}, zap.NewNop(), WithHTTPClient(srv.Client()))
	_, err := m.Fetch(context.Background(), srv.URL+"/missing.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchRemoteHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	m := NewManager("", &recorder{}, zap.NewNop(), WithHTTPClient(srv.Client()))
	_, err := m.Fetch(ctx, srv.URL)
	assert.Error(t, err)
}

func TestDecodeModelRejectsDraco(t *testing.T) {
	doc := []byte(`{
		"asset": {"version": "2.0"},
		"extensionsUsed": ["KHR_draco_mesh_compression"],
		"extensionsRequired": ["KHR_draco_mesh_compression"]
	}`)
	_, err := DecodeModel(doc, "draco/")
	require.ErrorIs(t, err, ErrDracoUnsupported)
	assert.Contains(t, err.Error(), "draco/")
}

func TestDecodeModel(t *testing.T) {
	doc, err := DecodeModel([]byte(`{
		"asset": {"version": "2.0"},
		"scene": 0,
		"scenes": [{"nodes": [0]}],
		"nodes": [{"name": "Area"}]
	}`), "draco/")
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, "Area", doc.Nodes[0].Name)
}

func TestDecodeModelGarbage(t *testing.T) {
	_, err := DecodeModel([]byte("not a model"), "")
	assert.Error(t, err)
}

func TestDecodeTexture(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})
	src.Set(1, 1, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := DecodeTexture(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, img.NRGBAAt(1, 1))
}

func TestDecodeTextureGarbage(t *testing.T) {
	_, err := DecodeTexture([]byte("jpeg?"))
	assert.Error(t, err)
}

func TestListenersFanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	ls := Listeners{a, b}
	ls.Progress("model", 1, 2)
	ls.Complete()
	for _, r := range []*recorder{a, b} {
		assert.Equal(t, []int{1}, r.progress)
		assert.Equal(t, 2, r.total)
		assert.Equal(t, 1, r.complete)
	}
}
