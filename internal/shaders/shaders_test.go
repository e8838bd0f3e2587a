package shaders

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPreprocess(t *testing.T) {
	src := "uniform float uTime; // seconds\n/* block\n   comment */\nvoid main() { /* inline */ gl_FragColor = vec4(1.0); }\n"
	out := Preprocess(src, Fragment)

	assert.True(t, strings.HasPrefix(out, "#version 330 core\n"))
	assert.True(t, strings.HasSuffix(out, "\x00"))
	assert.Equal(t, 1, strings.Count(out, "\x00"))
	assert.Contains(t, out, "#define gl_FragColor pc_fragColor")
	assert.Contains(t, out, "uniform float uTime;\n")
	assert.Contains(t, out, "void main() {  gl_FragColor = vec4(1.0); }")
	assert.NotContains(t, out, "seconds")
	assert.NotContains(t, out, "block")
	assert.NotContains(t, out, "inline")
	assert.NotContains(t, out, "projectionMatrix")
}

func TestPreprocessVertexPrelude(t *testing.T) {
	out := Preprocess("void main() {}", Vertex)
	for _, want := range []string{"uniform mat4 projectionMatrix;", "uniform mat4 viewMatrix;", "uniform mat4 modelMatrix;", "in vec3 position;", "in vec2 uv;", "#define attribute in"} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, 1, strings.Count(out, "#version"))
}

func TestStripCommentsKeepsDivision(t *testing.T) {
	assert.Equal(t, "float a = b / c;\n", stripComments("float a = b / c; // half"))
}

func TestLoadEmbedded(t *testing.T) {
	l := NewLoader("")
	for _, name := range []string{"baked", "basic", "portal", "fireflies"} {
		p, err := l.Load(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name)
		assert.Contains(t, p.Vertex, "void main()")
		assert.Contains(t, p.Fragment, "gl_FragColor")
		assert.NotContains(t, p.Fragment, "//")
	}

	p, err := l.Load("portal")
	require.NoError(t, err)
	for _, u := range []string{"uTime", "uColorStart", "uColorEnd", "cnoise"} {
		assert.Contains(t, p.Fragment, u)
	}
	p, err = l.Load("fireflies")
	require.NoError(t, err)
	for _, u := range []string{"uPixelRatio", "uSize", "uTime", "aScale", "gl_PointSize"} {
		assert.Contains(t, p.Vertex, u)
	}

	_, err = l.Load("missing")
	assert.Error(t, err)
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "basic.vert"), []byte("void main() { gl_Position = vec4(position, 1.0); }"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "basic.frag"), []byte("void main() { gl_FragColor = vec4(1.0); }"), 0o644))

	l := NewLoader(dir)
	assert.Equal(t, dir, l.Dir())
	p, err := l.Load("basic")
	require.NoError(t, err)
	assert.Contains(t, p.Vertex, "vec4(position, 1.0)")
}

func TestProgramOf(t *testing.T) {
	name, ok := programOf(fsnotify.Event{Name: "/x/portal.frag", Op: fsnotify.Write})
	assert.True(t, ok)
	assert.Equal(t, "portal", name)

	_, ok = programOf(fsnotify.Event{Name: "/x/portal.frag", Op: fsnotify.Chmod})
	assert.False(t, ok)
	_, ok = programOf(fsnotify.Event{Name: "/x/notes.txt", Op: fsnotify.Write})
	assert.False(t, ok)
}

func TestWatcherBatchesChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, 50*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for _, f := range []string{"portal.frag", "portal.vert", "fireflies.vert", "README"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("void main() {}"), 0o644))
	}

	deadline := time.After(5 * time.Second)
	seen := map[string]bool{}
	for !(seen["portal"] && seen["fireflies"]) {
		select {
		case batch := <-w.Changes():
			for _, n := range batch {
				seen[n] = true
			}
		case <-deadline:
			t.Fatalf("saw %v", seen)
		}
	}
	assert.False(t, seen["README"])
}
