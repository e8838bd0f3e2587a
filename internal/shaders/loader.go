// Package shaders loads the scene's GLSL programs and prepares them for a
// GL 3.3 core context.
package shaders

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

//go:embed glsl/*.vert glsl/*.frag
var embedded embed.FS

// Stage is a shader pipeline stage.
type Stage int

const (
	Vertex Stage = iota
	Fragment
)

func (s Stage) ext() string {
	if s == Vertex {
		return ".vert"
	}
	return ".frag"
}

func (s Stage) String() string {
	if s == Vertex {
		return "vertex"
	}
	return "fragment"
}

// Attribute slots bound before linking.
const (
	AttribPosition = 0
	AttribUV       = 1
	AttribScale    = 2
)

// Attributes maps attribute names to the slots above.
var Attributes = map[string]uint32{
	"position": AttribPosition,
	"uv":       AttribUV,
	"aScale":   AttribScale,
}

const version = "#version 330 core\n"

// Sources are written against the uniforms and attributes the renderer
// provides, with the older attribute/varying/gl_FragColor spelling.
const vertexPrelude = `#define attribute in
#define varying out
uniform mat4 projectionMatrix;
uniform mat4 viewMatrix;
uniform mat4 modelMatrix;
in vec3 position;
in vec2 uv;
`

const fragmentPrelude = `#define varying in
#define texture2D texture
out vec4 pc_fragColor;
#define gl_FragColor pc_fragColor
`

// Program holds ready-to-compile, NUL-terminated sources.
type Program struct {
	Name     string
	Vertex   string
	Fragment string
}

// Loader reads programs from the embedded set or, when dir is non-empty,
// from dir on disk.
type Loader struct {
	fsys fs.FS
	dir  string
}

func NewLoader(dir string) *Loader {
	if dir == "" {
		sub, _ := fs.Sub(embedded, "glsl")
		return &Loader{fsys: sub}
	}
	return &Loader{fsys: os.DirFS(dir), dir: dir}
}

// Dir is the watched directory, empty for embedded sources.
func (l *Loader) Dir() string { return l.dir }

// Load reads and preprocesses both stages of the named program.
func (l *Loader) Load(name string) (Program, error) {
	p := Program{Name: name}
	for _, st := range []Stage{Vertex, Fragment} {
		raw, err := fs.ReadFile(l.fsys, name+st.ext())
		if err != nil {
			return Program{}, fmt.Errorf("load %s %s shader: %w", name, st, err)
		}
		src := Preprocess(string(raw), st)
		if st == Vertex {
			p.Vertex = src
		} else {
			p.Fragment = src
		}
	}
	return p, nil
}

// Preprocess strips comments, prepends the version line and the stage
// prelude, and NUL-terminates the result for gl.Strs.
func Preprocess(src string, st Stage) string {
	var b strings.Builder
	b.WriteString(version)
	if st == Vertex {
		b.WriteString(vertexPrelude)
	} else {
		b.WriteString(fragmentPrelude)
	}
	b.WriteString(stripComments(strings.TrimPrefix(src, "\ufeff")))
	b.WriteByte(0)
	return b.String()
}

// stripComments drops // and /* */ comments. Lines left empty inside a
// block comment are dropped too.
func stripComments(code string) string {
	var out strings.Builder
	inBlock := false
	for _, line := range strings.Split(code, "\n") {
		var kept strings.Builder
		startedInBlock := inBlock
		for i := 0; i < len(line); i++ {
			if inBlock {
				if line[i] == '*' && i+1 < len(line) && line[i+1] == '/' {
					inBlock = false
					i++
				}
				continue
			}
			if line[i] == '/' && i+1 < len(line) {
				if line[i+1] == '*' {
					inBlock = true
					i++
					continue
				}
				if line[i+1] == '/' {
					break
				}
			}
			kept.WriteByte(line[i])
		}
		s := strings.TrimRight(kept.String(), " \t\r")
		if s == "" && (startedInBlock || inBlock) {
			continue
		}
		out.WriteString(s)
		out.WriteByte('\n')
	}
	return out.String()
}
