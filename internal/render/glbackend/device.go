package glbackend

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/janessatran/portal/internal/render"
	"github.com/janessatran/portal/internal/scene"
	"github.com/janessatran/portal/internal/shaders"
)

var programNames = []string{scene.ProgramBaked, scene.ProgramBasic, scene.ProgramPortal, scene.ProgramFireflies}

type meshBuffers struct {
	vao, vbo, uvbo, ebo uint32
	count               int32
}

type pointBuffers struct {
	vao, vbo, sbo uint32
	count         int32
}

// Device draws scene primitives with GL. Vertex data and textures are
// uploaded the first time a primitive or image is drawn and cached by
// pointer, so scene data must not be mutated after it is first rendered.
type Device struct {
	log    *zap.Logger
	loader *shaders.Loader

	programs map[string]*program
	meshes   map[*scene.Primitive]*meshBuffers
	points   map[*scene.Points]*pointBuffers
	textures map[*image.NRGBA]uint32

	fbWidth, fbHeight int
	target            *offscreen
	frame             render.Frame
}

// New compiles every scene program. It fails if any program does not
// compile, since nothing could be drawn without them.
func New(loader *shaders.Loader, log *zap.Logger) (*Device, error) {
	d := &Device{
		log:      log.Named("gl"),
		loader:   loader,
		programs: map[string]*program{},
		meshes:   map[*scene.Primitive]*meshBuffers{},
		points:   map[*scene.Points]*pointBuffers{},
		textures: map[*image.NRGBA]uint32{},
	}
	for _, name := range programNames {
		p, err := d.build(name)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.programs[name] = p
	}
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	return d, nil
}

func (d *Device) build(name string) (*program, error) {
	src, err := d.loader.Load(name)
	if err != nil {
		return nil, err
	}
	p, err := newProgram(src.Vertex, src.Fragment, shaders.Attributes)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", name, err)
	}
	return p, nil
}

// Reload recompiles the named programs. A program that fails to build
// keeps its previous version.
func (d *Device) Reload(names []string) {
	for _, name := range names {
		old, ok := d.programs[name]
		if !ok {
			continue
		}
		p, err := d.build(name)
		if err != nil {
			d.log.Error("shader reload failed, keeping previous program", zap.String("program", name), zap.Error(err))
			continue
		}
		old.delete()
		d.programs[name] = p
		d.log.Info("shader reloaded", zap.String("program", name))
	}
}

// SetFramebufferSize records the window's framebuffer size. When a frame's
// drawing buffer differs from it, the frame renders offscreen and is
// scaled onto the window in End.
func (d *Device) SetFramebufferSize(w, h int) {
	d.fbWidth, d.fbHeight = w, h
}

func (d *Device) Begin(f render.Frame) {
	d.frame = f
	if f.Width > 0 && f.Height > 0 && (f.Width != d.fbWidth || f.Height != d.fbHeight) {
		if d.target == nil || d.target.width != f.Width || d.target.height != f.Height {
			if d.target != nil {
				d.target.delete()
			}
			t, err := newOffscreen(f.Width, f.Height)
			if err != nil {
				d.log.Warn("offscreen target unavailable, drawing at window size", zap.Error(err))
				d.target = nil
			} else {
				d.target = t
			}
		}
	} else if d.target != nil {
		d.target.delete()
		d.target = nil
	}

	w, h := d.fbWidth, d.fbHeight
	if d.target != nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, d.target.fbo)
		w, h = d.target.width, d.target.height
	} else {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	}
	gl.Viewport(0, 0, int32(w), int32(h))

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthMask(true)
	setOutputEncoding(false)
	gl.ClearColor(f.ClearColor.R, f.ClearColor.G, f.ClearColor.B, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (d *Device) End() {
	gl.BindVertexArray(0)
	gl.UseProgram(0)
	setOutputEncoding(false)
	if d.target != nil {
		d.target.blit(d.fbWidth, d.fbHeight)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(d.fbWidth), int32(d.fbHeight))
}

func (d *Device) use(name string, model, view, proj mgl32.Mat4) *program {
	p := d.programs[name]
	gl.UseProgram(p.id)
	gl.UniformMatrix4fv(p.uniform("projectionMatrix"), 1, false, &proj[0])
	gl.UniformMatrix4fv(p.uniform("viewMatrix"), 1, false, &view[0])
	gl.UniformMatrix4fv(p.uniform("modelMatrix"), 1, false, &model[0])
	return p
}

func (d *Device) DrawMesh(prim *scene.Primitive, m scene.Material, model, view, proj mgl32.Mat4) {
	if _, ok := d.programs[m.Program()]; !ok {
		return
	}
	p := d.use(m.Program(), model, view, proj)

	switch mat := m.(type) {
	case *scene.BakedMaterial:
		if mat.Map == nil {
			return
		}
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, d.texture(mat.Map, mat.SRGB))
		gl.Uniform1i(p.uniform("map"), 0)
	case *scene.BasicMaterial:
		gl.Uniform3f(p.uniform("uColor"), mat.Color.R, mat.Color.G, mat.Color.B)
	case *scene.PortalMaterial:
		gl.Uniform1f(p.uniform("uTime"), mat.Time)
		gl.Uniform3f(p.uniform("uColorStart"), mat.ColorStart.R, mat.ColorStart.G, mat.ColorStart.B)
		gl.Uniform3f(p.uniform("uColorEnd"), mat.ColorEnd.R, mat.ColorEnd.G, mat.ColorEnd.B)
	}

	setOutputEncoding(scene.EncodesOutput(m))

	if scene.SideOf(m) == scene.DoubleSide {
		gl.Disable(gl.CULL_FACE)
	} else {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}

	b := d.mesh(prim)
	gl.BindVertexArray(b.vao)
	gl.DrawElements(gl.TRIANGLES, b.count, gl.UNSIGNED_INT, gl.PtrOffset(0))
}

func (d *Device) DrawPoints(pts *scene.Points, view, proj mgl32.Mat4) {
	mat := pts.Material
	if mat == nil {
		return
	}
	p := d.use(scene.ProgramFireflies, mgl32.Ident4(), view, proj)
	gl.Uniform1f(p.uniform("uPixelRatio"), mat.PixelRatio)
	gl.Uniform1f(p.uniform("uSize"), mat.Size)
	gl.Uniform1f(p.uniform("uTime"), mat.Time)

	if mat.Transparent {
		gl.Enable(gl.BLEND)
		if mat.Blending == scene.AdditiveBlending {
			gl.BlendFunc(gl.SRC_ALPHA, gl.ONE)
		} else {
			gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
		}
	}
	gl.DepthMask(mat.DepthWrite)
	gl.Disable(gl.CULL_FACE)
	setOutputEncoding(false)

	b := d.pointCloud(pts)
	gl.BindVertexArray(b.vao)
	gl.DrawArrays(gl.POINTS, 0, b.count)

	gl.DepthMask(true)
	gl.Disable(gl.BLEND)
}

func (d *Device) mesh(prim *scene.Primitive) *meshBuffers {
	if b, ok := d.meshes[prim]; ok {
		return b
	}
	b := &meshBuffers{count: int32(len(prim.Indices))}
	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)

	b.vbo = uploadVec3(shaders.AttribPosition, prim.Positions)

	uvs := make([]float32, 0, len(prim.UVs)*2)
	for _, uv := range prim.UVs {
		uvs = append(uvs, uv[0], uv[1])
	}
	b.uvbo = uploadFloats(shaders.AttribUV, 2, uvs)

	gl.GenBuffers(1, &b.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.ebo)
	if len(prim.Indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(prim.Indices)*4, gl.Ptr(prim.Indices), gl.STATIC_DRAW)
	}
	gl.BindVertexArray(0)

	d.meshes[prim] = b
	return b
}

func (d *Device) pointCloud(pts *scene.Points) *pointBuffers {
	if b, ok := d.points[pts]; ok {
		return b
	}
	b := &pointBuffers{count: int32(len(pts.Positions))}
	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)
	b.vbo = uploadVec3(shaders.AttribPosition, pts.Positions)
	b.sbo = uploadFloats(shaders.AttribScale, 1, pts.Scales)
	gl.BindVertexArray(0)

	d.points[pts] = b
	return b
}

func uploadVec3(slot uint32, v [][3]float32) uint32 {
	flat := make([]float32, 0, len(v)*3)
	for _, p := range v {
		flat = append(flat, p[0], p[1], p[2])
	}
	return uploadFloats(slot, 3, flat)
}

func uploadFloats(slot uint32, size int32, data []float32) uint32 {
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	if len(data) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	}
	gl.VertexAttribPointer(slot, size, gl.FLOAT, false, size*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(slot)
	return vbo
}

// texture uploads img rows in decoded order, top row first. glTF UVs have
// their origin at the top left, so no flip is needed.
func (d *Device) texture(img *image.NRGBA, srgb bool) uint32 {
	if id, ok := d.textures[img]; ok {
		return id
	}
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	b := img.Bounds()
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(img.Stride/4))
	gl.TexImage2D(gl.TEXTURE_2D, 0, textureFormat(srgb), int32(b.Dx()), int32(b.Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
	gl.GenerateMipmap(gl.TEXTURE_2D)

	d.textures[img] = id
	return id
}

// textureFormat is the internal format for 8-bit RGBA texels.
func textureFormat(srgb bool) int32 {
	if srgb {
		return gl.SRGB8_ALPHA8
	}
	return gl.RGBA8
}

// setOutputEncoding switches linear to sRGB conversion of fragment output.
// The clear, the blit and the text overlay run with it off.
func setOutputEncoding(srgb bool) {
	if srgb {
		gl.Enable(gl.FRAMEBUFFER_SRGB)
	} else {
		gl.Disable(gl.FRAMEBUFFER_SRGB)
	}
}

// Close releases every GL object the device created.
func (d *Device) Close() {
	for _, p := range d.programs {
		p.delete()
	}
	for _, b := range d.meshes {
		gl.DeleteVertexArrays(1, &b.vao)
		gl.DeleteBuffers(1, &b.vbo)
		gl.DeleteBuffers(1, &b.uvbo)
		gl.DeleteBuffers(1, &b.ebo)
	}
	for _, b := range d.points {
		gl.DeleteVertexArrays(1, &b.vao)
		gl.DeleteBuffers(1, &b.vbo)
		gl.DeleteBuffers(1, &b.sbo)
	}
	for _, id := range d.textures {
		gl.DeleteTextures(1, &id)
	}
	if d.target != nil {
		d.target.delete()
	}
	d.programs = map[string]*program{}
	d.meshes = map[*scene.Primitive]*meshBuffers{}
	d.points = map[*scene.Points]*pointBuffers{}
	d.textures = map[*image.NRGBA]uint32{}
	d.target = nil
}
