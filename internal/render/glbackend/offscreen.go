package glbackend

import (
	"fmt"

	"github.com/go-gl/gl/v3.3-core/gl"
)

// offscreen is a color+depth render target sized to the drawing buffer.
type offscreen struct {
	fbo, color, depth uint32
	width, height     int
}

func newOffscreen(w, h int) (*offscreen, error) {
	t := &offscreen{width: w, height: h}
	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)

	gl.GenRenderbuffers(1, &t.color)
	gl.BindRenderbuffer(gl.RENDERBUFFER, t.color)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.SRGB8_ALPHA8, int32(w), int32(h))
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.RENDERBUFFER, t.color)

	gl.GenRenderbuffers(1, &t.depth)
	gl.BindRenderbuffer(gl.RENDERBUFFER, t.depth)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, int32(w), int32(h))
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, t.depth)
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		t.delete()
		return nil, fmt.Errorf("framebuffer %dx%d incomplete: 0x%x", w, h, status)
	}
	return t, nil
}

// blit scales the target onto the default framebuffer.
func (t *offscreen) blit(dstW, dstH int) {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, t.fbo)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.BlitFramebuffer(0, 0, int32(t.width), int32(t.height), 0, 0, int32(dstW), int32(dstH), gl.COLOR_BUFFER_BIT, gl.LINEAR)
}

func (t *offscreen) delete() {
	gl.DeleteFramebuffers(1, &t.fbo)
	gl.DeleteRenderbuffers(1, &t.color)
	gl.DeleteRenderbuffers(1, &t.depth)
}
