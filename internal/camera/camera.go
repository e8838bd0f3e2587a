// Package camera provides a perspective camera and damped orbit controls.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Perspective is a right-handed, Y-up perspective camera.
type Perspective struct {
	// FovY is the vertical field of view in degrees.
	FovY   float32
	Aspect float32
	Near   float32
	Far    float32

	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3

	projection mgl32.Mat4
}

func NewPerspective(fovY, aspect, near, far float32) *Perspective {
	c := &Perspective{
		FovY:   fovY,
		Aspect: aspect,
		Near:   near,
		Far:    far,
		Up:     mgl32.Vec3{0, 1, 0},
	}
	c.UpdateProjection()
	return c
}

// SetAspect sets the aspect ratio and recomputes the projection.
func (c *Perspective) SetAspect(aspect float32) {
	c.Aspect = aspect
	c.UpdateProjection()
}

func (c *Perspective) UpdateProjection() {
	c.projection = mgl32.Perspective(mgl32.DegToRad(c.FovY), c.Aspect, c.Near, c.Far)
}

func (c *Perspective) Projection() mgl32.Mat4 { return c.projection }

func (c *Perspective) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

const (
	epsilon = 1e-6
	// Movement below this is float noise from the spherical round trip.
	moveEpsilon = 1e-4
)

// Orbit rotates the camera around its target on a sphere, with optional
// damping so motion eases out after input stops.
type Orbit struct {
	cam *Perspective

	EnableDamping bool
	DampingFactor float32
	RotateSpeed   float32
	ZoomSpeed     float32
	MinDistance   float32
	MaxDistance   float32

	deltaTheta float32
	deltaPhi   float32
	scale      float32
}

func NewOrbit(cam *Perspective) *Orbit {
	return &Orbit{
		cam:           cam,
		DampingFactor: 0.05,
		RotateSpeed:   1,
		ZoomSpeed:     1,
		MinDistance:   0,
		MaxDistance:   float32(math.Inf(1)),
		scale:         1,
	}
}

// Rotate feeds a pointer drag of (dx, dy) pixels in a viewport of the given
// height. A drag across the full height turns the camera one full circle.
func (o *Orbit) Rotate(dx, dy float32, viewportHeight int) {
	if viewportHeight <= 0 {
		return
	}
	h := float32(viewportHeight)
	o.deltaTheta -= 2 * math.Pi * dx / h * o.RotateSpeed
	o.deltaPhi -= 2 * math.Pi * dy / h * o.RotateSpeed
}

// Zoom feeds a scroll offset; positive steps move closer.
func (o *Orbit) Zoom(steps float32) {
	if steps == 0 {
		return
	}
	factor := float32(math.Pow(0.95, float64(o.ZoomSpeed)))
	if steps > 0 {
		o.scale *= factor
	} else {
		o.scale /= factor
	}
}

// Update applies pending rotation and zoom to the camera and reports
// whether the camera moved.
func (o *Orbit) Update() bool {
	offset := o.cam.Position.Sub(o.cam.Target)
	radius := offset.Len()
	if radius < epsilon {
		return false
	}
	theta := float32(math.Atan2(float64(offset.X()), float64(offset.Z())))
	phi := float32(math.Acos(float64(clamp(offset.Y()/radius, -1, 1))))

	if o.EnableDamping {
		theta += o.deltaTheta * o.DampingFactor
		phi += o.deltaPhi * o.DampingFactor
	} else {
		theta += o.deltaTheta
		phi += o.deltaPhi
	}
	phi = clamp(phi, epsilon, math.Pi-epsilon)
	radius = clamp(radius*o.scale, o.MinDistance, o.MaxDistance)

	sinPhi := float32(math.Sin(float64(phi)))
	next := o.cam.Target.Add(mgl32.Vec3{
		radius * sinPhi * float32(math.Sin(float64(theta))),
		radius * float32(math.Cos(float64(phi))),
		radius * sinPhi * float32(math.Cos(float64(theta))),
	})

	if o.EnableDamping {
		o.deltaTheta *= 1 - o.DampingFactor
		o.deltaPhi *= 1 - o.DampingFactor
	} else {
		o.deltaTheta, o.deltaPhi = 0, 0
	}
	o.scale = 1

	moved := next.Sub(o.cam.Position).Len() > moveEpsilon
	o.cam.Position = next
	return moved
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
