package render

import (
	"math"

	"github.com/charmbracelet/harmonica"
	"github.com/taigrr/lumen/pkg/math3d"
)

// axis is one spring-damped scalar.
type axis struct {
	value    float64
	velocity float64
}

func (a *axis) update(spring harmonica.Spring, target float64) {
	a.value, a.velocity = spring.Update(a.value, a.velocity, target)
}

// OrbitRig drives a camera around a focus point with spring-damped motion,
// so abrupt target changes settle into smooth arcs. Call Update once per
// frame, then Apply to position the camera.
type OrbitRig struct {
	// Focus is the point the camera orbits and looks at.
	Focus math3d.Vec3

	// TargetAngle, TargetDistance, and TargetHeight are where the rig is
	// heading; the spring chases them.
	TargetAngle    float64
	TargetDistance float64
	TargetHeight   float64

	spring   harmonica.Spring
	angle    axis
	distance axis
	height   axis
}

// NewOrbitRig creates a rig updating at the given frame rate. Angular
// frequency and damping are tuned for a slightly underdamped, camera-like
// feel.
func NewOrbitRig(fps int) *OrbitRig {
	return &OrbitRig{
		TargetDistance: 10,
		TargetHeight:   3,
		spring:         harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
		distance:       axis{value: 10},
		height:         axis{value: 3},
	}
}

// Update advances the springs one frame toward the targets.
func (r *OrbitRig) Update() {
	r.angle.update(r.spring, r.TargetAngle)
	r.distance.update(r.spring, r.TargetDistance)
	r.height.update(r.spring, r.TargetHeight)
}

// Apply positions the camera on the current orbit and aims it at the focus.
func (r *OrbitRig) Apply(c *Camera) {
	c.SetPosition(math3d.V3(
		r.Focus.X+r.distance.value*math.Sin(r.angle.value),
		r.Focus.Y+r.height.value,
		r.Focus.Z+r.distance.value*math.Cos(r.angle.value),
	))
	c.LookAt(r.Focus)
}

// Angle returns the rig's current orbit angle in radians.
func (r *OrbitRig) Angle() float64 {
	return r.angle.value
}
