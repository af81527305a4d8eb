package graphics

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Pose is a position and an orientation. The local frame follows OpenGL
// conventions: right is +X, up is +Y, forward is -Z.
type Pose struct {
	Pos  mgl64.Vec3
	Quat mgl64.Quat
}

// NewPose returns a pose at pos with identity orientation.
func NewPose(pos mgl64.Vec3) Pose {
	return Pose{Pos: pos, Quat: mgl64.QuatIdent()}
}

// UR returns the right unit vector.
func (p Pose) UR() mgl64.Vec3 { return p.Quat.Rotate(mgl64.Vec3{1, 0, 0}) }

// UU returns the up unit vector.
func (p Pose) UU() mgl64.Vec3 { return p.Quat.Rotate(mgl64.Vec3{0, 1, 0}) }

// UF returns the forward unit vector.
func (p Pose) UF() mgl64.Vec3 { return p.Quat.Rotate(mgl64.Vec3{0, 0, -1}) }

// Matrix returns the model matrix placing an object at the pose.
func (p Pose) Matrix() mgl64.Mat4 {
	return mgl64.Translate3D(p.Pos.X(), p.Pos.Y(), p.Pos.Z()).Mul4(p.Quat.Mat4())
}

// ViewMatrix returns the matrix of a camera at the pose.
func (p Pose) ViewMatrix() mgl64.Mat4 {
	return p.Quat.Conjugate().Mat4().Mul4(mgl64.Translate3D(-p.Pos.X(), -p.Pos.Y(), -p.Pos.Z()))
}

// NewNav creates a navigator at the origin looking down -Z.
func NewNav() *Nav {
	home := NewPose(mgl64.Vec3{})
	return &Nav{pose: home, home: home}
}

// Nav moves a pose with smoothed linear and angular velocities. Velocities
// are expressed in the pose's own frame: X right, Y up, Z forward.
type Nav struct {
	mu sync.Mutex

	pose   Pose
	home   Pose
	move0  mgl64.Vec3
	move1  mgl64.Vec3
	spin0  mgl64.Vec3
	spin1  mgl64.Vec3
	smooth float64
}

// Pose returns the current pose.
func (n *Nav) Pose() Pose {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pose
}

// SetPose moves the navigator to p.
func (n *Nav) SetPose(p Pose) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pose = p
}

// Smooth sets how much of the previous velocity survives each step,
// 0 follows the target velocity immediately, values near 1 glide.
func (n *Nav) Smooth(v float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.smooth = clamp(v, 0, 1)
}

// SmoothAmount returns the smoothing factor.
func (n *Nav) SmoothAmount() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.smooth
}

// SmoothForFrame sets smoothing for a frame lasting dt seconds.
func (n *Nav) SmoothForFrame(dt float64) {
	n.Smooth(math.Pow(0.0001, dt))
}

// MoveR sets the target velocity along the right vector.
func (n *Nav) MoveR(v float64) { n.setMove(0, v) }

// MoveU sets the target velocity along the up vector.
func (n *Nav) MoveU(v float64) { n.setMove(1, v) }

// MoveF sets the target velocity along the forward vector.
func (n *Nav) MoveF(v float64) { n.setMove(2, v) }

// SpinR sets the angular velocity about the right vector (pitch).
func (n *Nav) SpinR(v float64) { n.setSpin(0, v) }

// SpinU sets the angular velocity about the up vector (yaw).
func (n *Nav) SpinU(v float64) { n.setSpin(1, v) }

// SpinF sets the angular velocity about the forward vector (roll).
func (n *Nav) SpinF(v float64) { n.setSpin(2, v) }

func (n *Nav) setMove(axis int, v float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.move0[axis] = v
}

func (n *Nav) setSpin(axis int, v float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.spin0[axis] = v
}

// Velocity returns the smoothed linear velocity.
func (n *Nav) Velocity() mgl64.Vec3 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.move1
}

// TurnR rotates about the right vector by angle radians right away.
func (n *Nav) TurnR(angle float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.turn(n.pose.UR(), angle)
}

// TurnU rotates about the up vector by angle radians right away.
func (n *Nav) TurnU(angle float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.turn(n.pose.UU(), angle)
}

func (n *Nav) turn(axis mgl64.Vec3, angle float64) {
	if angle == 0 {
		return
	}
	n.pose.Quat = mgl64.QuatRotate(angle, axis).Mul(n.pose.Quat).Normalize()
}

// Halt stops all motion.
func (n *Nav) Halt() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.move0, n.move1 = mgl64.Vec3{}, mgl64.Vec3{}
	n.spin0, n.spin1 = mgl64.Vec3{}, mgl64.Vec3{}
}

// SetHome stores the current pose as home.
func (n *Nav) SetHome() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.home = n.pose
}

// Home halts and returns to the home pose.
func (n *Nav) Home() {
	n.Halt()
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pose = n.home
}

// Step advances the pose by dt, measured in frames.
func (n *Nav) Step(dt float64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	amt := 1 - n.smooth
	n.move1 = n.move1.Add(n.move0.Sub(n.move1).Mul(amt))
	n.spin1 = n.spin1.Add(n.spin0.Sub(n.spin1).Mul(amt))

	ur, uu, uf := n.pose.UR(), n.pose.UU(), n.pose.UF()
	n.turn(ur, n.spin1.X()*dt)
	n.turn(uu, n.spin1.Y()*dt)
	n.turn(uf, n.spin1.Z()*dt)

	n.pose.Pos = n.pose.Pos.
		Add(ur.Mul(n.move1.X() * dt)).
		Add(uu.Mul(n.move1.Y() * dt)).
		Add(uf.Mul(n.move1.Z() * dt))
}

// Lens describes a perspective projection.
type Lens struct {
	FovY float64 // degrees
	Near float64
	Far  float64
}

// DefaultLens is a 30 degree lens.
var DefaultLens = Lens{FovY: 30, Near: 0.1, Far: 1000}

// Projection returns the projection matrix for aspect.
func (l Lens) Projection(aspect float64) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(float32(l.FovY)), float32(aspect), float32(l.Near), float32(l.Far))
}

// Viewpoint is a camera: a navigator's pose seen through a lens.
type Viewpoint struct {
	Nav  *Nav
	Lens Lens
}

// NewViewpoint creates a camera following nav.
func NewViewpoint(nav *Nav) *Viewpoint {
	return &Viewpoint{Nav: nav, Lens: DefaultLens}
}

// View returns the view matrix.
func (v *Viewpoint) View() mgl32.Mat4 {
	if v.Nav == nil {
		return mgl32.Ident4()
	}
	return toMat32(v.Nav.Pose().ViewMatrix())
}

// Projection returns the projection matrix for aspect.
func (v *Viewpoint) Projection(aspect float64) mgl32.Mat4 {
	return v.Lens.Projection(aspect)
}

// NavInputControl drives a Nav from the keyboard and mouse.
type NavInputControl struct {
	Nav *Nav

	// Speed is the linear velocity in units per frame.
	Speed float64
	// TurnSpeed is the angular velocity in radians per frame.
	TurnSpeed float64
	// MouseSensitivity converts drag pixels to radians.
	MouseSensitivity float64
	Active           bool
}

// NewNavInputControl creates an active control over nav.
func NewNavInputControl(nav *Nav) *NavInputControl {
	return &NavInputControl{
		Nav:              nav,
		Speed:            0.1,
		TurnSpeed:        0.02,
		MouseSensitivity: 0.005,
		Active:           true,
	}
}

func (c *NavInputControl) scale(k Key) float64 {
	switch {
	case k.Shift:
		return 10
	case k.Alt:
		return 0.1
	default:
		return 1
	}
}

func (c *NavInputControl) key(k Key, down bool) bool {
	if !c.Active || k.Ctrl {
		return true
	}
	v, a := 0.0, 0.0
	if down {
		v = c.Speed * c.scale(k)
		a = c.TurnSpeed * c.scale(k)
	}
	switch k.Code {
	case 'w':
		c.Nav.MoveF(v)
	case 'x', 's':
		c.Nav.MoveF(-v)
	case 'd':
		c.Nav.MoveR(v)
	case 'a':
		c.Nav.MoveR(-v)
	case 'e':
		c.Nav.MoveU(v)
	case 'c':
		c.Nav.MoveU(-v)
	case KeyUp:
		c.Nav.SpinR(a)
	case KeyDown:
		c.Nav.SpinR(-a)
	case KeyLeft:
		c.Nav.SpinU(a)
	case KeyRight:
		c.Nav.SpinU(-a)
	case 'q':
		c.Nav.SpinF(a)
	case 'z':
		c.Nav.SpinF(-a)
	case '`':
		if down {
			c.Nav.Home()
		}
	default:
		return true
	}
	return false
}

// OnKeyDown implements InputHandler
func (c *NavInputControl) OnKeyDown(k Key) bool { return c.key(k, true) }

// OnKeyUp implements InputHandler
func (c *NavInputControl) OnKeyUp(k Key) bool { return c.key(k, false) }

// OnMouseDown implements InputHandler
func (c *NavInputControl) OnMouseDown(Mouse) bool { return true }

// OnMouseUp implements InputHandler
func (c *NavInputControl) OnMouseUp(Mouse) bool { return true }

// OnMouseDrag implements InputHandler
func (c *NavInputControl) OnMouseDrag(m Mouse) bool {
	if !c.Active {
		return true
	}
	c.Nav.TurnU(-float64(m.DX) * c.MouseSensitivity)
	c.Nav.TurnR(-float64(m.DY) * c.MouseSensitivity)
	return false
}

// OnMouseMove implements InputHandler
func (c *NavInputControl) OnMouseMove(Mouse) bool { return true }

// OnMouseScroll implements InputHandler
func (c *NavInputControl) OnMouseScroll(Mouse) bool { return true }

// OnResize implements InputHandler
func (c *NavInputControl) OnResize(int, int) bool { return true }

func toMat32(m mgl64.Mat4) mgl32.Mat4 {
	var out mgl32.Mat4
	for i := range m {
		out[i] = float32(m[i])
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
