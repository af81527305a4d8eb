package graphics_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"github.com/devblok/tessera/graphics"
)

func TestNavStepWithoutSmoothing(t *testing.T) {
	nav := graphics.NewNav()
	nav.MoveF(1)
	nav.Step(2)
	assert.InDelta(t, -2, nav.Pose().Pos.Z(), 1e-9)
	assert.InDelta(t, 1, nav.Velocity().Z(), 1e-9)
}

func TestNavSmoothing(t *testing.T) {
	nav := graphics.NewNav()
	nav.Smooth(0.5)
	nav.MoveR(1)
	nav.Step(1)
	assert.InDelta(t, 0.5, nav.Velocity().X(), 1e-9)
	nav.Step(1)
	assert.InDelta(t, 0.75, nav.Velocity().X(), 1e-9)
	assert.InDelta(t, 1.25, nav.Pose().Pos.X(), 1e-9)

	nav.Smooth(3)
	assert.Equal(t, 1.0, nav.SmoothAmount())
}

func TestNavSmoothForFrame(t *testing.T) {
	nav := graphics.NewNav()
	nav.SmoothForFrame(0.5)
	assert.InDelta(t, math.Pow(0.0001, 0.5), nav.SmoothAmount(), 1e-12)
	nav.SmoothForFrame(0)
	assert.Equal(t, 1.0, nav.SmoothAmount())
}

func TestNavTurn(t *testing.T) {
	nav := graphics.NewNav()
	nav.TurnU(math.Pi / 2)
	uf := nav.Pose().UF()
	assert.InDelta(t, -1, uf.X(), 1e-9)
	assert.InDelta(t, 0, uf.Z(), 1e-9)
}

func TestNavHome(t *testing.T) {
	nav := graphics.NewNav()
	nav.SetPose(graphics.NewPose(mgl64.Vec3{0, 0, 5}))
	nav.SetHome()
	nav.MoveU(1)
	nav.Step(1)
	assert.InDelta(t, 1, nav.Pose().Pos.Y(), 1e-9)

	nav.Home()
	assert.Equal(t, mgl64.Vec3{0, 0, 5}, nav.Pose().Pos)
	assert.Equal(t, mgl64.Vec3{}, nav.Velocity())
}

func TestViewMatrixInvertsPose(t *testing.T) {
	p := graphics.NewPose(mgl64.Vec3{1, 2, 3})
	p.Quat = mgl64.QuatRotate(0.3, mgl64.Vec3{0, 1, 0})
	m := p.ViewMatrix().Mul4(p.Matrix())
	assert.True(t, m.ApproxEqualThreshold(mgl64.Ident4(), 1e-9))
}

func TestNavInputControl(t *testing.T) {
	nav := graphics.NewNav()
	ctl := graphics.NewNavInputControl(nav)

	assert.False(t, ctl.OnKeyDown(graphics.Key{Code: 'w', Down: true}))
	nav.Step(1)
	assert.InDelta(t, -ctl.Speed, nav.Pose().Pos.Z(), 1e-9)

	assert.False(t, ctl.OnKeyUp(graphics.Key{Code: 'w'}))
	nav.Step(1)
	assert.InDelta(t, 0, nav.Velocity().Z(), 1e-9)

	assert.True(t, ctl.OnKeyDown(graphics.Key{Code: 'w', Ctrl: true}), "ctrl chords pass through")
	assert.True(t, ctl.OnKeyDown(graphics.Key{Code: 'p'}), "unmapped keys pass through")

	assert.False(t, ctl.OnKeyDown(graphics.Key{Code: 'd', Shift: true}))
	nav.Step(1)
	assert.InDelta(t, ctl.Speed*10, nav.Velocity().X(), 1e-9)

	ctl.Active = false
	assert.True(t, ctl.OnKeyDown(graphics.Key{Code: 'w'}))
	assert.True(t, ctl.OnMouseDrag(graphics.Mouse{DX: 10}))
}

func TestNavInputDragTurns(t *testing.T) {
	nav := graphics.NewNav()
	ctl := graphics.NewNavInputControl(nav)
	assert.False(t, ctl.OnMouseDrag(graphics.Mouse{DX: 100}))
	assert.NotEqual(t, mgl64.QuatIdent(), nav.Pose().Quat)
}
