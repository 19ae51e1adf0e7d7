package player

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"voxelworld/internal/physics"
	"voxelworld/internal/world"
)

func newTestController(sensor Sensor) *Controller {
	r, _ := newTestResolver(sensor, nil)
	return NewController(NewState(mgl64.Vec3{0, 31.9, 0}), r, world.NewLedger(), physics.View{}, nil)
}

func TestHotbarSelection(t *testing.T) {
	c := newTestController(&stubSensor{})
	tests := []struct {
		key  Key
		want world.BlockType
	}{
		{"1", world.Grass},
		{"2", world.Stone},
		{"3", world.Tree},
		{"4", world.Wood},
		{"5", world.Dirt},
		{"6", world.Coal},
		{"7", world.Sand},
		{"8", world.Leaf},
		{"9", world.Grass},
	}
	for _, tt := range tests {
		c.State.Held = world.Wood
		c.Press(tt.key)
		if c.State.Held != tt.want {
			t.Fatalf("key %q selected %v, want %v", tt.key, c.State.Held, tt.want)
		}
	}
}

func TestMovementKeysAdjustIntent(t *testing.T) {
	c := newTestController(&stubSensor{})
	walk := c.resolver.Params().WalkSpeed

	c.Press(KeyForward)
	c.Press(KeyForward)
	c.Press(KeyLeft)
	if c.State.Velocity.X() != walk || c.State.Velocity.Z() != -walk {
		t.Fatalf("intent = %v", c.State.Velocity)
	}
	c.Press(KeyBack)
	if c.State.Velocity.X() != 0 {
		t.Fatalf("opposite keys should cancel, vx=%v", c.State.Velocity.X())
	}
	c.Release(KeyForward)
	c.Release(KeyBack)
	c.Release(KeyLeft)
	c.Release(KeyRight)
	if c.State.Velocity.X() != 0 || c.State.Velocity.Z() != 0 {
		t.Fatalf("intent not cleared: %v", c.State.Velocity)
	}

	c.Press("q")
	c.Release("q")
	if c.State.Velocity != (mgl64.Vec3{}) {
		t.Fatalf("unknown key changed intent")
	}
}

func TestModeToggleRescalesIntent(t *testing.T) {
	c := newTestController(&stubSensor{})
	params := c.resolver.Params()

	c.Press(KeyForward)
	c.Press(KeyMode)
	if c.State.Mode != Flying {
		t.Fatalf("mode = %v, want flying", c.State.Mode)
	}
	if math.Abs(c.State.Velocity.X()-params.FlySpeed) > 1e-9 {
		t.Fatalf("flying intent = %v, want %v", c.State.Velocity.X(), params.FlySpeed)
	}

	c.Press(KeyJump)
	if c.State.Velocity.Y() != params.FlySpeed {
		t.Fatalf("fly up velocity = %v", c.State.Velocity.Y())
	}
	c.Release(KeyJump)
	c.Press(KeySneak)
	if c.State.Velocity.Y() != -params.FlySpeed {
		t.Fatalf("fly down velocity = %v", c.State.Velocity.Y())
	}

	c.Release(KeyMode)
	c.Press(KeyMode)
	if c.State.Mode != Walking || c.State.Velocity.Y() != 0 {
		t.Fatalf("toggle back: mode=%v vy=%v", c.State.Mode, c.State.Velocity.Y())
	}
	c.Release(KeySneak)
	if c.State.Velocity.Y() != 0 {
		t.Fatalf("release after toggle changed vy to %v", c.State.Velocity.Y())
	}
	c.Release(KeyForward)
	if math.Abs(c.State.Velocity.X()) > 1e-9 {
		t.Fatalf("forward intent left over: %v", c.State.Velocity.X())
	}
}

func TestWalkingJumpKeyJumpsOnlyWhenGrounded(t *testing.T) {
	sensor := &stubSensor{ground: true}
	c := newTestController(sensor)

	c.Press(KeyJump)
	if c.State.Jumping {
		t.Fatalf("jumped before ground contact was known")
	}
	c.Tick(tick)
	c.Press(KeyJump)
	if !c.State.Jumping || c.State.Velocity.Y() != c.resolver.Params().JumpImpulse {
		t.Fatalf("jump not started: %+v", c.State)
	}
}

func TestLookClampsPitch(t *testing.T) {
	c := newTestController(&stubSensor{})
	c.Look(1, 3)
	if c.State.Pitch >= math.Pi/2 || c.State.Yaw != 1 {
		t.Fatalf("look = yaw %v pitch %v", c.State.Yaw, c.State.Pitch)
	}
	c.Look(math.NaN(), 0)
	if c.State.Yaw != 1 {
		t.Fatalf("NaN yaw accepted")
	}
}
