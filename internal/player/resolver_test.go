package player

import (
	"io"
	"log"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"voxelworld/internal/config"
	"voxelworld/internal/physics"
	"voxelworld/internal/terrain"
	"voxelworld/internal/world"
)

const tick = 16 * time.Millisecond

type stubSensor struct {
	ground   bool
	contacts physics.Contacts
	downFars []float64
}

func (s *stubSensor) Sense(pos mgl64.Vec3, downFar float64, edits physics.Edits) physics.Contacts {
	s.downFars = append(s.downFars, downFar)
	c := s.contacts
	c.Down = s.ground && downFar > 0
	return c
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testPlayerParams() Params {
	return ParamsFromConfig(config.Default().Player)
}

func newTestResolver(sensor Sensor, edits physics.Edits) (*Resolver, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	r := NewResolver(testPlayerParams(), sensor, edits)
	r.now = clock.now
	return r, clock
}

func flatClassifier() *terrain.Classifier {
	params := terrain.ParamsFromConfig(config.Default().Terrain)
	return terrain.NewClassifier(terrain.FieldFunc(func(x, z, seed float64) float64 { return 0 }), params)
}

func TestJumpSequencing(t *testing.T) {
	sensor := &stubSensor{ground: true}
	r, clock := newTestResolver(sensor, nil)
	s := NewState(mgl64.Vec3{0, 31.9, 0})

	r.Tick(&s, tick)
	if !s.Contacts.Down || s.Velocity.Y() != 0 {
		t.Fatalf("expected grounded at rest, got contacts=%+v vy=%v", s.Contacts, s.Velocity.Y())
	}

	if !r.Jump(&s) {
		t.Fatalf("grounded jump rejected")
	}
	if s.Velocity.Y() != 8 || !s.Jumping {
		t.Fatalf("jump impulse not applied: vy=%v jumping=%v", s.Velocity.Y(), s.Jumping)
	}
	if r.Jump(&s) {
		t.Fatalf("second jump accepted while jumping")
	}

	clock.advance(tick)
	r.Tick(&s, tick)
	if got := sensor.downFars[len(sensor.downFars)-1]; got != 0 {
		t.Fatalf("down ray range inside jump window = %v, want 0", got)
	}
	if s.Contacts.Down || !s.Jumping {
		t.Fatalf("player re-grounded during jump window")
	}
	if s.Velocity.Y() <= 0 || s.Velocity.Y() >= 8 {
		t.Fatalf("gravity not applied during jump: vy=%v", s.Velocity.Y())
	}

	clock.advance(300 * time.Millisecond)
	r.Tick(&s, tick)
	if got := sensor.downFars[len(sensor.downFars)-1]; got != 1.8 {
		t.Fatalf("down ray range after window = %v, want 1.8", got)
	}
	if s.Jumping {
		t.Fatalf("jumping flag not cleared on landing")
	}
	if s.Velocity.Y() == 0 {
		t.Fatalf("landing tick must only clear the jumping flag")
	}

	clock.advance(tick)
	r.Tick(&s, tick)
	if s.Velocity.Y() != 0 {
		t.Fatalf("grounded player kept vertical velocity %v", s.Velocity.Y())
	}
}

func TestJumpIgnoredMidAir(t *testing.T) {
	r, _ := newTestResolver(&stubSensor{}, nil)
	s := NewState(mgl64.Vec3{0, 50, 0})
	r.Tick(&s, tick)
	if r.Jump(&s) || s.Jumping {
		t.Fatalf("mid-air jump accepted")
	}
}

func TestJumpThenRemoveBelowLeavesPlayerAirborne(t *testing.T) {
	ledger := world.NewLedger()
	sim := physics.NewSimulator(flatClassifier(), 0.5, log.New(io.Discard, "", 0))
	r, clock := newTestResolver(sim, ledger)
	s := NewState(mgl64.Vec3{0, 31.9, 0})

	r.Tick(&s, tick)
	if !s.Contacts.Down {
		t.Fatalf("player should start grounded")
	}
	if !r.Jump(&s) {
		t.Fatalf("jump rejected")
	}
	ledger.Remove(world.Cell{X: 0, Y: 30, Z: 0}, world.Grass)

	clock.advance(tick)
	r.Tick(&s, tick)
	if s.Contacts.Down {
		t.Fatalf("player grounded on the tick after jump and removal")
	}

	clock.advance(time.Second)
	r.Tick(&s, tick)
	if s.Contacts.Down {
		t.Fatalf("player grounded on removed block")
	}
}

func TestGravityStopsAtTerminalFall(t *testing.T) {
	r, _ := newTestResolver(&stubSensor{}, nil)

	s := NewState(mgl64.Vec3{0, 50, 0})
	r.Tick(&s, time.Second)
	if s.Velocity.Y() != -25 {
		t.Fatalf("vy after 1s = %v, want -25", s.Velocity.Y())
	}

	s = NewState(mgl64.Vec3{0, 50, 0})
	s.Velocity[1] = -38.4
	r.Tick(&s, tick)
	if s.Velocity.Y() != -38.4 {
		t.Fatalf("terminal velocity changed to %v", s.Velocity.Y())
	}
}

func TestSafetyNetRespawns(t *testing.T) {
	r, _ := newTestResolver(&stubSensor{}, nil)
	s := NewState(mgl64.Vec3{3, -99.9, 4})
	s.Velocity[1] = -30
	r.Tick(&s, tick)
	if s.Position.Y() != 60 {
		t.Fatalf("y = %v, want respawn height 60", s.Position.Y())
	}
	if s.Position.X() != 3 || s.Position.Z() != 4 {
		t.Fatalf("respawn moved horizontally to %v", s.Position)
	}
}

// vecNear compares component-wise with an absolute tolerance, so an expected
// zero accepts rounding residue such as cos(pi/2).
func vecNear(got, want mgl64.Vec3, eps float64) bool {
	for i := range got {
		if math.Abs(got[i]-want[i]) > eps {
			return false
		}
	}
	return true
}

func TestFlyingIgnoresGravityAndCollision(t *testing.T) {
	sensor := &stubSensor{ground: true, contacts: physics.Contacts{Front: true}}
	r, _ := newTestResolver(sensor, nil)
	s := NewState(mgl64.Vec3{0, 40, 0})
	r.ToggleMode(&s)
	s.Velocity = mgl64.Vec3{21.78, 2, 0}

	r.Tick(&s, time.Second)
	if len(sensor.downFars) != 0 {
		t.Fatalf("flying player sensed terrain")
	}
	want := mgl64.Vec3{0, 42, 21.78}
	if !vecNear(s.Position, want, 1e-9) {
		t.Fatalf("position = %v, want %v", s.Position, want)
	}
}

func TestWalkingMovesAlongFacing(t *testing.T) {
	r, _ := newTestResolver(&stubSensor{ground: true}, nil)
	s := NewState(mgl64.Vec3{0, 31.9, 0})
	s.Yaw = math.Pi / 2
	s.Velocity[0] = 5

	r.Tick(&s, time.Second)
	want := mgl64.Vec3{5, 31.9, 0}
	if !vecNear(s.Position, want, 1e-9) {
		t.Fatalf("position = %v, want %v", s.Position, want)
	}
}

func TestWalkingIntoWallSlides(t *testing.T) {
	sensor := &stubSensor{ground: true, contacts: physics.Contacts{Front: true}}
	r, _ := newTestResolver(sensor, nil)
	s := NewState(mgl64.Vec3{0, 31.9, 0})
	s.Yaw = math.Pi / 4
	s.Velocity[0] = 4

	r.Tick(&s, time.Second)
	if math.Abs(s.Position.X()) > 1e-9 {
		t.Fatalf("moved into the front wall: x=%v", s.Position.X())
	}
	if math.Abs(s.Position.Z()-4*math.Cos(math.Pi/4)) > 1e-9 {
		t.Fatalf("tangential motion lost: z=%v", s.Position.Z())
	}
}
