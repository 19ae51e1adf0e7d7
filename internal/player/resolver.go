package player

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"voxelworld/internal/physics"
)

// Sensor reports contacts around an eye position.
type Sensor interface {
	Sense(pos mgl64.Vec3, downFar float64, edits physics.Edits) physics.Contacts
}

type timeSource func() time.Time

// Resolver integrates a State once per tick against the sensed terrain.
type Resolver struct {
	params    Params
	sensor    Sensor
	edits     physics.Edits
	now       timeSource
	jumpUntil time.Time
}

func NewResolver(params Params, sensor Sensor, edits physics.Edits) *Resolver {
	return &Resolver{
		params: params,
		sensor: sensor,
		edits:  edits,
		now:    time.Now,
	}
}

// Params returns the movement constants.
func (r *Resolver) Params() Params {
	return r.params
}

// JumpWindowActive reports whether ground probing is currently suppressed.
func (r *Resolver) JumpWindowActive() bool {
	return r.now().Before(r.jumpUntil)
}

// Jump starts a jump when the player is walking, grounded and not already
// jumping. It reports whether the jump started.
func (r *Resolver) Jump(s *State) bool {
	if s.Mode != Walking || !s.Contacts.Down || s.Jumping {
		return false
	}
	s.Velocity[1] = r.params.JumpImpulse
	s.Jumping = true
	r.jumpUntil = r.now().Add(r.params.JumpWindow)
	return true
}

// ToggleMode switches between walking and flying. Horizontal intent is
// rescaled to the new mode's speed and vertical velocity is cleared.
func (r *Resolver) ToggleMode(s *State) {
	from := r.params.Speed(s.Mode)
	if s.Mode == Walking {
		s.Mode = Flying
	} else {
		s.Mode = Walking
	}
	if from > 0 {
		scale := r.params.Speed(s.Mode) / from
		s.Velocity[0] *= scale
		s.Velocity[2] *= scale
	}
	s.Velocity[1] = 0
	s.Jumping = false
	r.jumpUntil = time.Time{}
}

// Tick advances the state by dt.
func (r *Resolver) Tick(s *State, dt time.Duration) {
	secs := dt.Seconds()
	if secs <= 0 {
		return
	}
	if s.Mode == Flying {
		r.fly(s, secs)
		return
	}
	r.walk(s, secs)
}

func (r *Resolver) horizontal(s *State, secs float64) mgl64.Vec3 {
	return Forward(s.Yaw).Mul(s.Velocity.X() * secs).Add(RightOf(s.Yaw).Mul(s.Velocity.Z() * secs))
}

func (r *Resolver) fly(s *State, secs float64) {
	s.Position = s.Position.Add(r.horizontal(s, secs))
	s.Position[1] += s.Velocity.Y() * secs
	s.Contacts = physics.Contacts{}
}

func (r *Resolver) walk(s *State, secs float64) {
	if math.Abs(s.Velocity.Y()) < r.params.TerminalFall {
		s.Velocity[1] -= r.params.Gravity * secs
	}

	downFar := r.params.Height
	if r.JumpWindowActive() {
		downFar = 0
	}
	s.Contacts = r.sensor.Sense(s.Position, downFar, r.edits)

	if s.Contacts.Down {
		if s.Jumping {
			s.Jumping = false
		} else {
			s.Velocity[1] = 0
		}
	}

	disp := r.horizontal(s, secs)
	if s.Contacts.AnySide() {
		disp = Resolve(s.Contacts, disp)
	}
	s.Position = s.Position.Add(disp)
	s.Position[1] += s.Velocity.Y() * secs

	if s.Position.Y() < r.params.FallFloor {
		s.Position[1] = r.params.RespawnHeight
	}
}
