package player

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"voxelworld/internal/config"
	"voxelworld/internal/physics"
	"voxelworld/internal/world"
)

// Mode is the movement mode.
type Mode int

const (
	Walking Mode = iota
	Flying
)

func (m Mode) String() string {
	if m == Flying {
		return "flying"
	}
	return "walking"
}

// Params are the movement constants.
type Params struct {
	WalkSpeed     float64
	FlySpeed      float64
	Gravity       float64
	TerminalFall  float64
	JumpImpulse   float64
	JumpWindow    time.Duration
	Height        float64
	SideReach     float64
	FallFloor     float64
	RespawnHeight float64
	Reach         float64
}

func ParamsFromConfig(cfg config.PlayerConfig) Params {
	return Params{
		WalkSpeed:     cfg.WalkSpeed,
		FlySpeed:      cfg.FlySpeed,
		Gravity:       cfg.Gravity,
		TerminalFall:  cfg.TerminalFall,
		JumpImpulse:   cfg.JumpImpulse,
		JumpWindow:    cfg.JumpWindow.Duration(),
		Height:        cfg.Height,
		SideReach:     cfg.SideReach,
		FallFloor:     cfg.FallFloor,
		RespawnHeight: cfg.RespawnHeight,
		Reach:         cfg.Reach,
	}
}

// Speed returns the intent speed for a mode.
func (p Params) Speed(m Mode) float64 {
	if m == Flying {
		return p.FlySpeed
	}
	return p.WalkSpeed
}

// State is the player's continuous state. Position is the eye position.
// Velocity holds the forward intent in X, vertical velocity in Y and the
// strafe intent in Z; horizontal intent is turned into world motion by the
// facing angle on every tick.
type State struct {
	Position mgl64.Vec3       `json:"position"`
	Velocity mgl64.Vec3       `json:"velocity"`
	Yaw      float64          `json:"yaw"`
	Pitch    float64          `json:"pitch"`
	Mode     Mode             `json:"mode"`
	Contacts physics.Contacts `json:"contacts"`
	Jumping  bool             `json:"jumping"`
	Held     world.BlockType  `json:"held"`
}

// NewState places a walking player at spawn holding grass.
func NewState(spawn mgl64.Vec3) State {
	return State{Position: spawn, Mode: Walking, Held: world.Grass}
}

// Forward is the horizontal unit vector the player faces.
func Forward(yaw float64) mgl64.Vec3 {
	return mgl64.Vec3{math.Sin(yaw), 0, math.Cos(yaw)}
}

// RightOf is the horizontal unit vector to the player's right.
func RightOf(yaw float64) mgl64.Vec3 {
	return mgl64.Vec3{-math.Cos(yaw), 0, math.Sin(yaw)}
}

// LookDir is the unit view direction including pitch.
func LookDir(yaw, pitch float64) mgl64.Vec3 {
	cp := math.Cos(pitch)
	return mgl64.Vec3{math.Sin(yaw) * cp, math.Sin(pitch), math.Cos(yaw) * cp}
}

// Eye returns the cell holding the player's eye.
func (s State) Eye() world.Cell {
	return world.CellAt(s.Position.X(), s.Position.Y(), s.Position.Z())
}

// Occupies reports whether the player's body covers the cell: the eye cell
// and the cell below it.
func (s State) Occupies(c world.Cell) bool {
	eye := s.Eye()
	return c == eye || c == eye.Add(0, -1, 0)
}
