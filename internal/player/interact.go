package player

import (
	"errors"
	"time"

	"voxelworld/internal/physics"
	"voxelworld/internal/world"
)

var (
	// ErrNoTarget is returned when no block lies within reach.
	ErrNoTarget = errors.New("player: no block within reach")
	// ErrOccupied is returned when a placement would overlap the player or
	// an existing block.
	ErrOccupied = errors.New("player: target cell is occupied")
)

// Scene is the render-side copy of the generated buffers.
type Scene interface {
	// Tombstone clears the placement at cell, reporting whether one existed.
	Tombstone(cell world.Cell) bool
	// Append adds a placement, reporting whether it fit.
	Append(b world.Block) bool
}

// Controller binds a player's state to the resolver, the ledger and the
// render scene. It is owned by a single goroutine.
type Controller struct {
	State    State
	resolver *Resolver
	ledger   *world.Ledger
	view     physics.View
	scene    Scene
	held     map[Key]bool
}

func NewController(state State, resolver *Resolver, ledger *world.Ledger, view physics.View, scene Scene) *Controller {
	return &Controller{
		State:    state,
		resolver: resolver,
		ledger:   ledger,
		view:     view,
		scene:    scene,
		held:     make(map[Key]bool),
	}
}

// Tick advances movement by dt.
func (c *Controller) Tick(dt time.Duration) {
	c.resolver.Tick(&c.State, dt)
}

// Target casts the view ray and returns the first block within reach.
func (c *Controller) Target() (physics.VoxelHit, bool) {
	dir := LookDir(c.State.Yaw, c.State.Pitch)
	return physics.Traverse(c.State.Position, dir, c.resolver.Params().Reach, c.view.Solid)
}

// Primary removes the targeted block. The returned entry is the ledger record.
func (c *Controller) Primary() (world.Block, error) {
	hit, ok := c.Target()
	if !ok {
		return world.Block{}, ErrNoTarget
	}
	bt, _ := c.view.BlockAt(hit.Cell)
	entry := c.ledger.Remove(hit.Cell, bt)
	if c.scene != nil {
		c.scene.Tombstone(hit.Cell)
	}
	return entry, nil
}

// Secondary places the held block against the targeted face.
func (c *Controller) Secondary() (world.Block, error) {
	hit, ok := c.Target()
	if !ok {
		return world.Block{}, ErrNoTarget
	}
	if hit.Normal == (world.Cell{}) {
		return world.Block{}, ErrOccupied
	}
	cell := hit.Adjacent()
	if c.State.Occupies(cell) || c.view.Solid(cell) {
		return world.Block{}, ErrOccupied
	}
	entry := c.ledger.Place(cell, c.State.Held)
	if c.scene != nil {
		c.scene.Append(entry)
	}
	return entry, nil
}
