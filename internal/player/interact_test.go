package player

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"voxelworld/internal/physics"
	"voxelworld/internal/world"
)

type recordingScene struct {
	tombstoned []world.Cell
	appended   []world.Block
}

func (s *recordingScene) Tombstone(cell world.Cell) bool {
	s.tombstoned = append(s.tombstoned, cell)
	return true
}

func (s *recordingScene) Append(b world.Block) bool {
	s.appended = append(s.appended, b)
	return true
}

func newInteractController() (*Controller, *world.Ledger, *recordingScene) {
	ledger := world.NewLedger()
	view := physics.View{Classifier: flatClassifier(), Edits: ledger}
	r, _ := newTestResolver(&stubSensor{ground: true}, ledger)
	scene := &recordingScene{}
	c := NewController(NewState(mgl64.Vec3{0, 31.9, 0}), r, ledger, view, scene)
	return c, ledger, scene
}

func TestPrimaryRemovesTargetedBlock(t *testing.T) {
	c, ledger, scene := newInteractController()
	c.Look(0, -math.Pi/2)

	entry, err := c.Primary()
	if err != nil {
		t.Fatalf("primary: %v", err)
	}
	surface := world.Cell{X: 0, Y: 30, Z: 0}
	if entry.Cell != surface || entry.Placed || entry.Type != world.Grass {
		t.Fatalf("ledger entry = %+v", entry)
	}
	if !ledger.Removed(surface) {
		t.Fatalf("ledger does not record the removal")
	}
	if len(scene.tombstoned) != 1 || scene.tombstoned[0] != surface {
		t.Fatalf("scene tombstones = %v", scene.tombstoned)
	}

	// The ray now passes through the hole to nothing within reach.
	if _, err := c.Primary(); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("second primary err = %v, want ErrNoTarget", err)
	}
}

func TestPrimaryFlipsPlacedBlock(t *testing.T) {
	c, ledger, _ := newInteractController()
	wall := world.Cell{X: 2, Y: 32, Z: 0}
	ledger.Place(wall, world.Coal)
	c.Look(math.Pi/2, 0)

	entry, err := c.Primary()
	if err != nil {
		t.Fatalf("primary: %v", err)
	}
	if entry.Cell != wall || entry.Placed {
		t.Fatalf("entry = %+v", entry)
	}
	if ledger.Len() != 1 {
		t.Fatalf("ledger length = %d, want the place entry flipped in place", ledger.Len())
	}
}

func TestSecondaryPlacesAgainstFace(t *testing.T) {
	c, ledger, scene := newInteractController()
	ledger.Place(world.Cell{X: 2, Y: 32, Z: 0}, world.Stone)
	c.Press("6")
	c.Look(math.Pi/2, 0)

	entry, err := c.Secondary()
	if err != nil {
		t.Fatalf("secondary: %v", err)
	}
	want := world.Block{Cell: world.Cell{X: 1, Y: 32, Z: 0}, Type: world.Coal, Placed: true}
	if entry != want {
		t.Fatalf("placed %+v, want %+v", entry, want)
	}
	if len(scene.appended) != 1 || scene.appended[0] != want {
		t.Fatalf("scene appends = %v", scene.appended)
	}
}

func TestSecondaryRejectsPlayerCells(t *testing.T) {
	c, ledger, scene := newInteractController()
	c.Look(0, -math.Pi/2)

	if _, err := c.Secondary(); !errors.Is(err, ErrOccupied) {
		t.Fatalf("err = %v, want ErrOccupied", err)
	}
	if ledger.Len() != 0 || len(scene.appended) != 0 {
		t.Fatalf("rejected placement was recorded")
	}
}

func TestSecondaryWithoutTarget(t *testing.T) {
	c, _, _ := newInteractController()
	c.Look(0, math.Pi/2)
	if _, err := c.Secondary(); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("err = %v, want ErrNoTarget", err)
	}
}
