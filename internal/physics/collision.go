package physics

import (
	"log"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"voxelworld/internal/terrain"
	"voxelworld/internal/world"
)

// MaxBatch bounds the synthetic geometry built for one checked column.
const MaxBatch = 100

// Side identifies one of the five checked directions.
type Side int

const (
	Down Side = iota
	Front
	Back
	Left
	Right
)

// HorizontalSides lists the sides checked with paired rays.
var HorizontalSides = [4]Side{Front, Back, Left, Right}

var sideNames = [...]string{"down", "front", "back", "left", "right"}

func (s Side) String() string {
	if int(s) < len(sideNames) {
		return sideNames[s]
	}
	return "unknown"
}

// Normal is the outward world-axis normal of the side.
func (s Side) Normal() mgl64.Vec3 {
	switch s {
	case Front:
		return mgl64.Vec3{1, 0, 0}
	case Back:
		return mgl64.Vec3{-1, 0, 0}
	case Left:
		return mgl64.Vec3{0, 0, -1}
	case Right:
		return mgl64.Vec3{0, 0, 1}
	default:
		return mgl64.Vec3{0, -1, 0}
	}
}

// Column returns the column checked for the side from the player's column.
func (s Side) Column(own world.Column) world.Column {
	switch s {
	case Front:
		return world.Column{X: own.X + 1, Z: own.Z}
	case Back:
		return world.Column{X: own.X - 1, Z: own.Z}
	case Left:
		return world.Column{X: own.X, Z: own.Z - 1}
	case Right:
		return world.Column{X: own.X, Z: own.Z + 1}
	default:
		return own
	}
}

// Contacts holds the five collision flags of one contact check.
type Contacts struct {
	Down  bool `json:"down"`
	Front bool `json:"front"`
	Back  bool `json:"back"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

// Blocked reports the flag for a side.
func (c Contacts) Blocked(s Side) bool {
	switch s {
	case Down:
		return c.Down
	case Front:
		return c.Front
	case Back:
		return c.Back
	case Left:
		return c.Left
	case Right:
		return c.Right
	}
	return false
}

func (c *Contacts) set(s Side, v bool) {
	switch s {
	case Down:
		c.Down = v
	case Front:
		c.Front = v
	case Back:
		c.Back = v
	case Left:
		c.Left = v
	case Right:
		c.Right = v
	}
}

// AnySide reports whether any horizontal side is blocked.
func (c Contacts) AnySide() bool {
	return c.Front || c.Back || c.Left || c.Right
}

// Edits is the read side of the mutation ledger used by contact checks.
type Edits interface {
	Column(x, z int) []world.Block
	Resolve(cell world.Cell) (world.Block, bool)
}

// Simulator recomputes the terrain around the player on every contact check. It keeps
// no geometry between calls.
type Simulator struct {
	classifier *terrain.Classifier
	sideReach  float64
	logger     *log.Logger

	mu            sync.Mutex
	truncated     bool
	lastTruncated world.Column
}

func NewSimulator(classifier *terrain.Classifier, sideReach float64, logger *log.Logger) *Simulator {
	if logger == nil {
		logger = log.Default()
	}
	return &Simulator{classifier: classifier, sideReach: sideReach, logger: logger}
}

// Sense reports contact on five sides of an eye position. downFar is the
// downward ray range; zero disables ground detection.
func (s *Simulator) Sense(pos mgl64.Vec3, downFar float64, edits Edits) Contacts {
	var contacts Contacts
	cell := world.CellAt(pos.X(), pos.Y(), pos.Z())
	own := world.Column{X: cell.X, Z: cell.Z}

	down := s.Batch(own, edits)
	contacts.Down = Ray{Origin: pos, Dir: Down.Normal()}.HitAny(down, downFar)

	lower := pos.Sub(mgl64.Vec3{0, 1, 0})
	for _, side := range HorizontalSides {
		batch := s.Batch(side.Column(own), edits)
		if len(batch) == 0 {
			continue
		}
		n := side.Normal()
		hit := Ray{Origin: pos, Dir: n}.HitAny(batch, s.sideReach) ||
			Ray{Origin: lower, Dir: n}.HitAny(batch, s.sideReach)
		contacts.set(side, hit)
	}
	return contacts
}

// Batch builds the collidable cells of one column: the generated surface and
// trunk, the column's ledger placements, then the canopy of the column's
// tree. Removals in the ledger suppress generated cells wherever they lie.
// At most MaxBatch cells are returned, so placements always make the cut.
func (s *Simulator) Batch(col world.Column, edits Edits) []world.Cell {
	plan := s.classifier.Column(col.X, col.Z)

	size := 1 + len(plan.Trunk) + len(plan.Leaves)
	cells := make([]world.Cell, 0, size)
	present := make(map[world.Cell]int, size)
	add := func(c world.Cell) {
		if _, ok := present[c]; ok {
			return
		}
		present[c] = len(cells)
		cells = append(cells, c)
	}
	drop := func(c world.Cell) {
		idx, ok := present[c]
		if !ok {
			return
		}
		copy(cells[idx:], cells[idx+1:])
		cells = cells[:len(cells)-1]
		delete(present, c)
		for i := idx; i < len(cells); i++ {
			present[cells[i]] = i
		}
	}
	generated := func(b world.Block) {
		if edits != nil {
			if entry, ok := edits.Resolve(b.Cell); ok && !entry.Placed {
				return
			}
		}
		add(b.Cell)
	}

	plan.Ground(generated)
	if edits != nil {
		for _, entry := range edits.Column(col.X, col.Z) {
			if entry.Placed {
				add(entry.Cell)
			} else {
				drop(entry.Cell)
			}
		}
	}
	plan.Canopy(generated)

	if len(cells) > MaxBatch {
		s.logTruncated(col, len(cells))
		cells = cells[:MaxBatch]
	}
	return cells
}

// logTruncated reports an oversized batch once per run of contact checks against the
// same column.
func (s *Simulator) logTruncated(col world.Column, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.truncated && s.lastTruncated == col {
		return
	}
	s.truncated = true
	s.lastTruncated = col
	s.logger.Printf("collision batch for column (%d,%d) truncated: %d cells, limit %d", col.X, col.Z, n, MaxBatch)
}

// View is the effective world: generated terrain with ledger overrides.
type View struct {
	Classifier *terrain.Classifier
	Edits      Edits
}

// BlockAt returns the block type at a cell, if any.
func (v View) BlockAt(cell world.Cell) (world.BlockType, bool) {
	if v.Edits != nil {
		if entry, ok := v.Edits.Resolve(cell); ok {
			if entry.Placed {
				return entry.Type, true
			}
			return 0, false
		}
	}
	return v.Classifier.Lookup(cell)
}

// Solid reports whether the cell holds any block.
func (v View) Solid(cell world.Cell) bool {
	_, ok := v.BlockAt(cell)
	return ok
}
