package world

import (
	"fmt"
	"math"
)

// BlockType enumerates the block kinds the terrain and the player can produce.
// The numeric order doubles as the per-type buffer index.
type BlockType uint8

const (
	Grass BlockType = iota
	Sand
	Tree
	Leaf
	Dirt
	Stone
	Coal
	Wood
)

// BlockTypeCount is the number of block types and per-type buffers.
const BlockTypeCount = 8

var blockTypeNames = [BlockTypeCount]string{"grass", "sand", "tree", "leaf", "dirt", "stone", "coal", "wood"}

func (t BlockType) String() string {
	if int(t) < len(blockTypeNames) {
		return blockTypeNames[t]
	}
	return fmt.Sprintf("blocktype(%d)", uint8(t))
}

// Valid reports whether t names a known block type.
func (t BlockType) Valid() bool {
	return int(t) < BlockTypeCount
}

// ParseBlockType resolves a block type by name.
func ParseBlockType(name string) (BlockType, bool) {
	for i, n := range blockTypeNames {
		if n == name {
			return BlockType(i), true
		}
	}
	return 0, false
}

// Cell identifies a unit cube in world space. Cubes are centred on integer
// coordinates, so the cube for Cell{X,Y,Z} spans [X-0.5, X+0.5] on each axis.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Add offsets c by (dx, dy, dz).
func (c Cell) Add(dx, dy, dz int) Cell {
	return Cell{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

// CellAt returns the cell whose cube contains the point.
func CellAt(x, y, z float64) Cell {
	return Cell{X: roundHalfUp(x), Y: roundHalfUp(y), Z: roundHalfUp(z)}
}

// roundHalfUp rounds .5 towards +Inf so neighbouring cubes never both claim a
// shared face.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// Block is a typed cell. For ledger entries Placed distinguishes a
// player-added block (true) from a removal marker (false).
type Block struct {
	Cell
	Type   BlockType `json:"type"`
	Placed bool      `json:"placed"`
}

// Position is a placement record inside a per-type buffer. Only the position
// is encoded; Live is false for empty and tombstoned slots.
type Position struct {
	X    float32 `json:"x"`
	Y    float32 `json:"y"`
	Z    float32 `json:"z"`
	Live bool    `json:"live"`
}

// PositionOf returns the live placement record for a cell.
func PositionOf(c Cell) Position {
	return Position{X: float32(c.X), Y: float32(c.Y), Z: float32(c.Z), Live: true}
}
