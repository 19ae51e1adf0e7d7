package world

import "fmt"

// ChunkSize is the edge length, in columns, of a square chunk.
const ChunkSize = 16

// ChunkCoord identifies a chunk in chunk space.
type ChunkCoord struct {
	X int `json:"x"`
	Z int `json:"z"`
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Z)
}

// Origin returns the minimum column of the chunk in block space.
func (c ChunkCoord) Origin() Column {
	return Column{X: c.X * ChunkSize, Z: c.Z * ChunkSize}
}

// Column is a fixed (x,z) pair across all y.
type Column struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// ChunkOf returns the chunk containing the column.
func ChunkOf(col Column) ChunkCoord {
	return ChunkCoord{
		X: floorDiv(col.X, ChunkSize),
		Z: floorDiv(col.Z, ChunkSize),
	}
}

// ColumnRange is a half-open rectangle of columns: Min inclusive, Max exclusive.
type ColumnRange struct {
	Min Column `json:"min"`
	Max Column `json:"max"`
}

// RenderRange returns the columns generated for a chunk origin: the chunk
// itself plus renderDistance chunks on every side.
func RenderRange(origin Column, renderDistance int) ColumnRange {
	if renderDistance < 0 {
		renderDistance = 0
	}
	pad := ChunkSize * renderDistance
	return ColumnRange{
		Min: Column{X: origin.X - pad, Z: origin.Z - pad},
		Max: Column{X: origin.X + ChunkSize + pad, Z: origin.Z + ChunkSize + pad},
	}
}

// Contains reports whether the column lies inside the range.
func (r ColumnRange) Contains(x, z int) bool {
	return x >= r.Min.X && x < r.Max.X && z >= r.Min.Z && z < r.Max.Z
}

// Width is the number of columns along x.
func (r ColumnRange) Width() int {
	return r.Max.X - r.Min.X
}

// Depth is the number of columns along z.
func (r ColumnRange) Depth() int {
	return r.Max.Z - r.Min.Z
}

// Columns is the total number of columns in the range.
func (r ColumnRange) Columns() int {
	w, d := r.Width(), r.Depth()
	if w <= 0 || d <= 0 {
		return 0
	}
	return w * d
}

// At returns the column at a row-major index (x varies fastest).
func (r ColumnRange) At(idx int) Column {
	w := r.Width()
	return Column{X: r.Min.X + idx%w, Z: r.Min.Z + idx/w}
}

func floorDiv(value, size int) int {
	if size <= 0 {
		return 0
	}
	if value >= 0 {
		return value / size
	}
	return -((-value - 1) / size) - 1
}
