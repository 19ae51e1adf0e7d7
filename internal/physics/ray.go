package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelworld/internal/world"
)

// Box is an axis-aligned bounding box.
type Box struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// CellBox returns the unit cube of a cell, centred on its integer coordinates.
func CellBox(c world.Cell) Box {
	centre := mgl64.Vec3{float64(c.X), float64(c.Y), float64(c.Z)}
	half := mgl64.Vec3{0.5, 0.5, 0.5}
	return Box{Min: centre.Sub(half), Max: centre.Add(half)}
}

// Ray is a half-line. Dir does not need to be normalised; distances are in
// multiples of its length.
type Ray struct {
	Origin mgl64.Vec3
	Dir    mgl64.Vec3
}

// Intersect runs the slab test and returns the entry distance when the box is
// hit within [0, far]. A ray starting inside the box hits at distance 0. A
// non-positive far never hits.
func (r Ray) Intersect(b Box, far float64) (float64, bool) {
	if far <= 0 {
		return 0, false
	}
	tmin, tmax := math.Inf(-1), math.Inf(1)
	for axis := 0; axis < 3; axis++ {
		o, d := r.Origin[axis], r.Dir[axis]
		lo, hi := b.Min[axis], b.Max[axis]
		if d == 0 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 || tmin > far {
		return 0, false
	}
	return math.Max(tmin, 0), true
}

// HitAny reports whether the ray meets any of the cells within far.
func (r Ray) HitAny(cells []world.Cell, far float64) bool {
	for _, c := range cells {
		if _, ok := r.Intersect(CellBox(c), far); ok {
			return true
		}
	}
	return false
}

// VoxelHit is the first solid cell met by a voxel traversal.
type VoxelHit struct {
	Cell world.Cell
	// Normal is the unit offset from Cell towards the face the ray entered
	// through. It is zero when the ray starts inside the cell.
	Normal   world.Cell
	Distance float64
}

// Adjacent returns the empty cell in front of the entered face.
func (h VoxelHit) Adjacent() world.Cell {
	return h.Cell.Add(h.Normal.X, h.Normal.Y, h.Normal.Z)
}

// Traverse walks the cells pierced by a ray in order (Amanatides-Woo) until
// solid reports true or maxDist is exceeded. dir must be non-zero.
func Traverse(origin, dir mgl64.Vec3, maxDist float64, solid func(world.Cell) bool) (VoxelHit, bool) {
	if dir.Len() == 0 || maxDist <= 0 {
		return VoxelHit{}, false
	}
	dir = dir.Normalize()

	// Cells are centred on integers; shift so boundaries fall on integers.
	shifted := origin.Add(mgl64.Vec3{0.5, 0.5, 0.5})
	var (
		voxel  [3]int
		step   [3]int
		tMax   [3]float64
		tDelta [3]float64
	)
	for axis := 0; axis < 3; axis++ {
		voxel[axis] = int(math.Floor(shifted[axis]))
		switch {
		case dir[axis] > 0:
			step[axis] = 1
			tMax[axis] = (float64(voxel[axis]+1) - shifted[axis]) / dir[axis]
			tDelta[axis] = 1 / dir[axis]
		case dir[axis] < 0:
			step[axis] = -1
			tMax[axis] = (float64(voxel[axis]) - shifted[axis]) / dir[axis]
			tDelta[axis] = -1 / dir[axis]
		default:
			tMax[axis] = math.Inf(1)
			tDelta[axis] = math.Inf(1)
		}
	}

	var normal [3]int
	t := 0.0
	for t <= maxDist {
		cell := world.Cell{X: voxel[0], Y: voxel[1], Z: voxel[2]}
		if solid(cell) {
			return VoxelHit{
				Cell:     cell,
				Normal:   world.Cell{X: normal[0], Y: normal[1], Z: normal[2]},
				Distance: t,
			}, true
		}

		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		t = tMax[axis]
		voxel[axis] += step[axis]
		tMax[axis] += tDelta[axis]
		normal = [3]int{}
		normal[axis] = -step[axis]
	}
	return VoxelHit{}, false
}
