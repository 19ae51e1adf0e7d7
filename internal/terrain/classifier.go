package terrain

import (
	"math"

	"voxelworld/internal/config"
	"voxelworld/internal/world"
)

const (
	// sandDepth is the height offset below which a non-stone surface is sand.
	sandDepth = -3
	// canopyLift places the canopy centre above the surface.
	canopyLift = 10
	// leafMin and leafMax bound the canopy scan offsets on every axis.
	leafMin = -3
	leafMax = 2
)

// Seeds carries the per-feature seeds of a world.
type Seeds struct {
	Terrain float64 `json:"terrain"`
	Tree    float64 `json:"tree"`
	Stone   float64 `json:"stone"`
	Coal    float64 `json:"coal"`
	Leaf    float64 `json:"leaf"`
}

// Params holds everything the classifier needs besides the noise field.
type Params struct {
	Baseline   int
	TreeHeight int
	Height     NoiseParams
	Stone      NoiseParams
	Coal       NoiseParams
	Tree       NoiseParams
	Leaf       NoiseParams
}

// ParamsFromConfig derives feature seeds from the world seed.
func ParamsFromConfig(cfg config.TerrainConfig) Params {
	feature := func(n config.NoiseConfig) NoiseParams {
		return NoiseParams{
			Seed:      cfg.Seed * n.SeedScale,
			Gap:       n.Gap,
			Amp:       n.Amplitude,
			Threshold: n.Threshold,
		}
	}
	return Params{
		Baseline:   cfg.Baseline,
		TreeHeight: cfg.TreeHeight,
		Height:     feature(cfg.Height),
		Stone:      feature(cfg.Stone),
		Coal:       feature(cfg.Coal),
		Tree:       feature(cfg.Tree),
		Leaf:       feature(cfg.Leaf),
	}
}

// Seeds returns the feature seeds in use.
func (p Params) Seeds() Seeds {
	return Seeds{
		Terrain: p.Height.Seed,
		Tree:    p.Tree.Seed,
		Stone:   p.Stone.Seed,
		Coal:    p.Coal.Seed,
		Leaf:    p.Leaf.Seed,
	}
}

// WithSeeds returns a copy of p using the given feature seeds.
func (p Params) WithSeeds(s Seeds) Params {
	p.Height.Seed = s.Terrain
	p.Tree.Seed = s.Tree
	p.Stone.Seed = s.Stone
	p.Coal.Seed = s.Coal
	p.Leaf.Seed = s.Leaf
	return p
}

// ColumnPlan is the generated content of one column.
type ColumnPlan struct {
	X, Z         int
	HeightOffset int
	StoneValue   float64
	CoalValue    float64
	Surface      world.Block
	// Trunk holds levels 1..TreeHeight above the surface; empty without a tree.
	Trunk  []world.Cell
	Leaves []world.Cell
}

// SurfaceY is the y of the column's surface block.
func (p ColumnPlan) SurfaceY() int {
	return p.Surface.Y
}

func (p ColumnPlan) HasTree() bool {
	return len(p.Trunk) > 0
}

// Ground calls fn for the surface block and then each trunk level.
func (p ColumnPlan) Ground(fn func(world.Block)) {
	fn(p.Surface)
	for _, c := range p.Trunk {
		fn(world.Block{Cell: c, Type: world.Tree})
	}
}

// Canopy calls fn for each leaf block.
func (p ColumnPlan) Canopy(fn func(world.Block)) {
	for _, c := range p.Leaves {
		fn(world.Block{Cell: c, Type: world.Leaf})
	}
}

// Classifier decides block types and tree placement per column.
type Classifier struct {
	params Params
	height Sampler
	stone  Sampler
	coal   Sampler
	tree   Sampler
	leaf   Sampler
}

func NewClassifier(field Field, params Params) *Classifier {
	return &Classifier{
		params: params,
		height: NewSampler(field, params.Height),
		stone:  NewSampler(field, params.Stone),
		coal:   NewSampler(field, params.Coal),
		tree:   NewSampler(field, NoiseParams{Seed: params.Tree.Seed * params.Tree.Amp, Gap: params.Tree.Gap, Amp: 1, Threshold: params.Tree.Threshold}),
		leaf:   NewSampler(field, params.Leaf),
	}
}

func (c *Classifier) Params() Params {
	return c.params
}

// SurfaceType applies the ordered, mutually exclusive surface rules.
func (c *Classifier) SurfaceType(heightOffset int, stoneVal, coalVal float64) world.BlockType {
	switch {
	case stoneVal > c.params.Stone.Threshold:
		if coalVal > c.params.Coal.Threshold {
			return world.Coal
		}
		return world.Stone
	case heightOffset < sandDepth:
		return world.Sand
	default:
		return world.Grass
	}
}

// Column classifies a column including its canopy.
func (c *Classifier) Column(x, z int) ColumnPlan {
	plan := c.Ground(x, z)
	if plan.HasTree() {
		plan.Leaves = c.canopy(plan)
	}
	return plan
}

// Ground classifies a column's surface and trunk without scanning the canopy.
func (c *Classifier) Ground(x, z int) ColumnPlan {
	fx, fz := float64(x), float64(z)
	offset := int(math.Floor(c.height.Value(fx, fz)))
	stoneVal := c.stone.Value(fx, fz)
	coalVal := c.coal.Value(fx, fz)
	surfaceY := c.params.Baseline + offset

	plan := ColumnPlan{
		X:            x,
		Z:            z,
		HeightOffset: offset,
		StoneValue:   stoneVal,
		CoalValue:    coalVal,
		Surface: world.Block{
			Cell: world.Cell{X: x, Y: surfaceY, Z: z},
			Type: c.SurfaceType(offset, stoneVal, coalVal),
		},
	}

	if c.tree.Raw(fx, fz) < c.params.Tree.Threshold && offset >= sandDepth && stoneVal < c.params.Stone.Threshold {
		plan.Trunk = make([]world.Cell, c.params.TreeHeight)
		for i := 1; i <= c.params.TreeHeight; i++ {
			plan.Trunk[i-1] = world.Cell{X: x, Y: surfaceY + i, Z: z}
		}
	}
	return plan
}

// canopy scans the cube around the canopy centre. Cells taken by the trunk
// are skipped; the trunk column above the trunk top can hold leaves.
func (c *Classifier) canopy(plan ColumnPlan) []world.Cell {
	x, z := plan.X, plan.Z
	centre := plan.SurfaceY() + canopyLift
	trunkTop := plan.SurfaceY() + len(plan.Trunk)
	var leaves []world.Cell
	for i := leafMin; i <= leafMax; i++ {
		for j := leafMin; j <= leafMax; j++ {
			for k := leafMin; k <= leafMax; k++ {
				if i == 0 && k == 0 && centre+j <= trunkTop {
					continue
				}
				if c.leafAt(x, z, centre, i, j, k) {
					leaves = append(leaves, world.Cell{X: x + i, Y: centre + j, Z: z + k})
				}
			}
		}
	}
	return leaves
}

func (c *Classifier) leafAt(x, z, centre, i, j, k int) bool {
	return c.leaf.Value(float64(x+i+k), float64(centre+j)) > c.params.Leaf.Threshold
}

// Lookup returns the generated block type at a cell, ignoring player edits.
// Surface and trunk take precedence over leaves, matching generation order.
func (c *Classifier) Lookup(cell world.Cell) (world.BlockType, bool) {
	plan := c.Ground(cell.X, cell.Z)
	if cell.Y == plan.SurfaceY() {
		return plan.Surface.Type, true
	}
	if plan.HasTree() && cell.Y > plan.SurfaceY() && cell.Y <= plan.SurfaceY()+len(plan.Trunk) {
		return world.Tree, true
	}
	for i := leafMin; i <= leafMax; i++ {
		for k := leafMin; k <= leafMax; k++ {
			tx, tz := cell.X-i, cell.Z-k
			host := c.Ground(tx, tz)
			if !host.HasTree() {
				continue
			}
			centre := host.SurfaceY() + canopyLift
			j := cell.Y - centre
			if j < leafMin || j > leafMax {
				continue
			}
			if c.leafAt(tx, tz, centre, i, j, k) {
				return world.Leaf, true
			}
		}
	}
	return 0, false
}
