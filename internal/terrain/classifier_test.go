package terrain

import (
	"math"
	"testing"

	"voxelworld/internal/config"
	"voxelworld/internal/world"
)

const (
	testHeightSeed = 1
	testStoneSeed  = 2
	testCoalSeed   = 3
	testTreeSeed   = 4
	testLeafSeed   = 5
)

func testParams() Params {
	return Params{
		Baseline:   30,
		TreeHeight: 10,
		Height:     NoiseParams{Seed: testHeightSeed, Gap: 22, Amp: 8},
		Stone:      NoiseParams{Seed: testStoneSeed, Gap: 12, Amp: 8, Threshold: 3.5},
		Coal:       NoiseParams{Seed: testCoalSeed, Gap: 3, Amp: 8, Threshold: 3},
		Tree:       NoiseParams{Seed: testTreeSeed, Gap: 2, Amp: 1, Threshold: -0.7},
		Leaf:       NoiseParams{Seed: testLeafSeed, Gap: 2, Amp: 1, Threshold: 0},
	}
}

// singleTreeField grows one tree at column (0,0) on flat ground with a
// deterministic leaf pattern.
func singleTreeField() Field {
	return FieldFunc(func(x, z, seed float64) float64 {
		switch seed {
		case testTreeSeed:
			if x == 0 && z == 0 {
				return -0.9
			}
			return 0
		case testLeafSeed:
			return math.Sin(x*7.1 + z*3.3)
		default:
			return 0
		}
	})
}

func TestSurfaceTypeBranches(t *testing.T) {
	c := NewClassifier(Perlin{}, testParams())
	tests := []struct {
		name         string
		heightOffset int
		stoneVal     float64
		coalVal      float64
		want         world.BlockType
	}{
		{"coal inside stone", 0, 4, 3.5, world.Coal},
		{"stone without coal", 0, 4, 3, world.Stone},
		{"stone ignores depth", -6, 4, 0, world.Stone},
		{"sand below depth", -4, 3.5, 8, world.Sand},
		{"grass at depth boundary", -3, 0, 0, world.Grass},
		{"grass on high ground", 5, -8, 8, world.Grass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.SurfaceType(tt.heightOffset, tt.stoneVal, tt.coalVal); got != tt.want {
				t.Fatalf("SurfaceType = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestColumnFlatGroundWithoutTrees(t *testing.T) {
	c := NewClassifier(FieldFunc(func(x, z, seed float64) float64 { return 0 }), testParams())
	plan := c.Column(7, -3)
	if plan.SurfaceY() != 30 || plan.Surface.Type != world.Grass {
		t.Fatalf("unexpected surface %+v", plan.Surface)
	}
	if plan.HasTree() || len(plan.Leaves) != 0 {
		t.Fatalf("flat zero noise must not grow trees")
	}
}

func TestColumnNegativeOffsetFloors(t *testing.T) {
	field := FieldFunc(func(x, z, seed float64) float64 {
		if seed == testHeightSeed {
			return -0.55
		}
		return 0
	})
	plan := NewClassifier(field, testParams()).Column(0, 0)
	// floor(-0.55 * 8) = floor(-4.4) = -5
	if plan.HeightOffset != -5 || plan.SurfaceY() != 25 {
		t.Fatalf("offset=%d surface=%d, want -5/25", plan.HeightOffset, plan.SurfaceY())
	}
	if plan.Surface.Type != world.Sand {
		t.Fatalf("deep column should be sand, got %v", plan.Surface.Type)
	}
}

func TestTreeTrunkAndCanopy(t *testing.T) {
	c := NewClassifier(singleTreeField(), testParams())
	plan := c.Column(0, 0)
	if len(plan.Trunk) != 10 {
		t.Fatalf("trunk levels = %d, want 10", len(plan.Trunk))
	}
	for i, cell := range plan.Trunk {
		if cell != (world.Cell{X: 0, Y: 31 + i, Z: 0}) {
			t.Fatalf("trunk level %d at %v", i+1, cell)
		}
	}
	if len(plan.Leaves) == 0 {
		t.Fatalf("expected leaves around the canopy centre")
	}
	for _, leaf := range plan.Leaves {
		if leaf.X == 0 && leaf.Z == 0 && leaf.Y <= 40 {
			t.Fatalf("leaf %v placed on the trunk", leaf)
		}
		if leaf.Y < 37 || leaf.Y > 42 || leaf.X < -3 || leaf.X > 2 || leaf.Z < -3 || leaf.Z > 2 {
			t.Fatalf("leaf %v outside the canopy scan", leaf)
		}
	}
	if c.Column(1, 0).HasTree() {
		t.Fatalf("only column (0,0) should grow a tree")
	}
}

func TestCanopyFillsAboveTrunkTop(t *testing.T) {
	dense := FieldFunc(func(x, z, seed float64) float64 {
		switch seed {
		case testTreeSeed:
			if x == 0 && z == 0 {
				return -0.9
			}
		case testLeafSeed:
			return 1
		}
		return 0
	})
	plan := NewClassifier(dense, testParams()).Column(0, 0)
	// 6x6x6 scan minus the four trunk levels 37..40 inside it.
	if len(plan.Leaves) != 216-4 {
		t.Fatalf("leaves = %d, want 212", len(plan.Leaves))
	}
	above := 0
	for _, leaf := range plan.Leaves {
		if leaf.X == 0 && leaf.Z == 0 {
			if leaf.Y <= 40 {
				t.Fatalf("leaf %v overlaps the trunk", leaf)
			}
			above++
		}
	}
	if above != 2 {
		t.Fatalf("leaves above the trunk top = %d, want 2", above)
	}
}

func TestTreeSuppressedOnStoneAndSand(t *testing.T) {
	stoneField := FieldFunc(func(x, z, seed float64) float64 {
		switch seed {
		case testTreeSeed:
			return -0.9
		case testStoneSeed:
			return 1
		}
		return 0
	})
	if NewClassifier(stoneField, testParams()).Column(0, 0).HasTree() {
		t.Fatalf("stone columns must not grow trees")
	}

	sandField := FieldFunc(func(x, z, seed float64) float64 {
		switch seed {
		case testTreeSeed:
			return -0.9
		case testHeightSeed:
			return -1
		}
		return 0
	})
	if NewClassifier(sandField, testParams()).Column(0, 0).HasTree() {
		t.Fatalf("deep columns must not grow trees")
	}
}

func TestLookupMatchesColumnPlans(t *testing.T) {
	c := NewClassifier(singleTreeField(), testParams())

	expected := make(map[world.Cell]world.BlockType)
	var plans []ColumnPlan
	for x := -4; x <= 4; x++ {
		for z := -4; z <= 4; z++ {
			plan := c.Column(x, z)
			plans = append(plans, plan)
			plan.Ground(func(b world.Block) { expected[b.Cell] = b.Type })
		}
	}
	for _, plan := range plans {
		plan.Canopy(func(b world.Block) {
			if _, taken := expected[b.Cell]; !taken {
				expected[b.Cell] = b.Type
			}
		})
	}

	for x := -4; x <= 4; x++ {
		for z := -4; z <= 4; z++ {
			for y := 28; y <= 44; y++ {
				cell := world.Cell{X: x, Y: y, Z: z}
				got, ok := c.Lookup(cell)
				want, wantOK := expected[cell]
				if ok != wantOK || (ok && got != want) {
					t.Fatalf("Lookup(%v) = %v,%v want %v,%v", cell, got, ok, want, wantOK)
				}
			}
		}
	}
}

func TestParamsFromConfigDerivesSeeds(t *testing.T) {
	cfg := config.Default().Terrain
	cfg.Seed = 0.5
	p := ParamsFromConfig(cfg)
	if p.Stone.Seed != 0.2 || p.Coal.Seed != 0.25 || p.Height.Seed != 0.5 {
		t.Fatalf("unexpected seeds %+v", p.Seeds())
	}
	if p.Tree.Threshold != -0.7 || p.TreeHeight != 10 {
		t.Fatalf("unexpected tree params %+v", p.Tree)
	}

	swapped := p.WithSeeds(Seeds{Terrain: 1, Tree: 2, Stone: 3, Coal: 4, Leaf: 5})
	if swapped.Seeds() != (Seeds{Terrain: 1, Tree: 2, Stone: 3, Coal: 4, Leaf: 5}) {
		t.Fatalf("WithSeeds did not apply: %+v", swapped.Seeds())
	}
}
