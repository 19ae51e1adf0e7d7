package server

import (
	"testing"

	"voxelworld/internal/world"
)

func TestEditAccumulatorLatestEntryWins(t *testing.T) {
	acc := newEditAccumulator()
	a := world.Cell{X: 1, Y: 30, Z: 1}
	b := world.Cell{X: 2, Y: 31, Z: 1}

	acc.add(world.Block{Cell: a, Type: world.Grass})
	acc.add(world.Block{Cell: b, Type: world.Wood, Placed: true})
	acc.add(world.Block{Cell: a, Type: world.Stone, Placed: true})
	if acc.len() != 2 {
		t.Fatalf("pending = %d, want 2", acc.len())
	}

	var seq uint64 = 4
	batch := acc.flush(&seq)
	if batch == nil || batch.Seq != 4 || seq != 5 {
		t.Fatalf("batch seq = %+v, next %d", batch, seq)
	}
	if len(batch.Edits) != 2 {
		t.Fatalf("edits = %+v", batch.Edits)
	}
	first, second := batch.Edits[0], batch.Edits[1]
	if first.X != 2 || first.Type != "wood" || !first.Placed {
		t.Fatalf("first edit = %+v", first)
	}
	if second.X != 1 || second.Type != "stone" || !second.Placed {
		t.Fatalf("second edit = %+v, want the later placement", second)
	}
}

func TestEditAccumulatorFlushResets(t *testing.T) {
	acc := newEditAccumulator()
	var seq uint64
	if acc.flush(&seq) != nil || seq != 0 {
		t.Fatalf("empty flush produced a batch")
	}
	acc.add(world.Block{Cell: world.Cell{}, Type: world.Leaf})
	acc.flush(&seq)
	if acc.len() != 0 || acc.flush(&seq) != nil {
		t.Fatalf("flush did not reset")
	}
	if seq != 1 {
		t.Fatalf("seq = %d, want 1", seq)
	}
}
