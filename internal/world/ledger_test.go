package world

import "testing"

func TestLedgerRemoveFlipsPlacedEntry(t *testing.T) {
	l := NewLedger()
	cell := Cell{X: 1, Y: 31, Z: 2}

	l.Place(cell, Stone)
	got := l.Remove(cell, Stone)
	if got.Placed {
		t.Fatalf("expected flipped entry to be a removal marker")
	}
	if l.Len() != 1 {
		t.Fatalf("ledger length = %d, want 1 (flip, not append)", l.Len())
	}
	if !l.Removed(cell) {
		t.Fatalf("expected cell to resolve as removed")
	}
}

func TestLedgerRemoveGeneratedAppendsMarker(t *testing.T) {
	l := NewLedger()
	cell := Cell{X: -4, Y: 28, Z: 9}

	l.Remove(cell, Grass)
	if l.Len() != 1 {
		t.Fatalf("ledger length = %d, want 1", l.Len())
	}
	b, ok := l.Resolve(cell)
	if !ok || b.Placed || b.Type != Grass {
		t.Fatalf("unexpected resolution: %+v ok=%v", b, ok)
	}
}

func TestLedgerLatestEntryWins(t *testing.T) {
	l := NewLedger()
	cell := Cell{X: 0, Y: 30, Z: 0}

	l.Remove(cell, Grass)
	l.Place(cell, Wood)
	b, ok := l.Resolve(cell)
	if !ok || !b.Placed || b.Type != Wood {
		t.Fatalf("expected placed wood to win, got %+v", b)
	}

	l.Remove(cell, Wood)
	if !l.Removed(cell) {
		t.Fatalf("expected removal after flipping the wood entry")
	}
	if l.Len() != 2 {
		t.Fatalf("ledger length = %d, want 2", l.Len())
	}
}

func TestLedgerColumnAndRangeQueries(t *testing.T) {
	l := NewLedger()
	l.Place(Cell{X: 3, Y: 31, Z: 3}, Dirt)
	l.Place(Cell{X: 3, Y: 32, Z: 3}, Dirt)
	l.Place(Cell{X: 40, Y: 31, Z: 3}, Dirt)

	if got := l.Column(3, 3); len(got) != 2 || got[0].Y != 31 || got[1].Y != 32 {
		t.Fatalf("unexpected column entries: %+v", got)
	}
	r := RenderRange(Column{X: 0, Z: 0}, 0)
	if got := l.InRange(r); len(got) != 2 {
		t.Fatalf("range entries = %d, want 2", len(got))
	}
}

func TestLedgerSnapshotIsDetached(t *testing.T) {
	l := NewLedger()
	cell := Cell{X: 1, Y: 1, Z: 1}
	l.Place(cell, Sand)
	snap := l.Snapshot()

	l.Remove(cell, Sand)
	if !snap[0].Placed {
		t.Fatalf("snapshot must not observe later mutations")
	}

	rebuilt := LedgerFrom(snap)
	if b, ok := rebuilt.Resolve(cell); !ok || !b.Placed {
		t.Fatalf("rebuilt ledger lost the placed entry: %+v", b)
	}
}
