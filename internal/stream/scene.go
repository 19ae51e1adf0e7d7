package stream

import (
	"voxelworld/internal/chunkgen"
	"voxelworld/internal/world"
)

// Scene is the render-side copy of the generated buffers. The session
// goroutine owns it; edits land here immediately and generation responses
// replace it wholesale.
type Scene struct {
	origin   world.Column
	bounds   world.ColumnRange
	loaded   bool
	slots    chunkgen.SlotMap
	buffers  chunkgen.Buffers
	counters chunkgen.Counters
	dropped  chunkgen.Counters
}

func NewScene() *Scene {
	return &Scene{slots: make(chunkgen.SlotMap)}
}

// Loaded reports whether a generation response has been applied.
func (s *Scene) Loaded() bool {
	return s.loaded
}

// Apply replaces the scene with a generation response.
func (s *Scene) Apply(resp *chunkgen.Response) {
	if resp == nil {
		return
	}
	s.origin = resp.Origin
	s.bounds = resp.Range
	s.slots = resp.Slots
	if s.slots == nil {
		s.slots = make(chunkgen.SlotMap)
	}
	s.buffers = resp.Buffers
	s.counters = resp.Counters
	s.dropped = resp.Dropped
	s.loaded = true
}

// Tombstone zeroes the placement at cell. The slot stays assigned.
func (s *Scene) Tombstone(cell world.Cell) bool {
	slot, ok := s.slots[cell]
	if !ok {
		return false
	}
	buf := s.buffers[slot.Type]
	if slot.Index >= len(buf) || !buf[slot.Index].Live {
		return false
	}
	buf[slot.Index] = world.Position{}
	return true
}

// Append writes a placed block at the next free slot of its type,
// superseding any placement already at the cell. It reports false when the
// scene is not loaded or the buffer is full.
func (s *Scene) Append(b world.Block) bool {
	if !s.loaded || !b.Type.Valid() {
		return false
	}
	idx := s.counters[b.Type]
	if idx >= len(s.buffers[b.Type]) {
		s.dropped[b.Type]++
		return false
	}
	s.Tombstone(b.Cell)
	s.buffers[b.Type][idx] = world.PositionOf(b.Cell)
	s.slots[b.Cell] = chunkgen.Slot{Type: b.Type, Index: idx}
	s.counters[b.Type]++
	return true
}

// Replay applies ledger entries recorded after a generation snapshot.
func (s *Scene) Replay(entries []world.Block) {
	for _, e := range entries {
		if e.Placed {
			s.Append(e)
		} else {
			s.Tombstone(e.Cell)
		}
	}
}

// Slot returns the slot assigned to a cell.
func (s *Scene) Slot(cell world.Cell) (chunkgen.Slot, bool) {
	slot, ok := s.slots[cell]
	return slot, ok
}

// Positions returns the buffer of one block type for drawing.
func (s *Scene) Positions(t world.BlockType) []world.Position {
	if !t.Valid() {
		return nil
	}
	return s.buffers[t]
}

// Counters returns the next free slot per type.
func (s *Scene) Counters() chunkgen.Counters {
	return s.counters
}

// Frame is the wire form of a scene.
type Frame struct {
	Origin   world.Column      `json:"chunkOrigin"`
	Range    world.ColumnRange `json:"range"`
	Counters chunkgen.Counters `json:"counters"`
	Dropped  chunkgen.Counters `json:"dropped"`
	Buffers  chunkgen.Buffers  `json:"buffers"`
}

// Frame returns a detached copy of the scene, trimming each buffer to its
// counter.
func (s *Scene) Frame() Frame {
	f := Frame{
		Origin:   s.origin,
		Range:    s.bounds,
		Counters: s.counters,
		Dropped:  s.dropped,
	}
	for t, buf := range s.buffers {
		n := s.counters[t]
		if n > len(buf) {
			n = len(buf)
		}
		f.Buffers[t] = append([]world.Position(nil), buf[:n]...)
	}
	return f
}
