package chunkgen

import (
	"encoding/json"
	"sort"

	"voxelworld/internal/terrain"
	"voxelworld/internal/world"
)

// Slot names a placement inside a per-type buffer.
type Slot struct {
	Type  world.BlockType `json:"type"`
	Index int             `json:"index"`
}

// SlotMap maps each generated or placed cell to its slot. Encoded as a list
// sorted by type then index.
type SlotMap map[world.Cell]Slot

// Clone returns a copy of m.
func (m SlotMap) Clone() SlotMap {
	out := make(SlotMap, len(m))
	for cell, slot := range m {
		out[cell] = slot
	}
	return out
}

type slotEntry struct {
	world.Cell
	Slot
}

func (m SlotMap) MarshalJSON() ([]byte, error) {
	entries := make([]slotEntry, 0, len(m))
	for cell, slot := range m {
		entries = append(entries, slotEntry{Cell: cell, Slot: slot})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Type != entries[j].Type {
			return entries[i].Type < entries[j].Type
		}
		return entries[i].Index < entries[j].Index
	})
	return json.Marshal(entries)
}

func (m *SlotMap) UnmarshalJSON(data []byte) error {
	var entries []slotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	out := make(SlotMap, len(entries))
	for _, e := range entries {
		out[e.Cell] = e.Slot
	}
	*m = out
	return nil
}

// Buffers holds one fixed-capacity placement array per block type.
type Buffers [world.BlockTypeCount][]world.Position

// Clone returns a deep copy.
func (b Buffers) Clone() Buffers {
	var out Buffers
	for t, buf := range b {
		out[t] = append([]world.Position(nil), buf...)
	}
	return out
}

// Live counts live placements per type.
func (b Buffers) Live() Counters {
	var out Counters
	for t, buf := range b {
		for _, p := range buf {
			if p.Live {
				out[t]++
			}
		}
	}
	return out
}

// Counters holds one value per block type, indexed by world.BlockType.
type Counters [world.BlockTypeCount]int

// Total sums the per-type values.
func (c Counters) Total() int {
	total := 0
	for _, v := range c {
		total += v
	}
	return total
}

// Request is an immutable generation snapshot.
type Request struct {
	RenderDistance  int                           `json:"renderDistance"`
	Origin          world.Column                  `json:"chunkOrigin"`
	Seeds           terrain.Seeds                 `json:"seeds"`
	CapacityFactors [world.BlockTypeCount]float64 `json:"capacityFactor"`
	Counters        Counters                      `json:"counters"`
	Ledger          []world.Block                 `json:"ledger"`
}

// Clone returns a copy that shares no memory with r.
func (r Request) Clone() Request {
	r.Ledger = append([]world.Block(nil), r.Ledger...)
	return r
}

// Response carries the complete updated buffers, counters and slot map.
type Response struct {
	Origin   world.Column      `json:"chunkOrigin"`
	Range    world.ColumnRange `json:"range"`
	Slots    SlotMap           `json:"slots"`
	Buffers  Buffers           `json:"buffers"`
	Counters Counters          `json:"counters"`
	Dropped  Counters          `json:"dropped"`
}
