package stream

import (
	"context"
	"log"

	"voxelworld/internal/chunkgen"
	"voxelworld/internal/world"
)

// Submitter runs generation requests, usually a chunkgen.Worker.
type Submitter interface {
	Submit(ctx context.Context, req chunkgen.Request) <-chan chunkgen.Result
}

// Snapshotter provides the point-in-time ledger copy sent with a request.
type Snapshotter interface {
	Snapshot() []world.Block
}

type pending struct {
	mark int
}

// Streamer decides when the area around the player must be regenerated and
// applies the responses to the scene. Each request carries the counters of
// the last applied response, so generation appends after the slots the scene
// already shows and never rewinds. At most one request per chunk is outstanding;
// a response for a chunk the player has already left is dropped.
//
// Streamer is owned by the session goroutine. Results arrive on Results().
type Streamer struct {
	worker  Submitter
	scene   *Scene
	base    chunkgen.Request
	logger  *log.Logger
	results chan chunkgen.Result

	current     world.ChunkCoord
	hasCurrent  bool
	retry       bool
	counters    chunkgen.Counters
	outstanding map[world.ChunkCoord]pending

	// journal holds edits made while requests are in flight. journalBase is
	// the absolute index of journal[0].
	journal     []world.Block
	journalBase int
}

// NewStreamer builds a streamer. base supplies render distance, seeds and
// capacity factors for every request.
func NewStreamer(worker Submitter, scene *Scene, base chunkgen.Request, logger *log.Logger) *Streamer {
	if logger == nil {
		logger = log.Default()
	}
	counters := base.Counters
	base.Ledger = nil
	return &Streamer{
		worker:      worker,
		scene:       scene,
		base:        base,
		counters:    counters,
		logger:      logger,
		results:     make(chan chunkgen.Result, 4),
		outstanding: make(map[world.ChunkCoord]pending),
	}
}

// Results delivers generation results for Deliver.
func (s *Streamer) Results() <-chan chunkgen.Result {
	return s.results
}

// Current returns the chunk the player was last seen in.
func (s *Streamer) Current() (world.ChunkCoord, bool) {
	return s.current, s.hasCurrent
}

// Counters returns the counters the next request will carry.
func (s *Streamer) Counters() chunkgen.Counters {
	return s.counters
}

// Outstanding returns the number of requests in flight.
func (s *Streamer) Outstanding() int {
	return len(s.outstanding)
}

// Update submits a request when the player enters a new chunk or the last
// request for the current chunk failed. It reports whether a request was sent.
func (s *Streamer) Update(ctx context.Context, col world.Column, ledger Snapshotter) bool {
	key := world.ChunkOf(col)
	if s.hasCurrent && key == s.current && !s.retry {
		return false
	}
	s.current = key
	s.hasCurrent = true
	s.retry = false
	if _, inFlight := s.outstanding[key]; inFlight {
		return false
	}

	req := s.base
	req.Origin = key.Origin()
	req.Counters = s.counters
	if ledger != nil {
		req.Ledger = ledger.Snapshot()
	}
	s.outstanding[key] = pending{mark: s.journalBase + len(s.journal)}

	ch := s.worker.Submit(ctx, req)
	go func() {
		select {
		case res := <-ch:
			select {
			case s.results <- res:
			case <-ctx.Done():
			}
		case <-ctx.Done():
		}
	}()
	return true
}

// Record journals an edit so it can be replayed over responses generated from
// an older ledger snapshot.
func (s *Streamer) Record(entry world.Block) {
	if len(s.outstanding) == 0 {
		return
	}
	s.journal = append(s.journal, entry)
}

// Deliver applies a result to the scene. It reports whether the scene
// changed; superseded and failed results leave it untouched.
func (s *Streamer) Deliver(res chunkgen.Result) bool {
	key := world.ChunkOf(res.Request.Origin)
	p, ok := s.outstanding[key]
	if !ok {
		s.logger.Printf("stream: dropping untracked response for chunk %v", key)
		return false
	}
	delete(s.outstanding, key)
	defer s.trimJournal()

	if res.Err != nil {
		s.logger.Printf("stream: generation for chunk %v failed: %v", key, res.Err)
		if key == s.current {
			s.retry = true
		}
		return false
	}
	if key != s.current {
		s.logger.Printf("stream: dropping superseded response for chunk %v", key)
		return false
	}

	s.scene.Apply(res.Response)
	s.counters = res.Response.Counters
	if offset := p.mark - s.journalBase; offset < len(s.journal) {
		s.scene.Replay(s.journal[offset:])
	}
	return true
}

// trimJournal drops entries no outstanding request still needs.
func (s *Streamer) trimJournal() {
	if len(s.outstanding) == 0 {
		s.journalBase += len(s.journal)
		s.journal = s.journal[:0]
		return
	}
	keep := s.journalBase + len(s.journal)
	for _, p := range s.outstanding {
		if p.mark < keep {
			keep = p.mark
		}
	}
	if drop := keep - s.journalBase; drop > 0 {
		s.journal = append([]world.Block(nil), s.journal[drop:]...)
		s.journalBase = keep
	}
}
