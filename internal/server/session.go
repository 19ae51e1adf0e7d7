package server

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"voxelworld/internal/chunkgen"
	"voxelworld/internal/network"
	"voxelworld/internal/player"
	"voxelworld/internal/stream"
	"voxelworld/internal/world"
)

// Outbox delivers messages to the client, usually a network.Conn.
type Outbox interface {
	Send(ctx context.Context, msgType network.MessageType, payload any) error
}

// SessionConfig carries everything a session needs besides its outbox.
type SessionConfig struct {
	Tick       time.Duration
	StateEvery int
	InputQueue int
	Controller *player.Controller
	Ledger     *world.Ledger
	Scene      *stream.Scene
	Worker     *chunkgen.Worker
	Base       chunkgen.Request
	Logger     *log.Logger
}

// Session is the actor for one player. A single goroutine owns the player
// state, the ledger and the scene; inputs and generation results reach it
// over channels.
type Session struct {
	id         string
	out        Outbox
	ctrl       *player.Controller
	ledger     *world.Ledger
	scene      *stream.Scene
	worker     *chunkgen.Worker
	streamer   *stream.Streamer
	logger     *log.Logger
	tick       time.Duration
	stateEvery int

	inputs chan network.Input
	edits  *editAccumulator

	ticks   uint64
	editSeq uint64

	newTicker tickerFactory
	now       timeSource

	wg sync.WaitGroup
}

func NewSession(id string, out Outbox, cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "session ", log.LstdFlags|log.Lmicroseconds)
	}
	if cfg.StateEvery <= 0 {
		cfg.StateEvery = 1
	}
	if cfg.InputQueue <= 0 {
		cfg.InputQueue = 64
	}
	s := &Session{
		id:         id,
		out:        out,
		ctrl:       cfg.Controller,
		ledger:     cfg.Ledger,
		scene:      cfg.Scene,
		worker:     cfg.Worker,
		logger:     logger,
		tick:       cfg.Tick,
		stateEvery: cfg.StateEvery,
		inputs:     make(chan network.Input, cfg.InputQueue),
		edits:      newEditAccumulator(),
		newTicker:  defaultTickerFactory(),
		now:        time.Now,
	}
	s.streamer = stream.NewStreamer(cfg.Worker, cfg.Scene, cfg.Base, logger)
	return s
}

func (s *Session) ID() string { return s.id }

// Post queues an input batch. It reports false when the queue is full.
func (s *Session) Post(in network.Input) bool {
	select {
	case s.inputs <- in:
		return true
	default:
		s.logger.Printf("session %s: input queue full, dropping batch", s.id)
		return false
	}
}

// Start runs the generation worker and the session loop until ctx ends.
func (s *Session) Start(ctx context.Context) {
	s.worker.Start(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Session) Wait() {
	s.wg.Wait()
	s.worker.Wait()
}

func (s *Session) run(ctx context.Context) {
	defer s.wg.Done()

	tickerC, stop := s.newTicker(s.tick)
	defer stop()
	clock := newMovementClock(s.tick, s.now())

	s.streamer.Update(ctx, s.column(), s.ledger)
	for {
		select {
		case <-ctx.Done():
			return
		case in := <-s.inputs:
			s.apply(in)
		case now := <-tickerC:
			s.step(ctx, clock.step(now))
		case res := <-s.streamer.Results():
			s.deliver(ctx, res)
		}
	}
}

func (s *Session) column() world.Column {
	pos := s.ctrl.State.Position
	cell := world.CellAt(pos.X(), pos.Y(), pos.Z())
	return world.Column{X: cell.X, Z: cell.Z}
}

func (s *Session) apply(in network.Input) {
	for _, k := range in.Press {
		s.ctrl.Press(player.Key(k))
	}
	for _, k := range in.Release {
		s.ctrl.Release(player.Key(k))
	}
	if in.Look != nil {
		s.ctrl.Look(in.Look.Yaw, in.Look.Pitch)
	}
	if in.Primary {
		s.record(s.ctrl.Primary())
	}
	if in.Secondary {
		s.record(s.ctrl.Secondary())
	}
}

func (s *Session) record(entry world.Block, err error) {
	if err != nil {
		if !errors.Is(err, player.ErrNoTarget) && !errors.Is(err, player.ErrOccupied) {
			s.logger.Printf("session %s: interaction failed: %v", s.id, err)
		}
		return
	}
	s.streamer.Record(entry)
	s.edits.add(entry)
}

func (s *Session) step(ctx context.Context, dt time.Duration) {
	s.ctrl.Tick(dt)
	s.ticks++
	s.streamer.Update(ctx, s.column(), s.ledger)

	if batch := s.edits.flush(&s.editSeq); batch != nil {
		s.send(ctx, network.MessageEdit, batch)
	}
	if s.ticks%uint64(s.stateEvery) == 0 {
		s.send(ctx, network.MessageState, s.stateMessage())
	}
}

func (s *Session) deliver(ctx context.Context, res chunkgen.Result) {
	if !s.streamer.Deliver(res) {
		return
	}
	frame := s.scene.Frame()
	if dropped := frame.Dropped.Total(); dropped > 0 {
		s.logger.Printf("session %s: chunk %v dropped %d placements", s.id, world.ChunkOf(frame.Origin), dropped)
	}
	s.send(ctx, network.MessageChunk, frame)
}

func (s *Session) send(ctx context.Context, msgType network.MessageType, payload any) {
	if err := s.out.Send(ctx, msgType, payload); err != nil && ctx.Err() == nil {
		s.logger.Printf("session %s: send %s: %v", s.id, msgType, err)
	}
}

func (s *Session) stateMessage() network.State {
	st := s.ctrl.State
	return network.State{
		Tick:     s.ticks,
		Position: [3]float64{st.Position.X(), st.Position.Y(), st.Position.Z()},
		Velocity: [3]float64{st.Velocity.X(), st.Velocity.Y(), st.Velocity.Z()},
		Yaw:      st.Yaw,
		Pitch:    st.Pitch,
		Mode:     st.Mode.String(),
		Held:     st.Held.String(),
		Jumping:  st.Jumping,
		Contacts: st.Contacts,
	}
}
