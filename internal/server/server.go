package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"voxelworld/internal/chunkgen"
	"voxelworld/internal/config"
	"voxelworld/internal/network"
	"voxelworld/internal/physics"
	"voxelworld/internal/player"
	"voxelworld/internal/stream"
	"voxelworld/internal/terrain"
	"voxelworld/internal/world"
)

type Server struct {
	cfg        *config.Config
	net        *network.Server
	logger     *log.Logger
	field      terrain.Field
	params     terrain.Params
	classifier *terrain.Classifier
	simulator  *physics.Simulator

	mu       sync.Mutex
	sessions map[string]*Session
	cancels  map[string]context.CancelFunc
}

func New(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger := log.New(log.Writer(), "voxelworld ", log.LstdFlags|log.Lmicroseconds)
	netSrv := network.NewServer(network.Options{
		HandshakeTimeout:  cfg.Network.HandshakeTimeout.Duration(),
		ReadTimeout:       cfg.Network.ReadTimeout.Duration(),
		WriteTimeout:      cfg.Network.WriteTimeout.Duration(),
		OutboundQueue:     cfg.Network.OutboundQueue,
		CompressThreshold: cfg.Network.CompressThreshold,
		ReadLimit:         cfg.Network.ReadLimit,
	}, log.New(log.Writer(), "network ", log.LstdFlags|log.Lmicroseconds))

	params := terrain.ParamsFromConfig(cfg.Terrain)
	field := terrain.Perlin{}
	classifier := terrain.NewClassifier(field, params)

	srv := &Server{
		cfg:        cfg,
		net:        netSrv,
		logger:     logger,
		field:      field,
		params:     params,
		classifier: classifier,
		simulator:  physics.NewSimulator(classifier, cfg.Player.SideReach, logger),
		sessions:   make(map[string]*Session),
		cancels:    make(map[string]context.CancelFunc),
	}
	srv.registerHandlers()
	return srv, nil
}

func (s *Server) registerHandlers() {
	s.net.OnConnect(s.onConnect)
	s.net.OnClose(s.onClose)
	s.net.Register(network.MessageInput, s.onInput)
}

// Handler exposes the websocket endpoint without starting a listener.
func (s *Server) Handler() http.HandlerFunc {
	return s.net.Handler()
}

func (s *Server) Run(ctx context.Context) error {
	defer s.stopSessions()
	s.logger.Printf("server %s starting, seed %v render distance %d", s.cfg.Server.ID, s.cfg.Terrain.Seed, s.cfg.Chunk.RenderDistance)
	return s.net.Serve(ctx, s.cfg.Network.Listen, s.cfg.Network.Path)
}

// Sessions returns the number of live sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) baseRequest() chunkgen.Request {
	var factors [world.BlockTypeCount]float64
	copy(factors[:], s.cfg.Chunk.CapacityFactors)
	return chunkgen.Request{
		RenderDistance:  s.cfg.Chunk.RenderDistance,
		Seeds:           s.params.Seeds(),
		CapacityFactors: factors,
	}
}

// newSession builds the per-player actor. Each session owns its generator so
// buffers are never shared between players.
func (s *Server) newSession(id string, out Outbox) *Session {
	spawn := s.cfg.Player.Spawn
	ledger := world.NewLedger()
	scene := stream.NewScene()
	view := physics.View{Classifier: s.classifier, Edits: ledger}
	resolver := player.NewResolver(player.ParamsFromConfig(s.cfg.Player), s.simulator, ledger)
	ctrl := player.NewController(player.NewState(mgl64.Vec3{spawn[0], spawn[1], spawn[2]}), resolver, ledger, view, scene)

	genLogger := log.New(log.Writer(), "chunkgen ", log.LstdFlags|log.Lmicroseconds)
	gen := chunkgen.New(s.field, s.params, s.cfg.Chunk.Workers, genLogger)

	return NewSession(id, out, SessionConfig{
		Tick:       s.cfg.Server.TickRate.Duration(),
		StateEvery: s.cfg.Server.StateStreamEvery,
		Controller: ctrl,
		Ledger:     ledger,
		Scene:      scene,
		Worker:     chunkgen.NewWorker(gen, s.cfg.Chunk.QueueDepth),
		Base:       s.baseRequest(),
		Logger:     log.New(log.Writer(), "session ", log.LstdFlags|log.Lmicroseconds),
	})
}

func (s *Server) welcome(id string) network.Welcome {
	return network.Welcome{
		SessionID:      id,
		ServerID:       s.cfg.Server.ID,
		TickRate:       s.cfg.Server.TickRate.Duration().String(),
		ChunkSize:      world.ChunkSize,
		RenderDistance: s.cfg.Chunk.RenderDistance,
		Spawn:          s.cfg.Player.Spawn,
	}
}

func (s *Server) onConnect(ctx context.Context, c *network.Conn, hello network.Hello) error {
	if err := c.Send(ctx, network.MessageWelcome, s.welcome(c.ID())); err != nil {
		return fmt.Errorf("send welcome: %w", err)
	}
	session := s.newSession(c.ID(), c)
	sessionCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.sessions[c.ID()] = session
	s.cancels[c.ID()] = cancel
	s.mu.Unlock()

	session.Start(sessionCtx)
	s.logger.Printf("session %s joined from %s as %q", c.ID(), c.RemoteAddr(), hello.Name)
	return nil
}

func (s *Server) onClose(c *network.Conn) {
	s.mu.Lock()
	session := s.sessions[c.ID()]
	cancel := s.cancels[c.ID()]
	delete(s.sessions, c.ID())
	delete(s.cancels, c.ID())
	s.mu.Unlock()

	if session == nil {
		return
	}
	cancel()
	session.Wait()
	s.logger.Printf("session %s left", c.ID())
}

func (s *Server) onInput(ctx context.Context, c *network.Conn, env network.Envelope) {
	s.mu.Lock()
	session := s.sessions[c.ID()]
	s.mu.Unlock()
	if session == nil {
		return
	}
	var in network.Input
	if err := json.Unmarshal(env.Payload, &in); err != nil {
		s.logger.Printf("decode input from %s: %v", c.ID(), err)
		return
	}
	if !session.Post(in) {
		_ = c.TrySend(network.MessageError, network.Error{Message: "input queue full"})
	}
}

func (s *Server) stopSessions() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for id, session := range s.sessions {
		s.cancels[id]()
		sessions = append(sessions, session)
	}
	s.sessions = make(map[string]*Session)
	s.cancels = make(map[string]context.CancelFunc)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Wait()
	}
}
