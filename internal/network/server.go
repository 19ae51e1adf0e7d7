package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var ErrConnClosed = errors.New("network: connection closed")

// Handler receives one decoded envelope from a connection. Handlers run on the
// connection's reader goroutine and must not block.
type Handler func(ctx context.Context, c *Conn, env Envelope)

// ConnectFunc runs once per connection after the hello handshake and before
// any message is dispatched. Returning an error closes the connection.
type ConnectFunc func(ctx context.Context, c *Conn, hello Hello) error

// Options tune the websocket endpoint.
type Options struct {
	HandshakeTimeout  time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	OutboundQueue     int
	CompressThreshold int
	// ReadLimit caps a single inbound message in bytes.
	ReadLimit int64
}

func (o Options) withDefaults() Options {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 5 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 60 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.OutboundQueue <= 0 {
		o.OutboundQueue = 16
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 64 * 1024
	}
	return o
}

type Server struct {
	opts     Options
	logger   *log.Logger
	upgrader websocket.Upgrader
	seq      atomic.Uint64

	mu         sync.RWMutex
	handlers   map[MessageType][]Handler
	onConnect  ConnectFunc
	onClose    []func(*Conn)
	conns      map[string]*Conn
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

func NewServer(opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "network ", log.LstdFlags|log.Lmicroseconds)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		opts:   opts.withDefaults(),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		handlers:   make(map[MessageType][]Handler),
		conns:      make(map[string]*Conn),
		baseCtx:    ctx,
		cancelBase: cancel,
	}
}

func (s *Server) Register(msgType MessageType, handler Handler) {
	s.mu.Lock()
	s.handlers[msgType] = append(s.handlers[msgType], handler)
	s.mu.Unlock()
}

func (s *Server) OnConnect(fn ConnectFunc) {
	s.mu.Lock()
	s.onConnect = fn
	s.mu.Unlock()
}

func (s *Server) OnClose(fn func(*Conn)) {
	s.mu.Lock()
	s.onClose = append(s.onClose, fn)
	s.mu.Unlock()
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// Close cancels every connection context. Handlers already running finish.
func (s *Server) Close() {
	s.cancelBase()
}

// Serve listens on addr and serves the websocket endpoint at path until ctx
// is cancelled.
func (s *Server) Serve(ctx context.Context, addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, s.Handler())
	httpSrv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: s.opts.HandshakeTimeout}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("listening on %s%s", addr, path)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ws, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.logger.Printf("upgrade %s: %v", r.RemoteAddr, err)
			return
		}
		defer ws.Close()
		ws.SetReadLimit(s.opts.ReadLimit)

		hello, err := s.handshake(ws)
		if err != nil {
			s.logger.Printf("handshake %s: %v", r.RemoteAddr, err)
			return
		}

		ctx, cancel := context.WithCancel(s.baseCtx)
		defer cancel()
		c := &Conn{
			id:     uuid.NewString(),
			remote: r.RemoteAddr,
			server: s,
			ws:     ws,
			out:    make(chan outbound, s.opts.OutboundQueue),
			done:   make(chan struct{}),
		}
		go c.writeLoop(ctx, cancel)
		go func() {
			// Unblocks ReadMessage on shutdown or write failure.
			<-ctx.Done()
			ws.Close()
		}()

		s.mu.Lock()
		s.conns[c.id] = c
		onConnect := s.onConnect
		s.mu.Unlock()
		defer s.release(c)

		if onConnect != nil {
			if err := onConnect(ctx, c, hello); err != nil {
				s.logger.Printf("connect %s: %v", c.id, err)
				return
			}
		}
		s.readLoop(ctx, c)
	}
}

func (s *Server) release(c *Conn) {
	c.closeOnce.Do(func() { close(c.done) })
	s.mu.Lock()
	delete(s.conns, c.id)
	hooks := make([]func(*Conn), len(s.onClose))
	copy(hooks, s.onClose)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(c)
	}
}

func (s *Server) handshake(ws *websocket.Conn) (Hello, error) {
	var hello Hello
	_ = ws.SetReadDeadline(time.Now().Add(s.opts.HandshakeTimeout))
	kind, data, err := ws.ReadMessage()
	if err != nil {
		return hello, fmt.Errorf("read hello: %w", err)
	}
	env, err := DecodeFrame(kind == websocket.BinaryMessage, data)
	if err != nil || env.Type != MessageHello {
		s.closeWith(ws, websocket.ClosePolicyViolation, "expected hello")
		return hello, errors.New("first message was not hello")
	}
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, &hello); err != nil {
			s.closeWith(ws, websocket.CloseUnsupportedData, "bad hello payload")
			return hello, fmt.Errorf("decode hello: %w", err)
		}
	}
	return hello, nil
}

func (s *Server) closeWith(ws *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func (s *Server) readLoop(ctx context.Context, c *Conn) {
	for {
		if ctx.Err() != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("read %s: %v", c.id, err)
			}
			return
		}

		env, err := DecodeFrame(kind == websocket.BinaryMessage, data)
		if err != nil {
			s.logger.Printf("decode message from %s: %v", c.id, err)
			continue
		}
		if env.Type == MessageInput {
			if err := ValidateInput(env.Payload); err != nil {
				s.logger.Printf("drop input from %s: %v", c.id, err)
				_ = c.TrySend(MessageError, Error{Message: err.Error()})
				continue
			}
		}

		for _, h := range s.handlersFor(env.Type) {
			h(ctx, c, env)
		}
	}
}

func (s *Server) handlersFor(msgType MessageType) []Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Handler(nil), s.handlers[msgType]...)
}

func (s *Server) prepare(msgType MessageType, payload any) (outbound, error) {
	raw, err := encodePayload(payload)
	if err != nil {
		return outbound{}, err
	}
	env := Envelope{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Seq:       s.seq.Add(1),
		Payload:   raw,
	}
	data, err := Encode(env)
	if err != nil {
		return outbound{}, err
	}
	if msgType == MessageChunk && s.opts.CompressThreshold > 0 && len(data) > s.opts.CompressThreshold {
		packed, err := Compress(data)
		if err != nil {
			return outbound{}, err
		}
		return outbound{kind: websocket.BinaryMessage, data: packed}, nil
	}
	return outbound{kind: websocket.TextMessage, data: data}, nil
}

func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return []byte("null"), nil
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	default:
		return json.Marshal(payload)
	}
}

type outbound struct {
	kind int
	data []byte
}

// Conn is one client connection. Send and TrySend are safe for concurrent use.
type Conn struct {
	id     string
	remote string
	server *Server
	ws     *websocket.Conn
	out    chan outbound

	done      chan struct{}
	closeOnce sync.Once
}

// ID is the session id assigned at handshake.
func (c *Conn) ID() string { return c.id }

func (c *Conn) RemoteAddr() string { return c.remote }

// Done is closed when the connection ends.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Send queues a message, waiting for queue space until ctx ends or the
// connection closes.
func (c *Conn) Send(ctx context.Context, msgType MessageType, payload any) error {
	msg, err := c.server.prepare(msgType, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msgType, err)
	}
	select {
	case c.out <- msg:
		return nil
	case <-c.done:
		return ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend queues a message without waiting. It drops the message when the
// queue is full.
func (c *Conn) TrySend(msgType MessageType, payload any) error {
	msg, err := c.server.prepare(msgType, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msgType, err)
	}
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.out <- msg:
		return nil
	default:
		return fmt.Errorf("outbound queue full for %s", c.id)
	}
}

func (c *Conn) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.server.opts.WriteTimeout))
			if err := c.ws.WriteMessage(msg.kind, msg.data); err != nil {
				c.server.logger.Printf("write %s: %v", c.id, err)
				cancel()
				return
			}
		}
	}
}
