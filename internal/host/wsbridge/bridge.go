// Package wsbridge connects a browser host to a running match over websockets. Outbound, it is a
// host.Presenter that broadcasts every presentation command as JSON. Inbound, it accepts attack
// requests and posts them to the simulation goroutine.
package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/host"
	"github.com/cory-johannsen/arena/internal/game/world"
)

const (
	sendBuffer      = 256
	writeTimeout    = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Poster runs fn on the simulation goroutine.
type Poster interface {
	Post(fn func(*world.World)) error
}

// Options configures the listener.
type Options struct {
	Host string
	Port int
}

// Bridge is a websocket hub.
type Bridge struct {
	opts     Options
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	clients  map[*client]struct{}
	poster   Poster
	snapshot func() []world.CharacterView

	srv      *http.Server
	listener net.Listener
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// New creates a Bridge with no match attached.
//
// Precondition: logger must be non-nil.
func New(opts Options, logger *zap.Logger) *Bridge {
	return &Bridge{
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Attach binds the bridge to a match. Inputs received before Attach are rejected.
func (b *Bridge) Attach(p Poster, snapshot func() []world.CharacterView) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.poster = p
	b.snapshot = snapshot
}

// Clients returns the number of connected clients.
func (b *Bridge) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Handler returns the HTTP handler serving the websocket endpoint.
func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.serveWS)
	return mux
}

func (b *Bridge) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	b.mu.Lock()
	snapshot := b.snapshot
	b.mu.Unlock()
	if snapshot != nil {
		if data, err := json.Marshal(snapshotMessage{Type: msgSnapshot, Characters: characterStates(snapshot())}); err == nil {
			c.send <- data
		}
	}

	b.mu.Lock()
	b.clients[c] = struct{}{}
	n := len(b.clients)
	b.mu.Unlock()
	b.logger.Info("bridge client connected", zap.String("remote", r.RemoteAddr), zap.Int("clients", n))

	go b.writePump(c)
	b.readPump(c)
}

func (b *Bridge) writePump(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			b.drop(c)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (b *Bridge) readPump(c *client) {
	defer b.drop(c)
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg inputMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			b.logger.Debug("discarding malformed message", zap.Error(err))
			continue
		}
		b.handleInput(c, msg)
	}
}

func (b *Bridge) drop(c *client) {
	b.mu.Lock()
	_, ok := b.clients[c]
	delete(b.clients, c)
	n := len(b.clients)
	b.mu.Unlock()
	c.close()
	if ok {
		b.logger.Info("bridge client disconnected", zap.Int("clients", n))
	}
}

func (b *Bridge) handleInput(c *client, msg inputMessage) {
	reply := func(err error) {
		res := resultMessage{Type: msgResult, Seq: msg.Seq, OK: err == nil}
		if err != nil {
			res.Error = err.Error()
		}
		b.sendTo(c, res)
	}
	if msg.Type != msgAttack {
		reply(fmt.Errorf("unknown message type %q", msg.Type))
		return
	}
	hand, err := character.ParseHand(msg.Hand)
	if err != nil {
		reply(err)
		return
	}
	b.mu.Lock()
	poster := b.poster
	b.mu.Unlock()
	if poster == nil {
		reply(errors.New("no match attached"))
		return
	}
	if err := poster.Post(func(w *world.World) {
		if msg.Move {
			_, err := w.MoveThenAttack(msg.CharacterID, hand)
			reply(err)
			return
		}
		_, err := w.Attack(msg.CharacterID, hand)
		reply(err)
	}); err != nil {
		reply(err)
	}
}

func (b *Bridge) sendTo(c *client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Warn("marshalling bridge message", zap.Error(err))
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// broadcast sends v to every client. Clients too slow to keep up are disconnected.
func (b *Bridge) broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Warn("marshalling bridge message", zap.Error(err))
		return
	}
	var slow []*client
	b.mu.Lock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.Unlock()
	for _, c := range slow {
		b.logger.Warn("dropping slow bridge client")
		b.drop(c)
	}
}

func (b *Bridge) command(cmd host.Command) {
	b.broadcast(commandMessage{Type: msgCommand, Command: cmd})
}

func (b *Bridge) PlayAnimation(id string, kind host.AnimationKind, loop bool) {
	b.command(host.AnimationCommand(id, kind, loop))
}

func (b *Bridge) SpawnEffect(kind host.EffectKind, pos host.Vec3, opts host.EffectOptions) {
	b.command(host.EffectCommand(kind, pos, opts))
}

func (b *Bridge) PlaySound(name string, pos host.Vec3, maxDistance float64) {
	b.command(host.SoundCommand(name, pos, maxDistance))
}

func (b *Bridge) UpdateHPBar(id string, fraction float64) {
	b.command(host.HPBarCommand(id, fraction))
}

func (b *Bridge) ObserveMove(id string, dest host.Vec3, travel time.Duration) {
	b.command(host.MoveCommand(id, dest, travel))
}

// Start listens on Options.Host:Port and serves until Stop.
//
// Postcondition: returns nil after a clean Stop, or the listener error.
func (b *Bridge) Start() error {
	addr := net.JoinHostPort(b.opts.Host, fmt.Sprint(b.opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bridge listen on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: b.Handler(), ReadHeaderTimeout: 10 * time.Second}
	b.mu.Lock()
	b.srv = srv
	b.listener = ln
	b.mu.Unlock()
	b.logger.Info("bridge listening", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("bridge serve: %w", err)
	}
	return nil
}

// Addr returns the bound address once Start is listening, or "".
func (b *Bridge) Addr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Stop shuts the listener down and disconnects every client.
func (b *Bridge) Stop() {
	b.mu.Lock()
	srv := b.srv
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.Unlock()
	for _, c := range clients {
		b.drop(c)
	}
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		b.logger.Warn("bridge shutdown", zap.Error(err))
	}
}
