// Package loop drives a match in wall-clock time. A single goroutine owns every mutation of the
// World: each tick it drains posted inputs, advances the simulation clock, and lets the AI think.
package loop

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/world"
)

// ErrStopped is returned by Post after the loop has stopped.
var ErrStopped = errors.New("loop stopped")

// ErrInboxFull is returned by Post when inputs arrive faster than ticks drain them.
var ErrInboxFull = errors.New("loop inbox full")

// Thinker is consulted once per tick after the clock advances.
type Thinker interface {
	Think() int
}

// Options tunes the loop.
type Options struct {
	// Tick is the wall-clock interval between steps.
	Tick time.Duration
	// Speed scales simulation time against wall-clock time; 1 is real time.
	Speed float64
	// InboxSize bounds the number of queued inputs.
	InboxSize int
	// StopOnOutcome ends the loop once the match is decided.
	StopOnOutcome bool
}

// Loop owns a World and steps it on a ticker.
type Loop struct {
	w       *world.World
	thinker Thinker
	opts    Options
	logger  *zap.Logger

	inbox    chan func(*world.World)
	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
	runOnce  sync.Once
}

// New creates a stopped Loop. thinker may be nil.
//
// Precondition: w and logger must be non-nil; opts.Tick > 0.
// Postcondition: Returns a Loop ready to Start().
func New(w *world.World, thinker Thinker, opts Options, logger *zap.Logger) *Loop {
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = 256
	}
	return &Loop{
		w:        w,
		thinker:  thinker,
		opts:     opts,
		logger:   logger,
		inbox:    make(chan func(*world.World), opts.InboxSize),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// World returns the driven World. Reads are safe from any goroutine; mutations must go through Post.
func (l *Loop) World() *world.World { return l.w }

// Post queues fn to run on the loop goroutine before the next clock advance. It never blocks.
func (l *Loop) Post(fn func(*world.World)) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.inbox <- fn:
		return nil
	default:
		return ErrInboxFull
	}
}

// Step runs one tick synchronously: drain inputs, advance by dt, think.
// It reports whether the match has been decided.
//
// Precondition: must not be called concurrently with a running Start.
func (l *Loop) Step(dt time.Duration) bool {
	l.drain()
	l.w.Advance(dt)
	if l.thinker != nil {
		if _, over := l.w.Outcome(); !over {
			l.thinker.Think()
		}
	}
	_, over := l.w.Outcome()
	return over
}

func (l *Loop) drain() {
	for {
		select {
		case fn := <-l.inbox:
			fn(l.w)
		default:
			return
		}
	}
}

// Start runs the ticker until Stop is called or, with StopOnOutcome, the match is decided.
// It blocks, so it can be registered as a server.Service.
//
// Postcondition: Done() is closed when Start returns.
func (l *Loop) Start() error {
	started := false
	l.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("loop already started")
	}
	defer close(l.finished)

	ticker := time.NewTicker(l.opts.Tick)
	defer ticker.Stop()
	last := time.Now()
	l.logger.Info("match loop started",
		zap.String("match_id", l.w.MatchID()),
		zap.Duration("tick", l.opts.Tick),
		zap.Float64("speed", l.opts.Speed),
	)
	for {
		select {
		case <-ticker.C:
			// Ticks dropped under load are made up by the elapsed time of the next one.
			now := time.Now()
			dt := time.Duration(float64(now.Sub(last)) * l.opts.Speed)
			last = now
			if l.Step(dt) && l.opts.StopOnOutcome {
				out, _ := l.w.Outcome()
				l.logger.Info("match loop finished",
					zap.Bool("draw", out.Draw),
					zap.Stringer("winner", out.Winner),
					zap.Duration("at", out.At),
				)
				l.Stop()
				return nil
			}
		case <-l.done:
			l.logger.Info("match loop stopped", zap.Duration("at", l.w.Now()))
			return nil
		}
	}
}

// Stop ends the loop. Calling Stop is idempotent.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Done is closed when Start has returned.
func (l *Loop) Done() <-chan struct{} { return l.finished }
