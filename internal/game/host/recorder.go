package host

import (
	"sync"
	"time"
)

// CommandKind distinguishes recorded presentation commands.
type CommandKind string

const (
	CmdAnimation CommandKind = "animation"
	CmdEffect    CommandKind = "effect"
	CmdSound     CommandKind = "sound"
	CmdHPBar     CommandKind = "hp_bar"
	CmdMove      CommandKind = "move"
)

// Command is a single presentation command as captured by Recorder and sent over the bridge.
type Command struct {
	Kind        CommandKind   `json:"kind"`
	CharacterID string        `json:"character_id,omitempty"`
	Animation   AnimationKind `json:"animation,omitempty"`
	Loop        bool          `json:"loop,omitempty"`
	Effect      EffectKind    `json:"effect,omitempty"`
	Position    *Vec3         `json:"position,omitempty"`
	To          *Vec3         `json:"to,omitempty"`
	Color       string        `json:"color,omitempty"`
	Radius      float64       `json:"radius,omitempty"`
	TravelMS    int64         `json:"travel_ms,omitempty"`
	Sound       string        `json:"sound,omitempty"`
	MaxDistance float64       `json:"max_distance,omitempty"`
	Fraction    float64       `json:"fraction,omitempty"`
}

// AnimationCommand builds the Command for PlayAnimation.
func AnimationCommand(id string, kind AnimationKind, loop bool) Command {
	return Command{Kind: CmdAnimation, CharacterID: id, Animation: kind, Loop: loop}
}

// EffectCommand builds the Command for SpawnEffect.
func EffectCommand(kind EffectKind, pos Vec3, opts EffectOptions) Command {
	return Command{
		Kind:     CmdEffect,
		Effect:   kind,
		Position: &pos,
		To:       opts.To,
		Color:    opts.Color,
		Radius:   opts.Radius,
		TravelMS: opts.Travel.Milliseconds(),
	}
}

// SoundCommand builds the Command for PlaySound.
func SoundCommand(name string, pos Vec3, maxDistance float64) Command {
	return Command{Kind: CmdSound, Sound: name, Position: &pos, MaxDistance: maxDistance}
}

// HPBarCommand builds the Command for UpdateHPBar.
func HPBarCommand(id string, fraction float64) Command {
	return Command{Kind: CmdHPBar, CharacterID: id, Fraction: fraction}
}

// MoveCommand builds the Command for MoveObserver.ObserveMove.
func MoveCommand(id string, dest Vec3, travel time.Duration) Command {
	return Command{Kind: CmdMove, CharacterID: id, To: &dest, TravelMS: travel.Milliseconds()}
}

// Recorder is a Presenter that keeps every command in order.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) add(c Command) {
	r.mu.Lock()
	r.commands = append(r.commands, c)
	r.mu.Unlock()
}

func (r *Recorder) PlayAnimation(id string, kind AnimationKind, loop bool) {
	r.add(AnimationCommand(id, kind, loop))
}

func (r *Recorder) SpawnEffect(kind EffectKind, pos Vec3, opts EffectOptions) {
	r.add(EffectCommand(kind, pos, opts))
}

func (r *Recorder) PlaySound(name string, pos Vec3, maxDistance float64) {
	r.add(SoundCommand(name, pos, maxDistance))
}

func (r *Recorder) UpdateHPBar(id string, fraction float64) {
	r.add(HPBarCommand(id, fraction))
}

func (r *Recorder) ObserveMove(id string, dest Vec3, travel time.Duration) {
	r.add(MoveCommand(id, dest, travel))
}

// Commands returns a copy of everything recorded so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Animations returns the animations played for id, oldest first.
func (r *Recorder) Animations(id string) []AnimationKind {
	var out []AnimationKind
	for _, c := range r.Commands() {
		if c.Kind == CmdAnimation && c.CharacterID == id {
			out = append(out, c.Animation)
		}
	}
	return out
}

// Effects returns every recorded effect of the given kind.
func (r *Recorder) Effects(kind EffectKind) []Command {
	var out []Command
	for _, c := range r.Commands() {
		if c.Kind == CmdEffect && c.Effect == kind {
			out = append(out, c)
		}
	}
	return out
}

// LastHPBar returns the most recent hp bar fraction sent for id.
func (r *Recorder) LastHPBar(id string) (float64, bool) {
	cmds := r.Commands()
	for i := len(cmds) - 1; i >= 0; i-- {
		if cmds[i].Kind == CmdHPBar && cmds[i].CharacterID == id {
			return cmds[i].Fraction, true
		}
	}
	return 0, false
}

// Reset discards everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.commands = nil
	r.mu.Unlock()
}
