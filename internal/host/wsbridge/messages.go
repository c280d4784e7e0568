package wsbridge

import (
	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/host"
	"github.com/cory-johannsen/arena/internal/game/world"
)

const (
	msgSnapshot = "snapshot"
	msgCommand  = "command"
	msgResult   = "result"
	msgAttack   = "attack"
)

// inputMessage is the only message clients send.
type inputMessage struct {
	Type        string `json:"type"`
	Seq         uint64 `json:"seq,omitempty"`
	CharacterID string `json:"character_id"`
	Hand        string `json:"hand"`
	Move        bool   `json:"move,omitempty"`
}

type resultMessage struct {
	Type  string `json:"type"`
	Seq   uint64 `json:"seq,omitempty"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type commandMessage struct {
	Type    string       `json:"type"`
	Command host.Command `json:"command"`
}

type snapshotMessage struct {
	Type       string           `json:"type"`
	Characters []characterState `json:"characters"`
}

type characterState struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Class    string    `json:"class"`
	Faction  string    `json:"faction"`
	HP       float64   `json:"hp"`
	MaxHP    float64   `json:"max_hp"`
	Alive    bool      `json:"alive"`
	Position host.Vec3 `json:"position"`
	Left     string    `json:"left"`
	Right    string    `json:"right"`
	Effects  []string  `json:"effects,omitempty"`
	Moving   bool      `json:"moving,omitempty"`
}

func characterStates(views []world.CharacterView) []characterState {
	out := make([]characterState, len(views))
	for i, v := range views {
		s := characterState{
			ID:       v.ID,
			Name:     v.Name,
			Class:    v.Class.String(),
			Faction:  v.Faction.String(),
			HP:       v.CurrentHP,
			MaxHP:    v.MaxHP,
			Alive:    v.Alive,
			Position: v.Position,
			Left:     v.Hands[character.HandLeft].String(),
			Right:    v.Hands[character.HandRight].String(),
			Moving:   v.Moving,
		}
		for _, k := range v.Effects {
			s.Effects = append(s.Effects, string(k))
		}
		out[i] = s
	}
	return out
}
