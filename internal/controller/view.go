package controller

import (
	"fmt"

	"github.com/DoyleJ11/infect-client/internal/game"
)

type Status int

const (
	StatusNotJoined Status = iota
	StatusLoading
	StatusJoined
	StatusGameOver
)

func (s Status) String() string {
	switch s {
	case StatusNotJoined:
		return "not_joined"
	case StatusLoading:
		return "loading"
	case StatusJoined:
		return "joined"
	case StatusGameOver:
		return "game_over"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// View is everything the presentation layer needs to render one frame.
type View struct {
	Status    Status          `json:"status"`
	Player    *game.PlayerRow `json:"player,omitempty"`
	Identity  string          `json:"identity,omitempty"`
	GameID    int             `json:"gameId"`
	Players   int             `json:"players"`
	Cooldown  bool            `json:"cooldown"`
	Flash     bool            `json:"flash"`
	Connected bool            `json:"connected"`
	ConnErr   string          `json:"connError,omitempty"`
	CameraErr string          `json:"cameraError,omitempty"`
	Notice    string          `json:"notice,omitempty"`
}

// Derive maps the stored identity and the current snapshot onto a status and
// the player's own row. It is recomputed on every change, never cached.
func Derive(s game.Snapshot, id string) (Status, *game.PlayerRow) {
	var row *game.PlayerRow
	if p, ok := game.FindPlayer(s, id); ok {
		row = &p
	}

	switch {
	case s.GameOver:
		return StatusGameOver, row
	case id == "":
		return StatusNotJoined, nil
	case row == nil:
		return StatusLoading, nil
	default:
		return StatusJoined, row
	}
}
