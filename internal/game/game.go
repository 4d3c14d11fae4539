package game

import (
	"errors"
	"fmt"
)

var ErrUnknownTeam = errors.New("unknown team")
var ErrDuplicatePlayer = errors.New("duplicate player")
var ErrNegativeGameID = errors.New("negative game id")

type Team string

const (
	TeamZombies Team = "zombies"
	TeamHumans  Team = "humans"
)

func (t Team) Valid() bool {
	return t == TeamZombies || t == TeamHumans
}

func (t Team) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTeam, string(t))
	}
	return []byte(t), nil
}

func (t *Team) UnmarshalText(b []byte) error {
	v := Team(b)
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTeam, string(b))
	}
	*t = v
	return nil
}

type PlayerRow struct {
	UserID     string `json:"userId"`
	Team       Team   `json:"team"`
	Score      int    `json:"score"`
	TotalScore int    `json:"totalScore"`
}

// Snapshot is the authoritative game state pushed by the server. A GameID of 0
// means no real epoch has been observed yet.
type Snapshot struct {
	GameID   int         `json:"gameId"`
	GameOver bool        `json:"gameOver"`
	Players  []PlayerRow `json:"players"`
}

// Validate checks the invariants a snapshot must hold before it can be admitted.
func (s Snapshot) Validate() error {
	if s.GameID < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeGameID, s.GameID)
	}
	seen := make(map[string]bool, len(s.Players))
	for _, p := range s.Players {
		if !p.Team.Valid() {
			return fmt.Errorf("player %q: %w: %q", p.UserID, ErrUnknownTeam, string(p.Team))
		}
		if seen[p.UserID] {
			return fmt.Errorf("%w: %q", ErrDuplicatePlayer, p.UserID)
		}
		seen[p.UserID] = true
	}
	return nil
}
