package types

import "github.com/DoyleJ11/infect-client/internal/game"

// State is the payload of a "state" frame:
//
//	gameId:   number (0 or absent = no epoch yet)
//	gameOver: boolean
//	players:  [{ userId, team: "zombies" | "humans", score, totalScore }]
type State = game.Snapshot
