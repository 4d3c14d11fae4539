package game

// Empty is the local epoch-0 snapshot used at startup and after "join new game".
func Empty() Snapshot {
	return Snapshot{GameID: 0, GameOver: false, Players: []PlayerRow{}}
}

func FindPlayer(s Snapshot, id string) (PlayerRow, bool) {
	if id == "" {
		return PlayerRow{}, false
	}
	for _, p := range s.Players {
		if p.UserID == id {
			return p, true
		}
	}
	return PlayerRow{}, false
}

func CountTeam(s Snapshot, team Team) int {
	n := 0
	for _, p := range s.Players {
		if p.Team == team {
			n++
		}
	}
	return n
}
