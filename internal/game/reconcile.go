package game

// Admit decides which snapshot becomes current. The incoming snapshot wins when
// it belongs to the locally known epoch, or when no epoch has been observed yet.
// Anything else is a late broadcast for a stale epoch and is ignored.
func Admit(incoming, current Snapshot) Snapshot {
	if current.GameID == 0 || incoming.GameID == current.GameID {
		return incoming
	}
	return current
}

// Orphaned reports whether the server has forgotten id: the snapshot is a real
// epoch and id is not among its players.
func Orphaned(s Snapshot, id string) bool {
	if s.GameID == 0 || id == "" {
		return false
	}
	_, ok := FindPlayer(s, id)
	return !ok
}
