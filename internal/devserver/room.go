// Package devserver is a small stand-in for the real game server, speaking
// the same frames. It exists for local development and integration tests.
package devserver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/infect-client/internal/game"
	"github.com/DoyleJ11/infect-client/internal/types"
)

type Msg interface{ isRoomMsg() }

type Connect struct {
	ConnID string
	Outbox chan []byte // frames for this connection
}

type Disconnect struct{ ConnID string }

type Join struct{ UserID string }

type Scan struct {
	UserID   string
	TargetID string
}

type Leave struct{ UserID string }

// Reset starts a new epoch with the same roster: scores back to zero, the
// first player is the zombie again. Lifetime totals survive.
type Reset struct{}

type GetState struct {
	Reply chan View
}

type Shutdown struct{}

func (Connect) isRoomMsg()    {}
func (Disconnect) isRoomMsg() {}
func (Join) isRoomMsg()       {}
func (Scan) isRoomMsg()       {}
func (Leave) isRoomMsg()      {}
func (Reset) isRoomMsg()      {}
func (GetState) isRoomMsg()   {}
func (Shutdown) isRoomMsg()   {}

type View struct {
	NumClients int
	State      game.Snapshot
}

type Room struct {
	inbox   chan Msg
	state   game.Snapshot
	totals  map[string]int
	clients map[string]chan []byte
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewRoom(parent context.Context, log *zap.Logger) *Room {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		inbox:   make(chan Msg, 64),
		state:   game.Snapshot{GameID: 1, Players: []game.PlayerRow{}},
		totals:  make(map[string]int),
		clients: make(map[string]chan []byte),
		log:     log.With(zap.String("component", "room")),
		ctx:     ctx,
		cancel:  cancel,
	}
	go r.loop()
	return r
}

// Inbox exposes the room's mailbox to tests and the ws layer.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Post delivers m unless the room has shut down.
func (r *Room) Post(m Msg) bool {
	select {
	case r.inbox <- m:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Connect:
				r.clients[msg.ConnID] = msg.Outbox
				r.sendTo(msg.ConnID, r.stateFrame())

			case Disconnect:
				if ch, ok := r.clients[msg.ConnID]; ok {
					close(ch)
					delete(r.clients, msg.ConnID)
				}

			case Join:
				r.join(msg.UserID)
				r.broadcast(r.stateFrame())

			case Scan:
				if r.scan(msg.UserID, msg.TargetID) {
					r.broadcast(r.stateFrame())
				}

			case Leave:
				r.leave(msg.UserID)
				r.broadcast(r.stateFrame())

			case Reset:
				r.reset()
				r.log.Info("new game", zap.Int("gameId", r.state.GameID))
				r.broadcast(r.stateFrame())

			case GetState:
				msg.Reply <- View{NumClients: len(r.clients), State: r.copyState()}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) join(id string) {
	if id == "" {
		return
	}
	if _, ok := game.FindPlayer(r.state, id); ok {
		return
	}
	if r.state.GameOver {
		r.notify(id, "game is over, wait for the next one")
		return
	}
	team := game.TeamHumans
	if game.CountTeam(r.state, game.TeamZombies) == 0 {
		team = game.TeamZombies
	}
	r.state.Players = append(r.state.Players, game.PlayerRow{UserID: id, Team: team, TotalScore: r.totals[id]})
}

// scan reports whether the state changed. Rejections are notified to the scanner only.
func (r *Room) scan(userID, targetID string) bool {
	if r.state.GameOver {
		r.notify(userID, "game is over")
		return false
	}
	si, ti := r.index(userID), r.index(targetID)
	switch {
	case si < 0:
		r.notify(userID, "you are not in this game")
		return false
	case ti < 0:
		r.notify(userID, "unknown player")
		return false
	case r.state.Players[si].Team != game.TeamZombies:
		r.notify(userID, "only zombies can infect")
		return false
	case r.state.Players[ti].Team == game.TeamZombies:
		r.notify(userID, "already a zombie")
		return false
	}

	r.state.Players[ti].Team = game.TeamZombies
	r.state.Players[si].Score++
	r.state.Players[si].TotalScore++
	r.totals[userID]++
	r.notify(userID, fmt.Sprintf("you infected %s", targetID))
	r.notify(targetID, fmt.Sprintf("you were infected by %s", userID))

	if len(r.state.Players) > 1 && game.CountTeam(r.state, game.TeamHumans) == 0 {
		r.state.GameOver = true
		r.log.Info("game over", zap.Int("gameId", r.state.GameID))
	}
	return true
}

func (r *Room) reset() {
	players := make([]game.PlayerRow, 0, len(r.state.Players))
	for i, p := range r.state.Players {
		team := game.TeamHumans
		if i == 0 {
			team = game.TeamZombies
		}
		players = append(players, game.PlayerRow{UserID: p.UserID, Team: team, TotalScore: r.totals[p.UserID]})
	}
	r.state = game.Snapshot{GameID: r.state.GameID + 1, Players: players}
}

func (r *Room) leave(id string) {
	i := r.index(id)
	if i < 0 {
		return
	}
	r.state.Players = append(r.state.Players[:i], r.state.Players[i+1:]...)
}

func (r *Room) index(id string) int {
	for i, p := range r.state.Players {
		if p.UserID == id {
			return i
		}
	}
	return -1
}

func (r *Room) copyState() game.Snapshot {
	s := r.state
	s.Players = append([]game.PlayerRow{}, r.state.Players...)
	return s
}

func (r *Room) stateFrame() []byte {
	b, err := types.Encode(types.TypeState, r.state)
	if err != nil {
		r.log.Error("encode state", zap.Error(err))
		return nil
	}
	return b
}

// notify goes to every connection; clients filter on userId.
func (r *Room) notify(userID, message string) {
	b, err := types.Encode(types.TypeNotification, types.Notification{UserID: userID, Message: message})
	if err != nil {
		r.log.Error("encode notification", zap.Error(err))
		return
	}
	r.broadcast(b)
}

func (r *Room) sendTo(connID string, frame []byte) {
	ch, ok := r.clients[connID]
	if !ok || frame == nil {
		return
	}
	select {
	case ch <- frame:
	default:
		close(ch)
		delete(r.clients, connID)
	}
}

func (r *Room) broadcast(frame []byte) {
	for id := range r.clients {
		r.sendTo(id, frame)
	}
}

func (r *Room) shutdown() {
	for id, ch := range r.clients {
		close(ch) // no more frames for this connection
		delete(r.clients, id)
	}
	r.cancel()
}
