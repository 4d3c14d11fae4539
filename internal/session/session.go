// Package session owns the duplex channel to the game server: outbound
// join/scan/leave actions and typed inbound events.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/infect-client/internal/game"
	"github.com/DoyleJ11/infect-client/internal/transport"
	"github.com/DoyleJ11/infect-client/internal/types"
)

var ErrClosed = errors.New("session channel closed")

// Transport is the reconnecting frame carrier underneath a Channel.
type Transport interface {
	Send(p []byte) error
	Messages() <-chan []byte
	States() <-chan transport.State
	Close() error
}

type Event interface{ isSessionEvent() }

type StateEvent struct {
	Snapshot game.Snapshot
}

type NotificationEvent struct {
	UserID  string
	Message string
}

type ConnectionEvent struct {
	Connected bool
	Err       error
}

func (StateEvent) isSessionEvent()        {}
func (NotificationEvent) isSessionEvent() {}
func (ConnectionEvent) isSessionEvent()   {}

type Channel struct {
	tr     Transport
	log    *zap.Logger
	events chan Event

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Dial connects a websocket transport and wraps it in a Channel.
func Dial(ctx context.Context, opts transport.Options, log *zap.Logger) (*Channel, error) {
	tr, err := transport.Dial(ctx, opts, log)
	if err != nil {
		return nil, err
	}
	return Open(ctx, tr, log), nil
}

func Open(parent context.Context, tr Transport, log *zap.Logger) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	ch := &Channel{
		tr:     tr,
		log:    log.With(zap.String("component", "session")),
		events: make(chan Event, 64),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go ch.pump()
	return ch
}

func (c *Channel) Join(userID string) error {
	return c.emit(types.TypeJoin, types.JoinRequest{UserID: userID})
}

func (c *Channel) Scan(userID, targetID string) error {
	return c.emit(types.TypeScan, types.ScanRequest{UserID: userID, TargetID: targetID})
}

func (c *Channel) Leave(userID string) error {
	return c.emit(types.TypeLeave, types.LeaveRequest{UserID: userID})
}

// Events is closed once the channel stops.
func (c *Channel) Events() <-chan Event { return c.events }

func (c *Channel) Close() error {
	var err error
	c.once.Do(func() {
		c.cancel()
		err = c.tr.Close()
		<-c.done
	})
	return err
}

func (c *Channel) emit(t string, payload any) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	b, err := types.Encode(t, payload)
	if err != nil {
		return err
	}
	if err := c.tr.Send(b); err != nil {
		return fmt.Errorf("send %s: %w", t, err)
	}
	c.log.Debug("emitted", zap.String("type", t))
	return nil
}

func (c *Channel) pump() {
	defer close(c.done)
	defer close(c.events)

	msgs, states := c.tr.Messages(), c.tr.States()
	for msgs != nil || states != nil {
		select {
		case <-c.ctx.Done():
			return
		case b, ok := <-msgs:
			if !ok {
				msgs = nil
				continue
			}
			if ev, ok := c.decode(b); ok {
				c.deliver(ev)
			}
		case s, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			c.deliver(ConnectionEvent{Connected: s.Connected, Err: s.Err})
		}
	}
}

func (c *Channel) deliver(ev Event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

// decode drops anything malformed; a bad frame is never fatal.
func (c *Channel) decode(b []byte) (Event, bool) {
	env, err := types.DecodeEnvelope(b)
	if err != nil {
		c.log.Debug("dropping frame", zap.Error(err))
		return nil, false
	}

	switch env.Type {
	case types.TypeState:
		st, err := types.DecodePayload[types.State](env)
		if err != nil {
			c.log.Debug("dropping state", zap.Error(err))
			return nil, false
		}
		if st.Players == nil {
			st.Players = []game.PlayerRow{}
		}
		if err := st.Validate(); err != nil {
			c.log.Debug("dropping invalid state", zap.Error(err))
			return nil, false
		}
		return StateEvent{Snapshot: st}, true

	case types.TypeNotification:
		n, err := types.DecodePayload[types.Notification](env)
		if err != nil {
			c.log.Debug("dropping notification", zap.Error(err))
			return nil, false
		}
		return NotificationEvent{UserID: n.UserID, Message: n.Message}, true

	default:
		c.log.Debug("dropping unknown frame", zap.String("type", env.Type))
		return nil, false
	}
}
