// Package controller is the client's composition root. A single loop
// goroutine owns the identity, the current snapshot, the scan debouncer and
// the session channel; every decode event, inbound event, user action and
// timer expiry is a message processed by that loop, so none of this state is
// ever touched concurrently.
package controller

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/infect-client/internal/debounce"
	"github.com/DoyleJ11/infect-client/internal/game"
	"github.com/DoyleJ11/infect-client/internal/identity"
	"github.com/DoyleJ11/infect-client/internal/session"
)

var ErrClosed = errors.New("controller closed")
var ErrNoDialer = errors.New("controller: no channel dialer")
var ErrNoIdentityStore = errors.New("controller: no identity store")

const DefaultNotice = 3 * time.Second

// Channel is the duplex connection to the server as the controller sees it.
type Channel interface {
	Join(userID string) error
	Scan(userID, targetID string) error
	Leave(userID string) error
	Events() <-chan session.Event
	Close() error
}

type DialFunc func(ctx context.Context) (Channel, error)

type Options struct {
	Dial     DialFunc
	Identity identity.Store
	Clock    clockwork.Clock

	Cooldown time.Duration
	Flash    time.Duration
	Notice   time.Duration
	IDLength int

	Logger *zap.Logger

	// OnChange runs on the loop goroutine after every view change. It must
	// not call back into the Controller synchronously.
	OnChange func(View)
}

type Controller struct {
	log      *zap.Logger
	ch       Channel
	store    identity.Store
	clock    clockwork.Clock
	deb      *debounce.Debouncer
	onChange func(View)
	idLength int

	snapshot  game.Snapshot
	connected bool
	connErr   string
	cameraErr string

	noticeWindow time.Duration
	notice       string
	noticeTimer  clockwork.Timer
	noticeGen    uint64

	last View

	inbox     chan msg
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// New opens the session channel and starts the loop. The channel is closed
// by Close, or immediately if New fails.
func New(parent context.Context, opts Options) (*Controller, error) {
	if opts.Dial == nil {
		return nil, ErrNoDialer
	}
	if opts.Identity == nil {
		return nil, ErrNoIdentityStore
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Notice <= 0 {
		opts.Notice = DefaultNotice
	}
	if opts.IDLength <= 0 {
		opts.IDLength = identity.DefaultLength
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	ch, err := opts.Dial(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open session channel: %w", err)
	}

	c := &Controller{
		log:          opts.Logger.With(zap.String("component", "controller"), zap.String("session", uuid.NewString())),
		ch:           ch,
		store:        opts.Identity,
		clock:        opts.Clock,
		onChange:     opts.OnChange,
		idLength:     opts.IDLength,
		snapshot:     game.Empty(),
		noticeWindow: opts.Notice,
		inbox:        make(chan msg, 64),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	c.deb = debounce.New(debounce.Config{Cooldown: opts.Cooldown, Flash: opts.Flash}, c.schedule)
	c.deb.OnChange = func(debounce.State) { c.publish() }

	go c.loop()
	return c, nil
}

// Decode feeds one decoder detection. Safe to call at frame rate.
func (c *Controller) Decode(text string) error {
	return c.post(decodeMsg{text: text})
}

// Join enters the game under id, or under a freshly generated identity when
// id is empty. It returns the identity used.
func (c *Controller) Join(id string) (string, error) {
	reply := make(chan joinResult, 1)
	if err := c.post(joinMsg{id: id, reply: reply}); err != nil {
		return "", err
	}
	select {
	case r := <-reply:
		return r.id, r.err
	case <-c.done:
		return "", ErrClosed
	}
}

// NewGame resets the local view to epoch 0 and rejoins with the stored identity.
func (c *Controller) NewGame() error { return c.post(newGameMsg{}) }

func (c *Controller) Leave() error { return c.post(leaveMsg{}) }

// ReportCameraError surfaces a camera failure in the view; nil clears it.
func (c *Controller) ReportCameraError(err error) error {
	return c.post(cameraErrMsg{err: err})
}

func (c *Controller) View() (View, error) {
	reply := make(chan View, 1)
	if err := c.post(getViewMsg{reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-c.done:
		return View{}, ErrClosed
	}
}

// Close stops the loop, cancels every pending timer and closes the channel.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
	})
	return c.closeErr
}

func (c *Controller) post(m msg) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	select {
	case c.inbox <- m:
		return nil
	case <-c.ctx.Done():
		return ErrClosed
	}
}

// schedule arms a timer whose callback is delivered back into the loop.
func (c *Controller) schedule(d time.Duration, fn func()) clockwork.Timer {
	return c.clock.AfterFunc(d, func() {
		_ = c.post(callMsg{fn: fn})
	})
}

func (c *Controller) loop() {
	defer close(c.done)
	defer c.teardown()

	events := c.ch.Events()
	c.publish()

	for {
		select {
		case <-c.ctx.Done():
			return

		case m := <-c.inbox:
			c.handle(m)

		case ev, ok := <-events:
			if !ok {
				events = nil
				c.connected = false
				c.connErr = "connection closed"
				c.publish()
				continue
			}
			c.handleEvent(ev)
		}
	}
}

func (c *Controller) teardown() {
	c.deb.OnChange = nil
	c.deb.Reset()
	c.stopNotice()
	if err := c.ch.Close(); err != nil {
		c.closeErr = fmt.Errorf("close session channel: %w", err)
	}
	c.log.Debug("controller stopped")
}

func (c *Controller) handle(m msg) {
	switch m := m.(type) {
	case decodeMsg:
		c.onDecode(m.text)

	case joinMsg:
		id, err := c.onJoin(m.id)
		m.reply <- joinResult{id: id, err: err}

	case newGameMsg:
		c.snapshot = game.Empty()
		if id, ok := c.store.Get(); ok {
			c.emit("join", c.ch.Join(id))
		}
		c.publish()

	case leaveMsg:
		if id, ok := c.store.Get(); ok {
			c.emit("leave", c.ch.Leave(id))
			c.store.Clear()
		}
		c.publish()

	case cameraErrMsg:
		c.cameraErr = ""
		if m.err != nil {
			c.cameraErr = m.err.Error()
			c.log.Warn("camera unavailable", zap.Error(m.err))
		}
		c.publish()

	case getViewMsg:
		m.reply <- c.view()

	case callMsg:
		m.fn()
	}
}

func (c *Controller) onDecode(text string) {
	self, _ := c.store.Get()
	a, ok := c.deb.Offer(text, self)
	if !ok {
		return
	}

	switch a.Kind {
	case debounce.KindJoin:
		c.store.Set(a.UserID)
		c.emit("join", c.ch.Join(a.UserID))
	case debounce.KindScan:
		c.emit("scan", c.ch.Scan(a.UserID, a.TargetID))
	}
	c.publish()
}

func (c *Controller) onJoin(id string) (string, error) {
	if id == "" {
		generated, err := identity.Generate(c.idLength)
		if err != nil {
			return "", fmt.Errorf("generate identity: %w", err)
		}
		id = generated
	}
	c.store.Set(id)
	err := c.ch.Join(id)
	c.emit("join", err)
	c.publish()
	return id, err
}

func (c *Controller) handleEvent(ev session.Event) {
	switch ev := ev.(type) {
	case session.StateEvent:
		c.onState(ev.Snapshot)

	case session.NotificationEvent:
		if self, ok := c.store.Get(); !ok || ev.UserID != self {
			return
		}
		c.showNotice(ev.Message)

	case session.ConnectionEvent:
		c.connected = ev.Connected
		switch {
		case ev.Connected:
			c.connErr = ""
		case ev.Err != nil:
			c.connErr = ev.Err.Error()
		default:
			c.connErr = "disconnected"
		}
		c.publish()
	}
}

func (c *Controller) onState(incoming game.Snapshot) {
	next := game.Admit(incoming, c.snapshot)
	if next.GameID != incoming.GameID {
		c.log.Debug("stale snapshot rejected",
			zap.Int("incoming", incoming.GameID), zap.Int("current", c.snapshot.GameID))
	}
	c.snapshot = next

	if id, ok := c.store.Get(); ok && game.Orphaned(c.snapshot, id) {
		c.log.Info("identity no longer in game, clearing", zap.String("userId", id), zap.Int("gameId", c.snapshot.GameID))
		c.store.Clear()
	}
	c.publish()
}

func (c *Controller) showNotice(text string) {
	c.stopNotice()
	c.notice = text
	gen := c.noticeGen
	c.noticeTimer = c.schedule(c.noticeWindow, func() {
		if gen != c.noticeGen {
			return
		}
		c.notice = ""
		c.noticeTimer = nil
		c.publish()
	})
	c.publish()
}

func (c *Controller) stopNotice() {
	c.noticeGen++
	if c.noticeTimer != nil {
		c.noticeTimer.Stop()
		c.noticeTimer = nil
	}
}

// emit records a failed fire-and-forget action as a connection error.
func (c *Controller) emit(action string, err error) {
	if err == nil {
		return
	}
	c.log.Warn("emit failed", zap.String("action", action), zap.Error(err))
	c.connErr = err.Error()
}

func (c *Controller) view() View {
	id, _ := c.store.Get()
	status, row := Derive(c.snapshot, id)
	deb := c.deb.State()
	return View{
		Status:    status,
		Player:    row,
		Identity:  id,
		GameID:    c.snapshot.GameID,
		Players:   len(c.snapshot.Players),
		Cooldown:  deb.CooldownActive,
		Flash:     deb.FlashActive,
		Connected: c.connected,
		ConnErr:   c.connErr,
		CameraErr: c.cameraErr,
		Notice:    c.notice,
	}
}

func (c *Controller) publish() {
	v := c.view()
	if reflect.DeepEqual(v, c.last) {
		return
	}
	c.last = v
	if c.onChange != nil {
		c.onChange(v)
	}
}
