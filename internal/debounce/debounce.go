// Package debounce gates how often raw decoder detections become outbound
// join/scan actions. A decoder may fire on every video frame; at most one
// action is emitted per cooldown window.
package debounce

import (
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultCooldown = 2 * time.Second
	DefaultFlash    = 150 * time.Millisecond
)

type Kind string

const (
	KindJoin Kind = "join"
	KindScan Kind = "scan"
)

type Action struct {
	Kind     Kind
	UserID   string
	TargetID string // empty for joins
}

type State struct {
	CooldownActive bool `json:"cooldownActive"`
	FlashActive    bool `json:"flashActive"`
}

type Config struct {
	Cooldown time.Duration
	Flash    time.Duration
}

// Scheduler arms a timer. The callback must run on the same logical thread
// that calls Offer, so implementations usually post it to an event loop.
type Scheduler func(d time.Duration, fn func()) clockwork.Timer

type Debouncer struct {
	cfg      Config
	schedule Scheduler
	cooldown timedFlag
	flash    timedFlag

	// OnChange is called whenever either flag flips.
	OnChange func(State)
}

func New(cfg Config, schedule Scheduler) *Debouncer {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Flash <= 0 {
		cfg.Flash = DefaultFlash
	}
	return &Debouncer{cfg: cfg, schedule: schedule}
}

// Offer turns one decoded text into an action, or reports false when the
// detection must be dropped: during cooldown, for empty text, or when the
// text is the player's own identity. With no identity yet the first accepted
// detection is a join.
func (d *Debouncer) Offer(text, self string) (Action, bool) {
	if d.cooldown.active || text == "" {
		return Action{}, false
	}
	if self != "" && text == self {
		return Action{}, false
	}

	var a Action
	if self == "" {
		a = Action{Kind: KindJoin, UserID: text}
	} else {
		a = Action{Kind: KindScan, UserID: self, TargetID: text}
	}

	d.cooldown.arm(d.schedule, d.cfg.Cooldown, d.changed)
	d.flash.arm(d.schedule, d.cfg.Flash, d.changed)
	d.changed()
	return a, true
}

func (d *Debouncer) State() State {
	return State{CooldownActive: d.cooldown.active, FlashActive: d.flash.active}
}

// Reset stops both timers and clears the flags. Used on teardown.
func (d *Debouncer) Reset() {
	was := d.State()
	d.cooldown.reset()
	d.flash.reset()
	if was != d.State() {
		d.changed()
	}
}

func (d *Debouncer) changed() {
	if d.OnChange != nil {
		d.OnChange(d.State())
	}
}

// timedFlag owns at most one outstanding timer. Re-arming stops the previous
// timer and bumps gen so a callback that was already queued becomes a no-op.
type timedFlag struct {
	active bool
	timer  clockwork.Timer
	gen    uint64
}

func (f *timedFlag) arm(schedule Scheduler, d time.Duration, onExpire func()) {
	f.stop()
	f.active = true
	gen := f.gen
	f.timer = schedule(d, func() {
		if f.gen != gen || !f.active {
			return
		}
		f.active = false
		f.timer = nil
		onExpire()
	})
}

func (f *timedFlag) reset() {
	f.stop()
	f.active = false
}

func (f *timedFlag) stop() {
	f.gen++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}
