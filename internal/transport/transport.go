// Package transport keeps one websocket connection to the game server alive,
// redialing with exponential backoff whenever it drops. Frames queued while
// disconnected are flushed after the next successful dial.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("transport closed")
var ErrQueueFull = errors.New("transport send queue full")

type Options struct {
	URL          string
	Header       http.Header
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	ReadLimit    int64
	QueueSize    int

	// Reconnect backoff bounds.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// StableAfter is how long a connection must stay up before the redial
	// delay drops back to MinBackoff.
	StableAfter time.Duration
}

func (o *Options) setDefaults() {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 1 << 20
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 32
	}
	if o.MinBackoff <= 0 {
		o.MinBackoff = 250 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 10 * time.Second
	}
	if o.StableAfter <= 0 {
		o.StableAfter = 5 * time.Second
	}
}

// State is a connectivity change. Err is the reason for a disconnect.
type State struct {
	Connected bool
	Err       error
}

type Client struct {
	opts   Options
	log    *zap.Logger
	out    chan []byte
	in     chan []byte
	states chan State

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Dial validates opts and starts connecting in the background. It does not
// wait for the first connection.
func Dial(parent context.Context, opts Options, log *zap.Logger) (*Client, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" && u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	opts.setDefaults()
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	c := &Client{
		opts:   opts,
		log:    log.With(zap.String("component", "transport"), zap.String("url", opts.URL)),
		out:    make(chan []byte, opts.QueueSize),
		in:     make(chan []byte, 64),
		states: make(chan State, 8),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.run()
	return c, nil
}

// Send queues one text frame. It never blocks.
func (c *Client) Send(p []byte) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	select {
	case c.out <- p:
		return nil
	default:
		return ErrQueueFull
	}
}

// Messages delivers inbound frames. It is closed when the client stops.
func (c *Client) Messages() <-chan []byte { return c.in }

// States delivers connectivity changes. It is closed when the client stops.
func (c *Client) States() <-chan State { return c.states }

func (c *Client) Close() error {
	c.once.Do(c.cancel)
	<-c.done
	return nil
}

func (c *Client) run() {
	defer close(c.done)
	defer close(c.in)
	defer close(c.states)

	// redial spaces out reconnects after a connection drops. It survives
	// across connections and is only reset once a connection proves stable.
	redial := c.newBackOff()
	for {
		conn, err := c.dialWithRetry()
		if err != nil {
			// Only context cancellation ends the retry loop.
			return
		}
		c.publish(State{Connected: true})

		up := time.Now()
		err = c.serve(conn)
		if c.ctx.Err() != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "bye")
			return
		}
		conn.CloseNow()
		c.publish(State{Connected: false, Err: err})

		if time.Since(up) >= c.opts.StableAfter {
			redial.Reset()
		}
		wait := redial.NextBackOff()
		c.log.Warn("connection lost", zap.Error(err), zap.Duration("redial_in", wait))
		if !c.sleep(wait) {
			return
		}
	}
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.opts.MinBackoff
	eb.MaxInterval = c.opts.MaxBackoff
	eb.Reset()
	return eb
}

// sleep waits d or until the client is closed. It reports false on close.
func (c *Client) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *Client) dialWithRetry() (*websocket.Conn, error) {
	return backoff.Retry(c.ctx, func() (*websocket.Conn, error) {
		ctx, cancel := context.WithTimeout(c.ctx, c.opts.DialTimeout)
		defer cancel()
		conn, _, err := websocket.Dial(ctx, c.opts.URL, &websocket.DialOptions{HTTPHeader: c.opts.Header})
		if err != nil {
			if c.ctx.Err() != nil {
				return nil, backoff.Permanent(c.ctx.Err())
			}
			return nil, err
		}
		conn.SetReadLimit(c.opts.ReadLimit)
		return conn, nil
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.Debug("dial failed, retrying", zap.Error(err), zap.Duration("next", next))
			c.publish(State{Connected: false, Err: err})
		}),
	)
}

// serve pumps frames until the connection fails or the client is closed.
func (c *Client) serve(conn *websocket.Conn) error {
	connCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- c.writeLoop(connCtx, conn)
	}()

	for {
		_, data, err := conn.Read(connCtx)
		if err != nil {
			cancel()
			if werr := <-writeErr; werr != nil && !errors.Is(werr, context.Canceled) {
				return werr
			}
			return err
		}
		select {
		case c.in <- data:
		case <-c.ctx.Done():
			cancel()
			<-writeErr
			return c.ctx.Err()
		}
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, p)
			cancel()
			if err != nil {
				conn.CloseNow()
				return fmt.Errorf("write frame: %w", err)
			}
		}
	}
}

func (c *Client) publish(s State) {
	select {
	case c.states <- s:
	case <-c.ctx.Done():
	}
}
