package identity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const backendTimeout = 2 * time.Second

// Backend is durable storage for the identity token.
type Backend interface {
	Load(ctx context.Context) (string, bool, error)
	Save(ctx context.Context, id string) error
	Delete(ctx context.Context) error
	Close() error
}

// Durable mirrors every write into memory and into a Backend. The first
// backend failure drops the backend for the rest of the process; from then on
// the identity lives in memory only and is lost on restart.
type Durable struct {
	mu       sync.Mutex
	backend  Backend
	degraded bool
	mem      Memory
	log      *zap.Logger
}

// Open opens the SQLite store at path, falling back to memory when it cannot.
func Open(path string, log *zap.Logger) *Durable {
	if log == nil {
		log = zap.NewNop()
	}
	b, err := OpenSQLite(path)
	if err != nil {
		log.Warn("identity storage unavailable, keeping identity in memory",
			zap.String("path", path), zap.Error(err))
		d := NewDurable(nil, log)
		d.degraded = true
		return d
	}
	return NewDurable(b, log)
}

func NewDurable(b Backend, log *zap.Logger) *Durable {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Durable{backend: b, log: log.With(zap.String("component", "identity"))}
	if b == nil {
		return d
	}

	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()
	id, ok, err := b.Load(ctx)
	if err != nil {
		d.degrade(err)
		return d
	}
	if ok {
		d.mem.Set(id)
	}
	return d
}

func (d *Durable) Get() (string, bool) {
	return d.mem.Get()
}

func (d *Durable) Set(id string) {
	if id == "" {
		d.Clear()
		return
	}
	d.mem.Set(id)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.backend == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()
	if err := d.backend.Save(ctx, id); err != nil {
		d.degrade(err)
	}
}

func (d *Durable) Clear() {
	d.mem.Clear()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.backend == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()
	if err := d.backend.Delete(ctx); err != nil {
		d.degrade(err)
	}
}

// Degraded reports whether the store has fallen back to memory after a
// storage failure. A closed store is not degraded.
func (d *Durable) Degraded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.degraded
}

func (d *Durable) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.backend == nil {
		return nil
	}
	err := d.backend.Close()
	d.backend = nil
	return err
}

// degrade must be called with mu held, or before d is shared.
func (d *Durable) degrade(err error) {
	d.log.Warn("identity storage failed, continuing in memory", zap.Error(err))
	if d.backend != nil {
		_ = d.backend.Close()
	}
	d.backend = nil
	d.degraded = true
}
