// Package circuit implements a small circuit breaker used around outbound
// music-platform mutations. Scheduling runs unattended every minute, so a
// misbehaving upstream must fail fast instead of stacking timeouts.
package circuit

import (
	"context"
	"errors"
	"sync"
	"time"

	"music-brief-scheduler/pkg/logging"
)

// State enum kept small for logging.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

// ErrOpen indicates the breaker is open and the call was short-circuited.
var ErrOpen = errors.New("circuit open")

// Config tunes a breaker instance.
type Config struct {
	Name string

	OperationTimeout  time.Duration // per-call timeout, 0 = none
	OpenFor           time.Duration // how long to stay open before probing
	MaxConsecFailures int           // consecutive failures to open
}

type Breaker struct {
	cfg        Config
	log        *logging.Logger
	mu         sync.Mutex
	st         State
	consecFail int
	nextProbe  time.Time
}

func New(cfg Config, log *logging.Logger) *Breaker {
	if cfg.MaxConsecFailures <= 0 {
		cfg.MaxConsecFailures = 5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	return &Breaker{cfg: cfg, log: log, st: Closed}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}

func (b *Breaker) setStateLocked(st State) {
	if b.st == st {
		return
	}
	b.st = st
	if b.log != nil {
		b.log.WithComponent("circuit").Info("breaker state change",
			logging.String("name", b.cfg.Name), logging.Int("state", int(st)))
	}
}

// Do runs op under the breaker. When open, fallback runs if provided,
// otherwise ErrOpen is returned.
func (b *Breaker) Do(ctx context.Context, op func(ctx context.Context) error, fallback func(ctx context.Context, cause error) error) error {
	b.mu.Lock()
	if b.st == Open {
		if time.Now().Before(b.nextProbe) {
			b.mu.Unlock()
			if fallback != nil {
				return fallback(ctx, ErrOpen)
			}
			return ErrOpen
		}
		b.setStateLocked(HalfOpen)
	}
	b.mu.Unlock()

	if b.cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.OperationTimeout)
		defer cancel()
	}

	err := op(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.consecFail++
		if b.st == HalfOpen || b.consecFail >= b.cfg.MaxConsecFailures {
			b.setStateLocked(Open)
			b.nextProbe = time.Now().Add(b.cfg.OpenFor)
		}
		if fallback != nil {
			return fallback(ctx, err)
		}
		return err
	}

	b.consecFail = 0
	if b.st == HalfOpen {
		b.setStateLocked(Closed)
	}
	return nil
}
