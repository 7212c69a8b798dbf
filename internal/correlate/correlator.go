// Package correlate bridges the gap between a sign-in call issued under
// an anonymous identity and the authenticated identity the store assigns
// afterwards. The store has no request/response channel for this; its
// only signal is a player row transitioning offline to online under the
// new key. The correlator watches the player cache's update stream for
// that transition while a sign-in is pending and emits the new identity
// exactly once.
package correlate

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deployment-bingo/bingosync/internal/dependencies/clock"
	"github.com/deployment-bingo/bingosync/internal/model"
)

// Errors
var (
	ErrAlreadyPending = errors.New("an identity reassignment is already pending")
	ErrNotPending     = errors.New("no identity reassignment is pending")
	ErrExpired        = errors.New("identity reassignment timed out")
)

// State of the correlator.
type State int

const (
	Idle State = iota
	AwaitingReassignment
)

// DefaultTimeout bounds how long a pending reassignment stays armed. A
// sign-in whose transition never arrives surfaces as ErrExpired instead
// of the watch silently adopting whatever transition comes next.
const DefaultTimeout = 30 * time.Second

// Token identifies one pending reassignment.
type Token struct {
	ID       uuid.UUID
	Deadline time.Time
}

type pending struct {
	token      Token
	reassigned func(model.Identity)
	expired    func(Token)
}

// Correlator is the one-shot identity reassignment watcher. Observe is
// intended to be registered as an update listener on the player cache.
type Correlator struct {
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	pending *pending
}

// New creates a Correlator.
func New(clk clock.Clock, logger *slog.Logger) *Correlator {
	return &Correlator{
		clock:  clk,
		logger: logger.With(slog.String("component", "correlator")),
	}
}

// Arm marks a reassignment as pending. reassigned fires exactly once,
// with the new identity, on the first matching transition before the
// deadline; expired fires instead if the transition arrives too late or
// Expire is called past the deadline. Arming while already pending is an
// error: the flow is strictly one sign-in at a time.
func (c *Correlator) Arm(timeout time.Duration, reassigned func(model.Identity), expired func(Token)) (Token, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		return Token{}, ErrAlreadyPending
	}

	token := Token{
		ID:       uuid.New(),
		Deadline: c.clock.Now().Add(timeout),
	}
	c.pending = &pending{token: token, reassigned: reassigned, expired: expired}
	c.logger.Debug("armed identity reassignment watch",
		slog.String("correlation_id", token.ID.String()),
		slog.Time("deadline", token.Deadline))
	return token, nil
}

// Observe inspects one player update event. It consumes the pending
// token on the first offline-to-online transition and reports whether a
// reassignment was resolved. Transitions observed while idle, and any
// transition after the first, are ignored.
func (c *Correlator) Observe(oldRow, newRow model.Player) bool {
	if oldRow.Online || !newRow.Online {
		return false
	}

	c.mu.Lock()
	p := c.pending
	if p == nil {
		c.mu.Unlock()
		return false
	}
	c.pending = nil
	c.mu.Unlock()

	if c.clock.Now().After(p.token.Deadline) {
		c.logger.Warn("identity reassignment arrived after deadline",
			slog.String("correlation_id", p.token.ID.String()))
		if p.expired != nil {
			p.expired(p.token)
		}
		return false
	}

	c.logger.Info("identity reassigned",
		slog.String("correlation_id", p.token.ID.String()),
		slog.String("identity", newRow.Identity.Hex()))
	p.reassigned(newRow.Identity)
	return true
}

// Expire drops the pending token if its deadline has passed, firing the
// expired callback. The event loop has no timers of its own, so callers
// invoke this opportunistically (the client does it on every applied
// transaction).
func (c *Correlator) Expire() bool {
	c.mu.Lock()
	p := c.pending
	if p == nil || !c.clock.Now().After(p.token.Deadline) {
		c.mu.Unlock()
		return false
	}
	c.pending = nil
	c.mu.Unlock()

	c.logger.Warn("identity reassignment timed out",
		slog.String("correlation_id", p.token.ID.String()))
	if p.expired != nil {
		p.expired(p.token)
	}
	return true
}

// Cancel drops the pending token with the given id without firing any
// callback. Cancelling a token that is no longer pending is an error.
func (c *Correlator) Cancel(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil || c.pending.token.ID != id {
		return ErrNotPending
	}
	c.pending = nil
	return nil
}

// State returns the current protocol state.
func (c *Correlator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		return AwaitingReassignment
	}
	return Idle
}
