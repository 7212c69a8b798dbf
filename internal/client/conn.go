// Package client is the sync core: it holds a websocket connection to
// the bingo store, mirrors the store's collections into local caches,
// and exposes the remote calls that mutate them. All state a consumer
// renders comes out of the caches; calls never mutate locally.
package client

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/deployment-bingo/bingosync/internal/correlate"
	"github.com/deployment-bingo/bingosync/internal/dependencies/clock"
	"github.com/deployment-bingo/bingosync/internal/model"
	"github.com/deployment-bingo/bingosync/internal/protocol"
)

// ErrClosed is returned for operations on a closed connection, and
// delivered to completion callbacks still pending when the connection
// drops.
var ErrClosed = errors.New("connection closed")

// Conn is one live connection to the store. A single read loop applies
// incoming transactions to the caches in delivery order; everything
// read out of the caches is consistent with that order.
type Conn struct {
	ws         *websocket.Conn
	caches     *Caches
	correlator *correlate.Correlator
	tokens     TokenStore
	clock      clock.Clock
	logger     *slog.Logger

	// Serializes websocket writes; reads stay on the read loop.
	writeMu sync.Mutex

	mu          sync.Mutex
	identity    model.Identity
	connected   bool
	completions map[string]func(error)

	closeOnce sync.Once
	closed    chan struct{}

	removeObserve func()
	onDisconnect  func(error)
}

// Identity returns the identity currently assigned to the connection.
// It changes when a sign-in succeeds.
func (c *Conn) Identity() model.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Connected reports whether the connection is live.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Caches returns the connection's collection mirrors.
func (c *Conn) Caches() *Caches {
	return c.caches
}

// Correlator exposes the identity reassignment watcher.
func (c *Conn) Correlator() *correlate.Correlator {
	return c.correlator
}

// Done is closed when the connection has shut down.
func (c *Conn) Done() <-chan struct{} {
	return c.closed
}

// Subscribe replaces the connection's active query set.
func (c *Conn) Subscribe(queries ...protocol.Query) error {
	return c.writeFrame(protocol.Frame{
		Type:      protocol.FrameSubscribe,
		Subscribe: &protocol.SubscribeFrame{Queries: queries},
	})
}

// SubscribeAll subscribes to every shared collection plus the boards
// owned by the connection's current identity. It is re-issued whenever
// the identity changes, because the board query is identity-scoped.
func (c *Conn) SubscribeAll() error {
	return c.Subscribe(
		protocol.QueryAll(protocol.CollectionPlayer),
		protocol.QueryAll(protocol.CollectionGameSession),
		protocol.QueryAll(protocol.CollectionPlayerSession),
		protocol.QueryAll(protocol.CollectionBingoItem),
		protocol.QueryAll(protocol.CollectionPlayerItemSubject),
		protocol.QueryBoardsFor(c.Identity()),
	)
}

// CallOption configures one remote call.
type CallOption func(*callSettings)

type callSettings struct {
	done func(error)
}

// OnComplete registers a callback fired when the store reports the
// call's outcome. Calls without it are fire-and-forget.
func OnComplete(fn func(error)) CallOption {
	return func(s *callSettings) {
		s.done = fn
	}
}

// SetName sets the player's display name.
func (c *Conn) SetName(name string, opts ...CallOption) error {
	return c.call(protocol.CallSetName, opts, name)
}

// StartNewGame creates a session and joins it. The password may be
// empty for an open game.
func (c *Conn) StartNewGame(name, password string, opts ...CallOption) error {
	return c.call(protocol.CallStartNewGame, opts, name, password)
}

// JoinGame joins an existing session.
func (c *Conn) JoinGame(sessionID uint32, password string, opts ...CallOption) error {
	return c.call(protocol.CallJoinGame, opts, sessionID, password)
}

// SubmitNewBingoItem adds an item to the shared pool, optionally
// tagging the players it is about.
func (c *Conn) SubmitNewBingoItem(body string, subjects []model.Identity, opts ...CallOption) error {
	return c.call(protocol.CallSubmitNewBingoItem, opts, body, subjects)
}

// DeleteBingoItem removes an item from the pool.
func (c *Conn) DeleteBingoItem(itemID uint32, opts ...CallOption) error {
	return c.call(protocol.CallDeleteBingoItem, opts, itemID)
}

// CastCheckOffVote votes to check an item off. The result surfaces only
// as a later session change through the event stream; there is no
// optimistic local mutation.
func (c *Conn) CastCheckOffVote(sessionID, itemID uint32, opts ...CallOption) error {
	return c.call(protocol.CallCastCheckOffVote, opts, sessionID, itemID)
}

// UsePlayerInvite consumes an invite token.
func (c *Conn) UsePlayerInvite(token string, opts ...CallOption) error {
	return c.call(protocol.CallUsePlayerInvite, opts, token)
}

// CreatePlayer registers a named account.
func (c *Conn) CreatePlayer(name, password string, opts ...CallOption) error {
	return c.call(protocol.CallCreatePlayer, opts, name, password)
}

// SignIn authenticates as a named account. Most callers want SignInAs,
// which also watches for the resulting identity reassignment.
func (c *Conn) SignIn(name, password string, opts ...CallOption) error {
	return c.call(protocol.CallSignIn, opts, name, password)
}

// SignInAs signs in and reports the reassigned identity through done.
// The watch is armed before the call is issued so the reassignment
// event cannot race past it. done receives correlate.ErrExpired if no
// reassignment arrives within the timeout.
func (c *Conn) SignInAs(name, password string, timeout time.Duration, done func(model.Identity, error)) error {
	token, err := c.correlator.Arm(timeout,
		func(id model.Identity) {
			c.adoptCorrelatedIdentity(id)
			done(id, nil)
		},
		func(correlate.Token) {
			done(model.Identity{}, correlate.ErrExpired)
		},
	)
	if err != nil {
		return err
	}

	err = c.SignIn(name, password, OnComplete(func(callErr error) {
		if callErr == nil {
			return
		}
		// The call failed, so no reassignment is coming. Only report
		// the failure if the watch hadn't already resolved.
		if cancelErr := c.correlator.Cancel(token.ID); cancelErr == nil {
			done(model.Identity{}, callErr)
		}
	}))
	if err != nil {
		_ = c.correlator.Cancel(token.ID)
		return err
	}
	return nil
}

// Signup runs the invite flow end to end: consume the invite, create
// the account, sign in as it. Each step fires only after the store
// confirms the previous one.
func (c *Conn) Signup(invite, name, password string, timeout time.Duration, done func(model.Identity, error)) error {
	return c.UsePlayerInvite(invite, OnComplete(func(err error) {
		if err != nil {
			done(model.Identity{}, err)
			return
		}
		err = c.CreatePlayer(name, password, OnComplete(func(err error) {
			if err != nil {
				done(model.Identity{}, err)
				return
			}
			if err := c.SignInAs(name, password, timeout, done); err != nil {
				done(model.Identity{}, err)
			}
		}))
		if err != nil {
			done(model.Identity{}, err)
		}
	}))
}

// Close tears the connection down: the read loop stops, cache
// listeners are deregistered, and pending completions fail with
// ErrClosed.
func (c *Conn) Close() error {
	c.teardown(nil)
	return nil
}

func (c *Conn) call(name string, opts []CallOption, args ...any) error {
	var settings callSettings
	for _, opt := range opts {
		opt(&settings)
	}

	encoded, err := protocol.EncodeArgs(args...)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()

	if settings.done != nil {
		c.mu.Lock()
		if !c.connected {
			c.mu.Unlock()
			return ErrClosed
		}
		c.completions[requestID] = settings.done
		c.mu.Unlock()
	}

	err = c.writeFrame(protocol.Frame{
		Type: protocol.FrameCall,
		Call: &protocol.CallFrame{RequestID: requestID, Name: name, Args: encoded},
	})
	if err != nil {
		if settings.done != nil {
			c.mu.Lock()
			_, pending := c.completions[requestID]
			delete(c.completions, requestID)
			c.mu.Unlock()
			if !pending {
				// Teardown raced the write and already failed the
				// completion with ErrClosed; the outcome is reported
				// through exactly one channel.
				return nil
			}
		}
		return err
	}
	return nil
}

func (c *Conn) writeFrame(frame protocol.Frame) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(frame)
}

// readLoop is the only reader: it applies transactions to the caches
// in delivery order, resolves call completions, and adopts identity
// reassignments.
func (c *Conn) readLoop() {
	for {
		var frame protocol.Frame
		if err := c.ws.ReadJSON(&frame); err != nil {
			select {
			case <-c.closed:
				// Close() already ran; the read error is just fallout.
			default:
				c.teardown(err)
			}
			return
		}

		switch frame.Type {
		case protocol.FrameTx:
			if frame.Tx == nil {
				continue
			}
			for _, change := range frame.Tx.Changes {
				if err := c.caches.Apply(change); err != nil {
					c.logger.Warn("dropping undecodable change",
						slog.String("collection", string(change.Collection)),
						slog.String("error", err.Error()))
				}
			}
			// No timers anywhere in the loop; expiry rides on traffic.
			c.correlator.Expire()

		case protocol.FrameCallResult:
			if frame.CallResult == nil {
				continue
			}
			c.resolveCall(frame.CallResult)

		case protocol.FrameIdentity:
			if frame.Identity == nil {
				continue
			}
			c.adoptIdentity(frame.Identity)

		default:
			c.logger.Warn("unexpected frame type", slog.String("type", string(frame.Type)))
		}
	}
}

func (c *Conn) resolveCall(result *protocol.CallResultFrame) {
	c.mu.Lock()
	done, ok := c.completions[result.RequestID]
	if ok {
		delete(c.completions, result.RequestID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	if result.OK {
		done(nil)
	} else {
		done(errors.New(result.Error))
	}
}

// adoptIdentity handles an identity frame arriving mid-connection
// after a successful sign-in: it swaps the connection identity,
// persists the new reconnect token, and re-issues the identity-scoped
// subscriptions.
func (c *Conn) adoptIdentity(frame *protocol.IdentityFrame) {
	c.mu.Lock()
	old := c.identity
	c.identity = frame.Identity
	c.mu.Unlock()

	if err := c.tokens.Save(frame.Token); err != nil {
		c.logger.Warn("could not persist reconnect token", slog.String("error", err.Error()))
	}
	c.logger.Info("identity changed",
		slog.String("old", old.Short()),
		slog.String("new", frame.Identity.Short()))

	if err := c.SubscribeAll(); err != nil {
		c.logger.Warn("resubscribe after identity change failed", slog.String("error", err.Error()))
	}
}

// adoptCorrelatedIdentity applies a reassignment observed through the
// player stream. The store usually also sends an identity frame, which
// makes this a no-op; the stream observation is what the timeout is
// anchored to.
func (c *Conn) adoptCorrelatedIdentity(id model.Identity) {
	c.mu.Lock()
	same := c.identity == id
	c.identity = id
	c.mu.Unlock()
	if same {
		return
	}
	if err := c.SubscribeAll(); err != nil {
		c.logger.Warn("resubscribe after reassignment failed", slog.String("error", err.Error()))
	}
}

func (c *Conn) teardown(cause error) {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.removeObserve != nil {
			c.removeObserve()
		}
		_ = c.ws.Close()

		c.mu.Lock()
		c.connected = false
		pending := c.completions
		c.completions = make(map[string]func(error))
		c.mu.Unlock()

		for _, done := range pending {
			done(ErrClosed)
		}

		if cause != nil {
			c.logger.Info("disconnected", slog.String("error", cause.Error()))
		} else {
			c.logger.Info("connection closed")
		}
		if c.onDisconnect != nil {
			c.onDisconnect(cause)
		}
	})
}
