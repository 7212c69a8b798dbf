package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/deployment-bingo/bingosync/internal/correlate"
	"github.com/deployment-bingo/bingosync/internal/dependencies/clock"
	"github.com/deployment-bingo/bingosync/internal/model"
	"github.com/deployment-bingo/bingosync/internal/protocol"
)

// Builder assembles a connection. The zero URI is invalid; everything
// else has a usable default.
type Builder struct {
	uri            string
	tokens         TokenStore
	clock          clock.Clock
	logger         *slog.Logger
	dialer         *websocket.Dialer
	onConnect      func(*Conn)
	onDisconnect   func(error)
	onConnectError func(error)
}

// NewBuilder creates a builder for the store at the given websocket
// URI, e.g. "ws://localhost:8080/sync".
func NewBuilder(uri string) *Builder {
	return &Builder{
		uri:    uri,
		tokens: NewMemoryTokenStore(),
		clock:  clock.New(),
		logger: slog.Default(),
		dialer: websocket.DefaultDialer,
	}
}

// WithTokenStore sets where the reconnect token is persisted.
func (b *Builder) WithTokenStore(store TokenStore) *Builder {
	b.tokens = store
	return b
}

// WithClock overrides the clock, for tests.
func (b *Builder) WithClock(clk clock.Clock) *Builder {
	b.clock = clk
	return b
}

// WithLogger sets the connection's logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// OnConnect registers a callback fired once the connection is live and
// subscribed.
func (b *Builder) OnConnect(fn func(*Conn)) *Builder {
	b.onConnect = fn
	return b
}

// OnDisconnect registers a callback fired when the connection shuts
// down. The error is nil for a local Close.
func (b *Builder) OnDisconnect(fn func(error)) *Builder {
	b.onDisconnect = fn
	return b
}

// OnConnectError registers a callback fired when the initial dial or
// handshake fails.
func (b *Builder) OnConnectError(fn func(error)) *Builder {
	b.onConnectError = fn
	return b
}

// Connect dials the store, performs the identity handshake, subscribes
// to the shared collections, and starts the read loop.
func (b *Builder) Connect(ctx context.Context) (*Conn, error) {
	conn, err := b.connect(ctx)
	if err != nil {
		if b.onConnectError != nil {
			b.onConnectError(err)
		}
		return nil, err
	}
	if b.onConnect != nil {
		b.onConnect(conn)
	}
	return conn, nil
}

func (b *Builder) connect(ctx context.Context) (*Conn, error) {
	token, err := b.tokens.Load()
	if err != nil {
		return nil, fmt.Errorf("loading reconnect token: %w", err)
	}

	u, err := url.Parse(b.uri)
	if err != nil {
		return nil, fmt.Errorf("parsing uri: %w", err)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	ws, _, err := b.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", b.uri, err)
	}

	// The store speaks first: one identity frame before anything else.
	var frame protocol.Frame
	if err := ws.ReadJSON(&frame); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("reading identity frame: %w", err)
	}
	if frame.Type != protocol.FrameIdentity || frame.Identity == nil {
		_ = ws.Close()
		return nil, fmt.Errorf("expected identity frame, got %q", frame.Type)
	}

	logger := b.logger.With(slog.String("component", "conn"))

	if err := b.tokens.Save(frame.Identity.Token); err != nil {
		logger.Warn("could not persist reconnect token", slog.String("error", err.Error()))
	}

	conn := &Conn{
		ws:           ws,
		caches:       NewCaches(),
		correlator:   correlate.New(b.clock, b.logger),
		tokens:       b.tokens,
		clock:        b.clock,
		logger:       logger,
		identity:     frame.Identity.Identity,
		connected:    true,
		completions:  make(map[string]func(error)),
		closed:       make(chan struct{}),
		onDisconnect: b.onDisconnect,
	}

	// The reassignment watcher rides the player cache's update stream.
	conn.removeObserve = conn.caches.Players.OnUpdate(func(oldRow, newRow model.Player) {
		conn.correlator.Observe(oldRow, newRow)
	})

	if err := conn.SubscribeAll(); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("subscribing: %w", err)
	}

	go conn.readLoop()

	logger.Info("connected",
		slog.String("identity", conn.identity.Short()),
		slog.String("uri", b.uri))
	return conn, nil
}
