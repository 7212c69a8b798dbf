package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/deployment-bingo/bingosync/internal/model"
	"github.com/deployment-bingo/bingosync/internal/protocol"
)

// Client is one connected subscriber. Frames queued on its send channel
// are written to the websocket by the connection's writer goroutine.
type Client struct {
	identity    model.Identity
	send        chan protocol.Frame
	closed      chan struct{}
	closeOnce   sync.Once
	connectedAt time.Time

	// Active query set. Only touched by the hub's run loop.
	queries []protocol.Query
}

// NewClient creates a subscriber for the given identity. The client has
// no queries until the connection sends its first subscribe frame.
func NewClient(identity model.Identity, connectedAt time.Time) *Client {
	return &Client{
		identity:    identity,
		send:        make(chan protocol.Frame, 256),
		closed:      make(chan struct{}),
		connectedAt: connectedAt,
	}
}

// Frames returns the channel the connection's writer drains.
func (c *Client) Frames() <-chan protocol.Frame {
	return c.send
}

// Done is closed when the client is unregistered.
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

// deliver queues a frame without blocking. It reports false if the
// client is closed or its buffer is full.
func (c *Client) deliver(frame protocol.Frame) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

type subscribeRequest struct {
	client  *Client
	queries []protocol.Query

	// load reads the seed snapshot for the new query set. It runs on the
	// hub's run loop, after every broadcast queued so far, so the seeded
	// rows can never be older than a change already sent to the client.
	// nil skips seeding.
	load func() ([]protocol.RowChange, error)
}

// Hub fans row changes out to connected clients, filtered per client by
// its active query set.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *Metrics

	register   chan *Client
	unregister chan *Client
	subscribe  chan subscribeRequest
	broadcast  chan []protocol.RowChange
	done       chan struct{}
}

// NewHub creates a hub. Call Run to start its event loop.
func NewHub(logger *slog.Logger, metrics *Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("component", "hub")),
		metrics:    metrics,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscribeRequest),
		broadcast:  make(chan []protocol.RowChange, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Info("hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.metrics.ConnectedClients.Set(float64(clientCount))
			h.logger.Info("client registered",
				slog.String("identity", client.identity.Short()),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
				clientCount := len(h.clients)
				h.mu.Unlock()
				h.metrics.ConnectedClients.Set(float64(clientCount))
				h.logger.Info("client unregistered",
					slog.String("identity", client.identity.Short()),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", clientCount))
			} else {
				h.mu.Unlock()
			}

		case req := <-h.subscribe:
			req.client.queries = req.queries
			h.logger.Info("client subscribed",
				slog.String("identity", req.client.identity.Short()),
				slog.Int("queries", len(req.queries)))
			if req.load != nil {
				h.seedClient(req)
			}

		case changes := <-h.broadcast:
			h.metrics.ChangesTotal.Add(float64(len(changes)))
			h.mu.RLock()
			for client := range h.clients {
				matched := filterChanges(client.queries, changes)
				if len(matched) == 0 {
					continue
				}
				frame := protocol.Frame{
					Type: protocol.FrameTx,
					Tx:   &protocol.TxFrame{Changes: matched},
				}
				if !client.deliver(frame) {
					h.metrics.DroppedFrames.Inc()
					h.logger.Warn("tx frame dropped - client buffer full",
						slog.String("identity", client.identity.Short()))
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				client.close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.metrics.ConnectedClients.Set(0)
			h.logger.Info("hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// seedClient delivers the snapshot for a freshly swapped query set.
// Running it on the run loop keeps a total order between the seed frame
// and broadcast frames: a row deleted before the snapshot was read can
// no longer reappear behind its own delete event.
func (h *Hub) seedClient(req subscribeRequest) {
	changes, err := req.load()
	if err != nil {
		h.logger.Error("seed snapshot failed",
			slog.String("identity", req.client.identity.Short()),
			slog.String("error", err.Error()))
		return
	}
	if len(changes) == 0 {
		return
	}
	frame := protocol.Frame{
		Type: protocol.FrameTx,
		Tx:   &protocol.TxFrame{Changes: changes},
	}
	if !req.client.deliver(frame) {
		h.metrics.DroppedFrames.Inc()
		h.logger.Warn("seed frame dropped - client buffer full",
			slog.String("identity", req.client.identity.Short()))
	}
}

// Subscribe replaces a client's active query set.
func (h *Hub) Subscribe(client *Client, queries []protocol.Query) {
	h.subscribe <- subscribeRequest{client: client, queries: queries}
}

// SubscribeAndSeed replaces a client's active query set and seeds it
// with the snapshot read by load.
func (h *Hub) SubscribeAndSeed(client *Client, queries []protocol.Query, load func() ([]protocol.RowChange, error)) {
	h.subscribe <- subscribeRequest{client: client, queries: queries, load: load}
}

// Broadcast fans a batch of row changes out to subscribed clients.
// Change order is preserved within the batch and across batches sent
// from a single goroutine.
func (h *Hub) Broadcast(changes []protocol.RowChange) {
	if len(changes) == 0 {
		return
	}
	select {
	case h.broadcast <- changes:
	default:
		h.logger.Warn("broadcast dropped - hub buffer full")
	}
}

// Close shuts down the hub
func (h *Hub) Close() {
	close(h.done)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// filterChanges keeps the changes matching at least one query,
// preserving their order.
func filterChanges(queries []protocol.Query, changes []protocol.RowChange) []protocol.RowChange {
	var matched []protocol.RowChange
	for _, change := range changes {
		for _, q := range queries {
			if q.Matches(change.Collection, change.Row) {
				matched = append(matched, change)
				break
			}
		}
	}
	return matched
}
