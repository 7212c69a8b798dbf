package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/deployment-bingo/bingosync/internal/dependencies/clock"
	"github.com/deployment-bingo/bingosync/internal/model"
	"github.com/deployment-bingo/bingosync/internal/protocol"
)

// wsHandler owns the websocket endpoint: the identity handshake, the
// per-connection writer, and call dispatch.
type wsHandler struct {
	service  *Service
	hub      *Hub
	clock    clock.Clock
	metrics  *Metrics
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func newWSHandler(service *Service, hub *Hub, clock clock.Clock, metrics *Metrics, logger *slog.Logger) *wsHandler {
	return &wsHandler{
		service: service,
		hub:     hub,
		clock:   clock,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The store fronts trusted clients; origin policy is the
			// deployment's concern.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *wsHandler) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	ctx := r.Context()

	identity, token, changes, err := h.service.Connect(ctx, r.URL.Query().Get("token"))
	if err != nil {
		h.logger.Error("connect failed", slog.String("error", err.Error()))
		_ = conn.Close()
		return
	}

	client := NewClient(identity, h.clock.Now())
	h.hub.Register(client)

	go h.writePump(conn, client)

	client.deliver(protocol.Frame{
		Type:     protocol.FrameIdentity,
		Identity: &protocol.IdentityFrame{Identity: identity, Token: token},
	})
	h.hub.Broadcast(changes)

	h.readPump(ctx, conn, client, identity)
}

// writePump drains the client's frame queue onto the websocket. It is
// the connection's only writer.
func (h *wsHandler) writePump(conn *websocket.Conn, client *Client) {
	defer func() {
		_ = conn.Close()
	}()
	for {
		select {
		case frame := <-client.Frames():
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		case <-client.Done():
			return
		}
	}
}

// readPump reads frames until the connection drops, dispatching
// subscribes to the hub and calls to the service.
func (h *wsHandler) readPump(ctx context.Context, conn *websocket.Conn, client *Client, identity model.Identity) {
	defer func() {
		h.hub.Unregister(client)
		changes, err := h.service.Disconnect(context.WithoutCancel(ctx), identity)
		if err != nil && !errors.Is(err, model.ErrPlayerNotFound) {
			h.logger.Error("disconnect failed", slog.String("error", err.Error()))
		}
		h.hub.Broadcast(changes)
	}()

	for {
		var frame protocol.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read failed",
					slog.String("identity", identity.Short()),
					slog.String("error", err.Error()))
			}
			return
		}

		switch frame.Type {
		case protocol.FrameSubscribe:
			if frame.Subscribe == nil {
				continue
			}
			// The query swap and the snapshot read both happen on the
			// hub's run loop, ordered against broadcasts: the snapshot
			// can repeat a change the client already has, but cannot
			// resurrect a row deleted before it was read.
			queries := frame.Subscribe.Queries
			h.hub.SubscribeAndSeed(client, queries, func() ([]protocol.RowChange, error) {
				return h.service.Snapshot(context.WithoutCancel(ctx), queries)
			})

		case protocol.FrameCall:
			if frame.Call == nil {
				continue
			}
			identity = h.handleCall(ctx, client, identity, frame.Call)

		default:
			h.logger.Warn("unexpected frame type",
				slog.String("identity", identity.Short()),
				slog.String("type", string(frame.Type)))
		}
	}
}

// handleCall runs one remote call, reports its result to the caller,
// and broadcasts any row changes. It returns the connection's identity,
// which changes when a sign_in succeeds.
func (h *wsHandler) handleCall(ctx context.Context, client *Client, identity model.Identity, call *protocol.CallFrame) model.Identity {
	newIdentity, newToken, changes, err := h.dispatch(ctx, identity, call)
	h.metrics.observeCall(call.Name, err)

	result := protocol.CallResultFrame{RequestID: call.RequestID, OK: err == nil}
	if err != nil {
		result.Error = err.Error()
		h.logger.Info("call failed",
			slog.String("call", call.Name),
			slog.String("identity", identity.Short()),
			slog.String("error", err.Error()))
	}
	client.deliver(protocol.Frame{Type: protocol.FrameCallResult, CallResult: &result})

	if err == nil && newIdentity != identity {
		client.deliver(protocol.Frame{
			Type:     protocol.FrameIdentity,
			Identity: &protocol.IdentityFrame{Identity: newIdentity, Token: newToken},
		})
		identity = newIdentity
	}

	h.hub.Broadcast(changes)
	return identity
}

func (h *wsHandler) dispatch(ctx context.Context, identity model.Identity, call *protocol.CallFrame) (model.Identity, string, []protocol.RowChange, error) {
	switch call.Name {
	case protocol.CallSetName:
		var name string
		if err := protocol.DecodeArgs(call.Args, &name); err != nil {
			return identity, "", nil, err
		}
		changes, err := h.service.SetName(ctx, identity, name)
		return identity, "", changes, err

	case protocol.CallStartNewGame:
		var name, password string
		if err := protocol.DecodeArgs(call.Args, &name, &password); err != nil {
			return identity, "", nil, err
		}
		changes, err := h.service.StartNewGame(ctx, identity, name, password)
		return identity, "", changes, err

	case protocol.CallJoinGame:
		var sessionID uint32
		var password string
		if err := protocol.DecodeArgs(call.Args, &sessionID, &password); err != nil {
			return identity, "", nil, err
		}
		changes, err := h.service.JoinGame(ctx, identity, sessionID, password)
		return identity, "", changes, err

	case protocol.CallSubmitNewBingoItem:
		var body string
		var subjects []model.Identity
		if err := protocol.DecodeArgs(call.Args, &body, &subjects); err != nil {
			return identity, "", nil, err
		}
		changes, err := h.service.SubmitNewBingoItem(ctx, body, subjects)
		return identity, "", changes, err

	case protocol.CallDeleteBingoItem:
		var itemID uint32
		if err := protocol.DecodeArgs(call.Args, &itemID); err != nil {
			return identity, "", nil, err
		}
		changes, err := h.service.DeleteBingoItem(ctx, itemID)
		return identity, "", changes, err

	case protocol.CallCastCheckOffVote:
		var sessionID, itemID uint32
		if err := protocol.DecodeArgs(call.Args, &sessionID, &itemID); err != nil {
			return identity, "", nil, err
		}
		changes, err := h.service.CastCheckOffVote(ctx, identity, sessionID, itemID)
		return identity, "", changes, err

	case protocol.CallUsePlayerInvite:
		var token string
		if err := protocol.DecodeArgs(call.Args, &token); err != nil {
			return identity, "", nil, err
		}
		changes, err := h.service.UsePlayerInvite(ctx, token)
		return identity, "", changes, err

	case protocol.CallCreatePlayer:
		var name, password string
		if err := protocol.DecodeArgs(call.Args, &name, &password); err != nil {
			return identity, "", nil, err
		}
		changes, err := h.service.CreatePlayer(ctx, name, password)
		return identity, "", changes, err

	case protocol.CallSignIn:
		var name, password string
		if err := protocol.DecodeArgs(call.Args, &name, &password); err != nil {
			return identity, "", nil, err
		}
		return h.service.SignIn(ctx, identity, name, password)

	default:
		return identity, "", nil, errors.New("unknown call: " + call.Name)
	}
}
