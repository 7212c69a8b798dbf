package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deployment-bingo/bingosync/internal/dependencies/clock"
	"github.com/deployment-bingo/bingosync/internal/middleware"
)

// RouterConfig holds the router's collaborators.
type RouterConfig struct {
	Logger   *slog.Logger
	Service  *Service
	Hub      *Hub
	Clock    clock.Clock
	Metrics  *Metrics
	Gatherer prometheus.Gatherer
}

// NewRouter wires the store's HTTP surface: the websocket sync
// endpoint, the admin invite endpoint, health, and metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	ws := newWSHandler(cfg.Service, cfg.Hub, cfg.Clock, cfg.Metrics, cfg.Logger)
	admin := &adminHandler{service: cfg.Service, logger: cfg.Logger}

	r.HandleFunc("/sync", ws.serve).Methods(http.MethodGet)
	r.HandleFunc("/admin/invites", admin.createInvite).Methods(http.MethodPost)
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// adminHandler serves the operator-only surface. Invites gate account
// creation, so minting them stays off the websocket call set.
type adminHandler struct {
	service *Service
	logger  *slog.Logger
}

func (h *adminHandler) createInvite(w http.ResponseWriter, r *http.Request) {
	invite, err := h.service.CreateInvite(r.Context())
	if err != nil {
		h.logger.Error("create invite failed", slog.String("error", err.Error()))
		http.Error(w, "could not create invite", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"token": invite.Token})
}
