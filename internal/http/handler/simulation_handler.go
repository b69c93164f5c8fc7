package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/your-org/wealthpath/internal/protocol"
)

// SimulationHandler upgrades clients to the WebSocket simulation
// protocol: run-chunk and optimize requests in, throttled progress and
// completion messages out.
type SimulationHandler struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewSimulationHandler creates a handler logging through the given logger.
func NewSimulationHandler(logger *zap.Logger) *SimulationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulationHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		logger: logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *SimulationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.logger.Info("simulation client connected", zap.String("remote", r.RemoteAddr))
	protocol.NewSession(conn, h.logger).Serve(r.Context())
}
