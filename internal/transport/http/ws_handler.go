package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"hunt-service/internal/app"
)

const wsWriteTimeout = 10 * time.Second

// WSHandler streams a hunt's leaderboard over a websocket.
type WSHandler struct {
	service  *app.HuntService
	logger   *slog.Logger
	metrics  *Metrics
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.HuntService, logger *slog.Logger, metrics *Metrics) *WSHandler {
	return &WSHandler{
		service: service,
		logger:  logger,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS checks leaderboard access before upgrading, so a hidden
// leaderboard or an unknown hunt is answered with a plain HTTP error.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ref, ok := huntRef(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "hunt not found", Kind: "not_found"})
		return
	}
	updates, cancel, err := h.service.SubscribeLeaderboard(r.Context(), viewerFrom(r.Context()), ref)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	// Clear deadlines inherited from the HTTP server's timeouts.
	_ = conn.SetReadDeadline(time.Time{})

	h.metrics.subscribers.Inc()
	defer h.metrics.subscribers.Dec()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches the connection for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", "hunt_id", ref.ID, "err", err)
				// Unblock the reader so the handler can unwind.
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var reply outboundMessage[any]
		switch inbound.Type {
		case "ping":
			reply = outboundMessage[any]{Type: "pong", Payload: struct{}{}}
		default:
			reply = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
		select {
		case send <- reply:
		case <-writerDone:
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
