package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"dexflow/internal/domain"
	"dexflow/internal/infra"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS policy is enforced by the outer middleware
		return true
	},
}

// handleExecuteOrder validates the request, creates a pending order and
// schedules it. Execution is asynchronous: the response only confirms
// submission, outcomes arrive over the status stream.
func (s *Server) handleExecuteOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Validation failed",
			Details: []string{"request body must be valid JSON"},
		})
		return
	}

	if details := req.Validate(); len(details) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Validation failed",
			Details: details,
		})
		return
	}

	order := domain.NewOrder(&req)

	if err := s.store.SaveOrder(order); err != nil {
		slog.Error("order create failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Internal server error",
			Message: "failed to persist order",
		})
		return
	}
	if err := s.cache.Set(order.ID, order); err != nil {
		slog.Warn("active cache write failed", slog.String("order_id", order.ID), slog.Any("error", err))
	}

	if err := s.queue.Enqueue(order.ID); err != nil {
		slog.Error("enqueue failed", slog.String("order_id", order.ID), slog.Any("error", err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error:   "Service unavailable",
			Message: "order accepted but scheduling is shut down",
		})
		return
	}

	infra.GlobalMetrics.RecordSubmission()
	slog.Info("order accepted",
		slog.String("order_id", order.ID),
		slog.String("type", string(order.Type)),
		slog.String("pair", order.TokenIn+"/"+order.TokenOut),
	)

	writeJSON(w, http.StatusCreated, executeResponse{
		OrderID:      order.ID,
		Status:       string(order.Status),
		Message:      "Order created successfully. Connect via WebSocket for status updates.",
		WebsocketURL: fmt.Sprintf("/api/orders/%s/ws", order.ID),
	})
}

// handleGetOrder returns the durable record for an order.
func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	// Fast path for in-flight orders.
	if o, ok := s.cache.Get(orderID); ok {
		writeJSON(w, http.StatusOK, o)
		return
	}

	o, err := s.store.GetOrder(orderID)
	if err != nil {
		slog.Error("order lookup failed", slog.String("order_id", orderID), slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}
	if o == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Order not found"})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

// handleOrderSocket upgrades the connection, registers it as the order's
// subscriber and serves keep-alive pings until the peer goes away.
func (s *Server) handleOrderSocket(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.String("order_id", orderID), slog.Any("error", err))
		return
	}

	s.hub.Register(orderID, conn)

	if err := s.hub.Send(orderID, greetingFrame{
		OrderID:   orderID,
		Status:    "connected",
		Message:   "WebSocket connection established",
		Timestamp: time.Now(),
	}); err != nil {
		slog.Warn("greeting send failed", slog.String("order_id", orderID), slog.Any("error", err))
	}

	go s.readLoop(orderID, conn)
}

func (s *Server) readLoop(orderID string, conn *websocket.Conn) {
	defer func() {
		s.hub.Unregister(orderID, conn)
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", slog.String("order_id", orderID), slog.Any("error", err))
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			slog.Debug("unparseable client frame", slog.String("order_id", orderID))
			continue
		}

		if frame.Type == "ping" {
			if err := s.hub.Send(orderID, pongFrame{Type: "pong", Timestamp: time.Now()}); err != nil {
				return
			}
		}
	}
}
