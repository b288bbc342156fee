package server

import "time"

// executeResponse is returned on successful order intake.
type executeResponse struct {
	OrderID      string `json:"orderId"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	WebsocketURL string `json:"websocketUrl"`
}

// errorResponse is the envelope for every non-2xx body.
type errorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// greetingFrame confirms a WebSocket subscription.
type greetingFrame struct {
	OrderID   string    `json:"orderId"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// clientFrame is what a subscriber may send upstream.
type clientFrame struct {
	Type string `json:"type"`
}

// pongFrame answers a keep-alive ping.
type pongFrame struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}
