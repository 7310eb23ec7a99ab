package models

import "encoding/json"

// Frame is the envelope of every websocket message in both directions.
// Ack is set by clients that expect an acknowledgement and echoed on the
// "ack" reply.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   int64           `json:"ack,omitempty"`
}

// OutFrame is the outbound envelope.
type OutFrame struct {
	Event string      `json:"event"`
	Ack   int64       `json:"ack,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// AckResult is the body of an acknowledgement.
type AckResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
