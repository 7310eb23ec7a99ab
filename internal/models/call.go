package models

import "encoding/json"

// Call signalling payloads. SDP offers/answers and ICE candidates are
// relayed as raw JSON and never inspected.

type CallOffer struct {
	ChatID     string          `json:"chatId"`
	Offer      json.RawMessage `json:"offer"`
	Caller     string          `json:"caller"`
	CallerName string          `json:"callerName"`
}

type CallAnswer struct {
	ChatID string          `json:"chatId"`
	Answer json.RawMessage `json:"answer"`
	Caller string          `json:"caller,omitempty"`
}

type CallCandidate struct {
	ChatID    string          `json:"chatId"`
	Candidate json.RawMessage `json:"candidate"`
}

type CallHangUp struct {
	ChatID string `json:"chatId"`
}
