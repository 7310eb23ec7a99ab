package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEncodeKeysByChat(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg, err := encode(Event{
		Type:      MessageEdited,
		ChatID:    "c1",
		MessageID: "m1",
		At:        at,
		Payload:   map[string]string{"content": "x"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(msg.Key) != "c1" || !msg.Time.Equal(at) {
		t.Fatalf("key = %q time = %v", msg.Key, msg.Time)
	}

	var decoded struct {
		Type      string            `json:"type"`
		MessageID string            `json:"messageId"`
		Payload   map[string]string `json:"payload"`
	}
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if decoded.Type != MessageEdited || decoded.MessageID != "m1" || decoded.Payload["content"] != "x" {
		t.Fatalf("value = %s", msg.Value)
	}
}

func TestEncodeRejectsUnmarshalablePayload(t *testing.T) {
	if _, err := encode(Event{Type: MessageCreated, Payload: make(chan int)}); err == nil {
		t.Fatal("expected error")
	}
}
