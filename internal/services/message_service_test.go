package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"livechat/internal/events"
	"livechat/internal/models"
)

func TestSendFansOutToOnlineParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.online(t, "alice", "a1")
	f.online(t, "bob", "b1")

	msg, err := f.messages.Send(ctx, SendInput{
		ChatID: "c1", Sender: "alice", Content: " ct ", IV: "iv1", OriginConn: "a1",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.Content != "ct" || !msg.Delivered || msg.IsRead || msg.Edited {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.Sender != (models.Sender{ID: "alice", Username: "alice"}) {
		t.Fatalf("sender = %+v", msg.Sender)
	}

	received := f.emitter.byEvent(EventReceiveMessage)
	if len(received) != 1 || received[0].target != "b1" {
		t.Fatalf("receiveMessage = %+v, want one to b1", received)
	}
	if got := received[0].payload.(*models.Message); got.ID != msg.ID {
		t.Fatalf("receiveMessage carried %s, want %s", got.ID, msg.ID)
	}
	confirmed := f.emitter.byEvent(EventMessageSentConfirmation)
	if len(confirmed) != 1 || confirmed[0].target != "a1" {
		t.Fatalf("confirmation = %+v, want one to a1", confirmed)
	}

	chat, _ := f.db.GetChat(ctx, "c1")
	if chat.LastMessageID != msg.ID {
		t.Fatalf("last message = %q, want %q", chat.LastMessageID, msg.ID)
	}
	if got := f.events.types(); len(got) != 1 || got[0] != events.MessageCreated {
		t.Fatalf("published %v", got)
	}
}

func TestSendToOfflineRecipientIsStillPersisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.online(t, "alice", "a1")

	msg, err := f.messages.Send(ctx, SendInput{ChatID: "c1", Sender: "alice", Content: "x", IV: "i", OriginConn: "a1"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := len(f.emitter.byEvent(EventReceiveMessage)); n != 0 {
		t.Fatalf("receiveMessage emitted %d times, want 0", n)
	}
	if n := len(f.emitter.byEvent(EventMessageSentConfirmation)); n != 1 {
		t.Fatalf("confirmation emitted %d times, want 1", n)
	}
	if _, err := f.db.GetMessage(ctx, msg.ID); err != nil {
		t.Fatalf("message not persisted: %v", err)
	}
}

func TestSendRejects(t *testing.T) {
	tests := []struct {
		name string
		in   SendInput
		kind error
		msg  string
	}{
		{"missing chat", SendInput{Sender: "alice", Content: "x", IV: "i"}, ErrValidation, "Invalid message data"},
		{"missing sender", SendInput{ChatID: "c1", Content: "x", IV: "i"}, ErrValidation, "Invalid message data"},
		{"missing iv", SendInput{ChatID: "c1", Sender: "alice", Content: "x"}, ErrValidation, "Invalid message data"},
		{"blank content", SendInput{ChatID: "c1", Sender: "alice", Content: "   ", IV: "i"}, ErrValidation, "Message content cannot be empty"},
		{"unknown sender", SendInput{ChatID: "c1", Sender: "mallory", Content: "x", IV: "i"}, ErrNotFound, "Invalid sender"},
		{"unknown chat", SendInput{ChatID: "nope", Sender: "alice", Content: "x", IV: "i"}, ErrNotFound, "Chat not found"},
		{"not a member", SendInput{ChatID: "c1", Sender: "carol", Content: "x", IV: "i", RequireMembership: true}, ErrNotFound, "Chat not found or not authorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.online(t, "bob", "b1")

			_, err := f.messages.Send(context.Background(), tt.in)
			if !errors.Is(err, tt.kind) {
				t.Fatalf("err = %v, want kind %v", err, tt.kind)
			}
			if got := PublicMessage(err); got != tt.msg {
				t.Fatalf("message = %q, want %q", got, tt.msg)
			}
			if n := len(f.emitter.byEvent(EventReceiveMessage)); n != 0 {
				t.Fatalf("rejected send fanned out %d times", n)
			}
		})
	}
}

func TestSendFileDefaults(t *testing.T) {
	f := newFixture(t)

	msg, err := f.messages.Send(context.Background(), SendInput{ChatID: "c1", Sender: "alice", FileURL: "/uploads/a.png"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.Content != FilePlaceholder || msg.IV != UnencryptedIV || !msg.IsFile() {
		t.Fatalf("file message = %+v", msg)
	}
}

func TestSendFromAssistant(t *testing.T) {
	f := newFixture(t)
	f.online(t, "alice", "a1")
	f.online(t, "bob", "b1")

	msg, err := f.messages.Send(context.Background(), SendInput{ChatID: "c1", Sender: models.AISenderID, Content: "hi", IV: "i"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !msg.IsAI || msg.Sender.Username != models.AISenderName {
		t.Fatalf("assistant message = %+v", msg)
	}
	if n := len(f.emitter.byEvent(EventReceiveMessage)); n != 2 {
		t.Fatalf("receiveMessage emitted %d times, want both participants", n)
	}
}

func TestHistoryIsInvalidatedBySend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.messages.Send(ctx, SendInput{ChatID: "c1", Sender: "alice", Content: "one", IV: "i"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	first := decodeHistory(t, f, "bob")
	if len(first) != 1 {
		t.Fatalf("history has %d messages, want 1", len(first))
	}

	if _, err := f.messages.Send(ctx, SendInput{ChatID: "c1", Sender: "bob", Content: "two", IV: "i"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	second := decodeHistory(t, f, "alice")
	if len(second) != 2 {
		t.Fatalf("history has %d messages after send, want 2", len(second))
	}
}

func TestHistoryRequiresParticipant(t *testing.T) {
	f := newFixture(t)

	_, err := f.messages.History(context.Background(), "c1", "carol")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	_, err = f.messages.History(context.Background(), "missing", "alice")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestHistoryOfEmptyChatIsEmptyArray(t *testing.T) {
	f := newFixture(t)

	raw, err := f.messages.History(context.Background(), "c1", "alice")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if string(raw) != "[]" {
		t.Fatalf("history = %s, want []", raw)
	}
}

func TestStatusUpdatesBroadcastToRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg, err := f.messages.Send(ctx, SendInput{ChatID: "c1", Sender: "alice", Content: "x", IV: "i"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if _, err := f.messages.MarkDelivered(ctx, "c1", msg.ID); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	read, err := f.messages.MarkRead(ctx, "c1", msg.ID, "bob")
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if !read.IsRead {
		t.Fatal("message not marked read")
	}

	for _, event := range []string{EventMessageDelivered, EventMessageRead} {
		got := f.emitter.byEvent(event)
		if len(got) != 1 || got[0].kind != "room" || got[0].target != "c1" || got[0].except != "" {
			t.Fatalf("%s = %+v, want one room broadcast to c1", event, got)
		}
	}
}

func TestStatusUpdateOfMissingMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.messages.MarkDelivered(ctx, "c1", "ghost")
	if !errors.Is(err, ErrNotFound) || PublicMessage(err) != "Message not found" {
		t.Fatalf("MarkDelivered err = %v", err)
	}
	if _, err := f.messages.MarkRead(ctx, "c1", "ghost", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("MarkRead without user err = %v, want validation", err)
	}
	if n := len(f.emitter.byEvent(EventMessageDelivered)); n != 0 {
		t.Fatalf("broadcast %d times for missing message", n)
	}
}

func TestEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg, err := f.messages.Send(ctx, SendInput{ChatID: "c1", Sender: "alice", Content: "x", IV: "iv-1"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if _, err := f.messages.Edit(ctx, msg.ID, "  ", ""); PublicMessage(err) != "Invalid edit data" {
		t.Fatalf("blank edit err = %v", err)
	}
	if _, err := f.messages.Edit(ctx, "ghost", "y", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing edit err = %v", err)
	}
	if n := len(f.emitter.byEvent(EventMessageEdited)); n != 0 {
		t.Fatalf("failed edits broadcast %d times", n)
	}

	edited, err := f.messages.Edit(ctx, msg.ID, " y ", "")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if edited.Content != "y" || edited.IV != "iv-1" || !edited.Edited {
		t.Fatalf("edited = %+v", edited)
	}
	if edited.Sender.Username != "alice" {
		t.Fatalf("edited sender not populated: %+v", edited.Sender)
	}
	got := f.emitter.byEvent(EventMessageEdited)
	if len(got) != 1 || got[0].target != "c1" {
		t.Fatalf("messageEdited = %+v", got)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg, err := f.messages.Send(ctx, SendInput{ChatID: "c1", Sender: "alice", Content: "x", IV: "i"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := f.messages.Delete(ctx, msg.ID, "c1"); err != nil {
			t.Fatalf("Delete #%d: %v", i+1, err)
		}
	}
	got := f.emitter.byEvent(EventMessageDeleted)
	if len(got) != 2 {
		t.Fatalf("messageDeleted emitted %d times, want 2", len(got))
	}
	if p := got[0].payload.(models.MessageDeleted); p.MessageID != msg.ID {
		t.Fatalf("payload = %+v", p)
	}
	if _, err := f.messages.GetMessage(ctx, msg.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetMessage after delete err = %v", err)
	}
	if err := f.messages.Delete(ctx, "", "c1"); PublicMessage(err) != "Invalid delete data" {
		t.Fatalf("Delete without id err = %v", err)
	}
	if len(decodeHistory(t, f, "alice")) != 0 {
		t.Fatal("deleted message still in history")
	}
}

func TestPublicMessageHidesInternalErrors(t *testing.T) {
	if got := PublicMessage(errors.New("pq: connection refused")); got != "Internal server error" {
		t.Fatalf("PublicMessage = %q", got)
	}
}

func decodeHistory(t *testing.T, f *fixture, requester string) []models.Message {
	t.Helper()
	raw, err := f.messages.History(context.Background(), "c1", requester)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	var msgs []models.Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	return msgs
}
