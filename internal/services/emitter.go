package services

// Outbound socket events.
const (
	EventUpdateOnlineUsers       = "updateOnlineUsers"
	EventUserLastSeen            = "userLastSeen"
	EventReceiveMessage          = "receiveMessage"
	EventMessageSentConfirmation = "messageSentConfirmation"
	EventMessageDelivered        = "messageDelivered"
	EventMessageRead             = "messageRead"
	EventMessageEdited           = "messageEdited"
	EventMessageDeleted          = "messageDeleted"
	EventIncomingVoiceCall       = "incomingVoiceCall"
	EventVoiceCallAnswer         = "voiceCallAnswer"
	EventVoiceCallCandidate      = "voiceCallCandidate"
	EventHangUpVoiceCall         = "hangUpVoiceCall"
	EventTyping                  = "typing"
	EventStopTyping              = "stopTyping"
)

// Emitter pushes events to live connections. *hub.Hub implements it.
// Every method is fire-and-forget.
type Emitter interface {
	Join(connID, room string)
	EmitToConn(connID, event string, payload interface{})
	EmitToRoom(room, event string, payload interface{}, exceptConnID string)
	Broadcast(event string, payload interface{})
}

// UserChannel is the room every connection of a user joins on registration.
func UserChannel(userID string) string {
	return "user:" + userID
}
