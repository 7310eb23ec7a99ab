package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"livechat/internal/metrics"
	"livechat/internal/models"
	"livechat/internal/presence"
	"livechat/internal/store"
)

// Call signal kinds, used as metric labels.
const (
	signalOffer     = "offer"
	signalAnswer    = "answer"
	signalCandidate = "candidate"
	signalHangUp    = "hangup"
)

// CallService relays WebRTC signalling between chat participants. It keeps
// no call state; targets are resolved on every signal and offline targets
// are skipped.
type CallService struct {
	chats    store.ChatStore
	presence presence.Store
	emitter  Emitter
	logger   zerolog.Logger
}

func NewCallService(chats store.ChatStore, p presence.Store, emitter Emitter, logger zerolog.Logger) *CallService {
	return &CallService{
		chats:    chats,
		presence: p,
		emitter:  emitter,
		logger:   logger.With().Str("component", "calls").Logger(),
	}
}

// Offer rings every online participant except the caller.
func (s *CallService) Offer(ctx context.Context, offer models.CallOffer) error {
	chat, err := s.chat(ctx, offer.ChatID)
	if err != nil {
		return err
	}
	for _, participant := range chat.Participants {
		if participant == offer.Caller {
			continue
		}
		s.sendTo(ctx, signalOffer, participant, EventIncomingVoiceCall, offer)
	}
	return nil
}

// Answer returns the callee's answer to the caller.
func (s *CallService) Answer(ctx context.Context, answer models.CallAnswer) {
	if answer.Caller == "" {
		metrics.CallSignals.WithLabelValues(signalAnswer, "dropped").Inc()
		return
	}
	s.sendTo(ctx, signalAnswer, answer.Caller, EventVoiceCallAnswer, models.CallAnswer{
		ChatID: answer.ChatID,
		Answer: answer.Answer,
	})
}

// Candidate forwards an ICE candidate to the other participants.
func (s *CallService) Candidate(ctx context.Context, connID string, candidate models.CallCandidate) {
	s.relayExcept(ctx, signalCandidate, connID, candidate.ChatID, EventVoiceCallCandidate, candidate)
}

// HangUp tells the other participants the call ended.
func (s *CallService) HangUp(ctx context.Context, connID string, hangUp models.CallHangUp) {
	s.relayExcept(ctx, signalHangUp, connID, hangUp.ChatID, EventHangUpVoiceCall, hangUp)
}

func (s *CallService) chat(ctx context.Context, chatID string) (*models.Chat, error) {
	if chatID == "" {
		return nil, notFoundError("Chat not found")
	}
	chat, err := s.chats.GetChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("Chat not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return chat, nil
}

func (s *CallService) relayExcept(ctx context.Context, kind, connID, chatID, event string, payload interface{}) {
	chat, err := s.chat(ctx, chatID)
	if err != nil {
		s.logger.Debug().Err(err).Str("chat_id", chatID).Str("signal", kind).Msg("signal dropped")
		metrics.CallSignals.WithLabelValues(kind, "dropped").Inc()
		return
	}
	for _, participant := range chat.Participants {
		handle, ok, err := s.presence.Lookup(ctx, participant)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", participant).Msg("presence lookup failed")
			metrics.CallSignals.WithLabelValues(kind, "dropped").Inc()
			continue
		}
		if !ok {
			metrics.CallSignals.WithLabelValues(kind, "dropped").Inc()
			continue
		}
		if handle == connID {
			continue
		}
		s.emitter.EmitToConn(handle, event, payload)
		metrics.CallSignals.WithLabelValues(kind, "delivered").Inc()
	}
}

func (s *CallService) sendTo(ctx context.Context, kind, userID, event string, payload interface{}) {
	handle, ok, err := s.presence.Lookup(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("presence lookup failed")
	}
	if err != nil || !ok {
		metrics.CallSignals.WithLabelValues(kind, "dropped").Inc()
		return
	}
	s.emitter.EmitToConn(handle, event, payload)
	metrics.CallSignals.WithLabelValues(kind, "delivered").Inc()
}
