package handlers

import (
	"context"

	"livechat/internal/models"
	"livechat/internal/utils"
)

// Call signalling. Only the offer is acknowledged; the other signals are
// fire-and-forget and malformed ones are dropped.

func (s *Socket) handleVoiceCallOffer(ctx context.Context, connID string, frame models.Frame) {
	var offer models.CallOffer
	if err := utils.SafeJSONParse(frame.Data, &offer); err != nil {
		s.reply(connID, frame, nil, invalidPayload("Invalid call data"))
		return
	}
	s.reply(connID, frame, nil, s.calls.Offer(ctx, offer))
}

func (s *Socket) handleVoiceCallAnswer(ctx context.Context, connID string, frame models.Frame) {
	var answer models.CallAnswer
	if err := utils.SafeJSONParse(frame.Data, &answer); err != nil {
		s.logger.Debug().Err(err).Str("conn_id", connID).Msg("malformed call answer")
		return
	}
	s.calls.Answer(ctx, answer)
}

func (s *Socket) handleVoiceCallCandidate(ctx context.Context, connID string, frame models.Frame) {
	var candidate models.CallCandidate
	if err := utils.SafeJSONParse(frame.Data, &candidate); err != nil {
		s.logger.Debug().Err(err).Str("conn_id", connID).Msg("malformed call candidate")
		return
	}
	s.calls.Candidate(ctx, connID, candidate)
}

func (s *Socket) handleHangUpVoiceCall(ctx context.Context, connID string, frame models.Frame) {
	var hangUp models.CallHangUp
	if err := utils.SafeJSONParse(frame.Data, &hangUp); err != nil {
		s.logger.Debug().Err(err).Str("conn_id", connID).Msg("malformed hang up")
		return
	}
	s.calls.HangUp(ctx, connID, hangUp)
}
