package handlers

import (
	"context"

	"livechat/internal/models"
	"livechat/internal/services"
	"livechat/internal/utils"
)

func (s *Socket) handleSendMessage(ctx context.Context, connID string, frame models.Frame) {
	var req models.SendMessageRequest
	if err := utils.SafeJSONParse(frame.Data, &req); err != nil {
		s.reply(connID, frame, nil, invalidPayload("Invalid message data"))
		return
	}

	msg, err := s.messages.Send(ctx, services.SendInput{
		ChatID:     req.ChatID,
		Sender:     req.Sender,
		Content:    req.Content,
		IV:         req.IV,
		FileURL:    req.FileURL,
		OriginConn: connID,
		Origin:     services.OriginSocket,
	})
	if err != nil {
		s.reply(connID, frame, nil, err)
		return
	}
	s.reply(connID, frame, msg, nil)
}

func (s *Socket) handleMessageDelivered(ctx context.Context, connID string, frame models.Frame) {
	var req models.MessageStatusRequest
	if err := utils.SafeJSONParse(frame.Data, &req); err != nil {
		s.reply(connID, frame, nil, invalidPayload("Invalid message data"))
		return
	}
	msg, err := s.messages.MarkDelivered(ctx, req.ChatID, req.MessageID)
	if err != nil {
		s.reply(connID, frame, nil, err)
		return
	}
	s.reply(connID, frame, msg, nil)
}

func (s *Socket) handleMessageRead(ctx context.Context, connID string, frame models.Frame) {
	var req models.MessageStatusRequest
	if err := utils.SafeJSONParse(frame.Data, &req); err != nil {
		s.reply(connID, frame, nil, invalidPayload("Invalid message data"))
		return
	}
	msg, err := s.messages.MarkRead(ctx, req.ChatID, req.MessageID, req.UserID)
	if err != nil {
		s.reply(connID, frame, nil, err)
		return
	}
	s.reply(connID, frame, msg, nil)
}

func (s *Socket) handleEditMessage(ctx context.Context, connID string, frame models.Frame) {
	var req models.EditMessageRequest
	if err := utils.SafeJSONParse(frame.Data, &req); err != nil {
		s.reply(connID, frame, nil, invalidPayload("Invalid edit data"))
		return
	}
	msg, err := s.messages.Edit(ctx, req.MessageID, req.NewContent, req.IV)
	if err != nil {
		s.reply(connID, frame, nil, err)
		return
	}
	s.reply(connID, frame, msg, nil)
}

func (s *Socket) handleDeleteMessage(ctx context.Context, connID string, frame models.Frame) {
	var req models.DeleteMessageRequest
	if err := utils.SafeJSONParse(frame.Data, &req); err != nil {
		s.reply(connID, frame, nil, invalidPayload("Invalid delete data"))
		return
	}
	if err := s.messages.Delete(ctx, req.MessageID, req.ChatID); err != nil {
		s.reply(connID, frame, nil, err)
		return
	}
	s.reply(connID, frame, models.MessageDeleted{MessageID: req.MessageID}, nil)
}
