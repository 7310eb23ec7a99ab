package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"livechat/internal/models"
	"livechat/internal/presence"
	"livechat/internal/store"
)

// PresenceService reacts to connections announcing a user and going away.
// Re-announcing overwrites the previous binding, so reconnects need no
// separate state.
type PresenceService struct {
	presence presence.Store
	users    store.UserStore
	emitter  Emitter
	logger   zerolog.Logger
	now      func() time.Time
}

func NewPresenceService(p presence.Store, users store.UserStore, emitter Emitter, logger zerolog.Logger) *PresenceService {
	return &PresenceService{
		presence: p,
		users:    users,
		emitter:  emitter,
		logger:   logger.With().Str("component", "presence").Logger(),
		now:      time.Now,
	}
}

// Connect binds userID to connID and broadcasts the online set.
// An empty userID is ignored.
func (s *PresenceService) Connect(ctx context.Context, connID, userID string) {
	if userID == "" {
		return
	}
	if err := s.presence.SetOnline(ctx, userID, connID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("conn_id", connID).Msg("set online failed")
		return
	}
	s.emitter.Join(connID, UserChannel(userID))
	s.broadcastOnline(ctx)
	s.logger.Info().Str("user_id", userID).Str("conn_id", connID).Msg("user online")
}

// Disconnect releases connID. When it was bound to a user, the user's
// last-seen time is persisted and announced. A persistence failure does
// not stop the announcement.
func (s *PresenceService) Disconnect(ctx context.Context, connID string) {
	userID, ok, err := s.presence.RemoveByConnection(ctx, connID)
	if err != nil {
		s.logger.Error().Err(err).Str("conn_id", connID).Msg("remove presence failed")
		return
	}
	if !ok {
		s.logger.Debug().Str("conn_id", connID).Msg("anonymous connection closed")
		return
	}

	lastSeen := s.now().UTC()
	if err := s.users.UpdatePresence(ctx, userID, false, lastSeen); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("persist last seen failed")
	}

	s.broadcastOnline(ctx)
	s.emitter.Broadcast(EventUserLastSeen, models.LastSeenEvent{UserID: userID, LastSeen: lastSeen})
	s.logger.Info().Str("user_id", userID).Str("conn_id", connID).Msg("user disconnected")
}

// OnlineUsers lists the users with a live connection. The result is never nil.
func (s *PresenceService) OnlineUsers(ctx context.Context) ([]string, error) {
	ids, err := s.presence.OnlineUsers(ctx)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *PresenceService) broadcastOnline(ctx context.Context) {
	ids, err := s.OnlineUsers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("list online users failed")
		return
	}
	s.emitter.Broadcast(EventUpdateOnlineUsers, ids)
}
