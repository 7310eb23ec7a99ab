package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"livechat/internal/metrics"
)

const (
	// DefaultHistoryTTL bounds how stale a cached history page may be.
	DefaultHistoryTTL = 60 * time.Second
	// DefaultHistoryLimit is the number of most recent messages cached per chat.
	DefaultHistoryLimit = 50
)

// Loader produces the serialized history of a chat on a cache miss.
type Loader func(ctx context.Context) ([]byte, error)

// History is a read-through cache of serialized chat history keyed by chat id.
// The cache is advisory: backend failures are logged and fall through to the
// loader, and a missed invalidation only extends staleness up to the TTL.
type History struct {
	store  Store
	ttl    time.Duration
	logger zerolog.Logger
}

// NewHistory builds a history cache. A non-positive ttl selects DefaultHistoryTTL.
func NewHistory(store Store, ttl time.Duration, logger zerolog.Logger) *History {
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	return &History{
		store:  store,
		ttl:    ttl,
		logger: logger.With().Str("component", "history_cache").Logger(),
	}
}

// historyKey returns the cache key of a chat's message history.
func historyKey(chatID string) string {
	return fmt.Sprintf("messages:%s", chatID)
}

// ReadThrough returns the live entry for chatID or computes, stores and
// returns a fresh one.
func (h *History) ReadThrough(ctx context.Context, chatID string, load Loader) ([]byte, error) {
	key := historyKey(chatID)

	cached, ok, err := h.store.Get(ctx, key)
	if err != nil {
		h.logger.Warn().Err(err).Str("chat_id", chatID).Msg("cache read failed")
	}
	if ok {
		metrics.HistoryCacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.HistoryCacheLookups.WithLabelValues("miss").Inc()

	fresh, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.store.Set(ctx, key, fresh, h.ttl); err != nil {
		h.logger.Warn().Err(err).Str("chat_id", chatID).Msg("cache write failed")
	}
	return fresh, nil
}

// Invalidate drops the cached history of chatID.
func (h *History) Invalidate(ctx context.Context, chatID string) {
	if chatID == "" {
		return
	}
	if err := h.store.Delete(ctx, historyKey(chatID)); err != nil {
		h.logger.Warn().Err(err).Str("chat_id", chatID).Msg("cache invalidation failed")
	}
}
