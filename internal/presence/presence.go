// Package presence tracks which user is reachable through which connection.
package presence

import "context"

// Store maps a user identity to its single active connection handle.
// A new SetOnline for the same user supersedes the previous handle
// without closing it.
//
// Registry is the single-process implementation. RedisStore shares the
// mapping between instances; connection handles must then be globally
// unique.
type Store interface {
	SetOnline(ctx context.Context, userID, connID string) error
	RemoveByConnection(ctx context.Context, connID string) (userID string, ok bool, err error)
	Lookup(ctx context.Context, userID string) (connID string, ok bool, err error)
	OnlineUsers(ctx context.Context) ([]string, error)
}
