package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type sessionKey struct{}

// Session is a catalog store connection scoped to one logical unit of work,
// such as a scan or a CLI command. A session is not shared across
// concurrent callers.
type Session struct {
	store    *Store
	conn     *sql.Conn
	root     bool
	released bool
}

// Nested reports whether this handle reuses a session acquired further up
// the call chain.
func (s *Session) Nested() bool { return !s.root }

// Release returns the connection to the pool. It is a no-op on nested
// handles and on repeated calls.
func (s *Session) Release() error {
	if !s.root || s.released {
		return nil
	}
	s.released = true
	return s.conn.Close()
}

func sessionFrom(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionKey{}).(*Session)
	if sess == nil || sess.released {
		return nil
	}
	return sess
}

// Acquire returns a context bound to a session on this store. If ctx
// already carries a live session of this store, the returned handle shares
// its connection and its Release does nothing.
func (s *Store) Acquire(ctx context.Context) (context.Context, *Session, error) {
	if existing := sessionFrom(ctx); existing != nil && existing.store == s {
		return ctx, &Session{store: s, conn: existing.conn}, nil
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("acquire catalog session: %w", err)
	}
	sess := &Session{store: s, conn: conn, root: true}
	return context.WithValue(ctx, sessionKey{}, sess), sess, nil
}

// WithSession runs fn inside a session and releases it on every exit path,
// including panics.
func WithSession(ctx context.Context, store *Store, fn func(ctx context.Context) error) (err error) {
	ctx, sess, err := store.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := sess.Release(); rerr != nil {
			err = errors.Join(err, fmt.Errorf("release catalog session: %w", rerr))
		}
	}()
	return fn(ctx)
}
