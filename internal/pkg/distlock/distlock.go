// Package distlock provides the non-reentrant guard that keeps sync runs
// from overlapping. A LocalLock covers a single process; a Redis lock or a
// PostgreSQL advisory lock can be stacked on top so that several replicas
// pointed at the same listmonk instance never import at the same time.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is the interface for run locks. Acquire never blocks waiting for
// the lock: it reports false when someone else holds it.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// Extender is implemented by locks whose hold lapses after a TTL. The
// holder must call Extend well before TTL elapses to keep the lock.
type Extender interface {
	Extend(ctx context.Context, ttl time.Duration) error
	TTL() time.Duration
}

// NewLock builds the run lock: always an in-process guard, followed by Redis
// when redisClient is non-nil, or a PostgreSQL advisory lock when db is
// non-nil.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	locks := []DistLock{NewLocalLock()}
	switch {
	case redisClient != nil:
		locks = append(locks, NewRedisLock(redisClient, key, ttl))
	case db != nil:
		locks = append(locks, NewPGAdvisoryLock(db, key))
	}
	if len(locks) == 1 {
		return locks[0]
	}
	return Chain(locks...)
}

// =============================================================================
// Local (in-process) lock
// =============================================================================

// LocalLock is a single-slot, non-reentrant guard backed by an atomic flag.
type LocalLock struct {
	held atomic.Bool
}

// NewLocalLock creates an unheld local lock.
func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

// Acquire flips the flag if it is free.
func (l *LocalLock) Acquire(_ context.Context) (bool, error) {
	return l.held.CompareAndSwap(false, true), nil
}

// Release frees the flag.
func (l *LocalLock) Release(_ context.Context) error {
	l.held.Store(false)
	return nil
}

// Held reports whether the lock is currently taken.
func (l *LocalLock) Held() bool {
	return l.held.Load()
}

// =============================================================================
// Chain
// =============================================================================

type chain struct {
	locks []DistLock
}

// Chain acquires locks in order and releases them in reverse. If a later
// lock is unavailable or fails, the earlier ones are released again.
func Chain(locks ...DistLock) DistLock {
	return &chain{locks: locks}
}

func (c *chain) Acquire(ctx context.Context) (bool, error) {
	for i, l := range c.locks {
		ok, err := l.Acquire(ctx)
		if err != nil || !ok {
			releaseErr := releaseAll(ctx, c.locks[:i])
			return false, errors.Join(err, releaseErr)
		}
	}
	return true, nil
}

func (c *chain) Release(ctx context.Context) error {
	return releaseAll(ctx, c.locks)
}

// Extend refreshes every member lock that expires on its own.
func (c *chain) Extend(ctx context.Context, ttl time.Duration) error {
	var errs []error
	for _, l := range c.locks {
		if e, ok := l.(Extender); ok {
			if err := e.Extend(ctx, ttl); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// TTL is the shortest TTL among the member locks, or 0 when none expire.
func (c *chain) TTL() time.Duration {
	var ttl time.Duration
	for _, l := range c.locks {
		if e, ok := l.(Extender); ok {
			if t := e.TTL(); t > 0 && (ttl == 0 || t < ttl) {
				ttl = t
			}
		}
	}
	return ttl
}

func releaseAll(ctx context.Context, locks []DistLock) error {
	var errs []error
	for i := len(locks) - 1; i >= 0; i-- {
		if err := locks[i].Release(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// PostgreSQL Advisory Lock
// =============================================================================
// pg_try_advisory_lock is session-scoped, so the lock pins one connection
// from the pool between Acquire and Release. The lock is released by the
// server if that connection drops.

// PGAdvisoryLock implements DistLock using PostgreSQL advisory locks.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64

	mu   sync.Mutex
	conn *sql.Conn
}

// NewPGAdvisoryLock creates a PG advisory lock with a deterministic lock ID
// derived from the given key string.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	return &PGAdvisoryLock{
		db:     db,
		lockID: advisoryLockID(key),
	}
}

func advisoryLockID(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64())
}

// Acquire tries to acquire the advisory lock without blocking.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to reserve connection for advisory lock: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("failed to acquire advisory lock %d: %w", l.lockID, err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}

	l.conn = conn
	return true, nil
}

// Release unlocks on the pinned connection and returns it to the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return nil
	}
	conn := l.conn
	l.conn = nil

	_, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	closeErr := conn.Close()
	if err != nil {
		return fmt.Errorf("failed to release advisory lock %d: %w", l.lockID, err)
	}
	return closeErr
}
