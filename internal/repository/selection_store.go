package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/retreat-allocation/internal/allocation"
	"github.com/iliyamo/retreat-allocation/internal/model"
)

// SelectionKey identifies the selector of one administrator for one pool
// of one course.
type SelectionKey struct {
	AdminID  uint64
	CourseID uint64
	Pool     model.PoolType
}

func (k SelectionKey) String() string {
	return fmt.Sprintf("%d:%d:%s", k.AdminID, k.CourseID, k.Pool)
}

// RedisSelectionStore keeps interactive selections in Redis.  A selection
// left alone for ttl falls back to Idle.
type RedisSelectionStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisSelectionStore returns a store keyed under "selection:".
func NewRedisSelectionStore(rdb *redis.Client, ttl time.Duration) *RedisSelectionStore {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisSelectionStore{rdb: rdb, ttl: ttl, prefix: "selection"}
}

// Get returns the stored selection; a missing key is the Idle selection.
func (s *RedisSelectionStore) Get(ctx context.Context, k SelectionKey) (allocation.Selection, error) {
	idle := allocation.Selection{State: allocation.StateIdle, Pool: k.Pool}
	bs, err := s.rdb.Get(ctx, s.prefix+":"+k.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return idle, nil
	}
	if err != nil {
		return idle, err
	}
	var sel allocation.Selection
	if err := json.Unmarshal(bs, &sel); err != nil {
		return idle, nil
	}
	return sel, nil
}

// Save stores sel.  An idle selection deletes the key.
func (s *RedisSelectionStore) Save(ctx context.Context, k SelectionKey, sel allocation.Selection) error {
	if sel.Idle() {
		return s.Clear(ctx, k)
	}
	bs, err := json.Marshal(sel)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.prefix+":"+k.String(), bs, s.ttl).Err()
}

// Clear resets the selector to Idle.
func (s *RedisSelectionStore) Clear(ctx context.Context, k SelectionKey) error {
	return s.rdb.Del(ctx, s.prefix+":"+k.String()).Err()
}

// MemorySelectionStore is the in-process fallback used when Redis is not
// reachable.  Selections do not expire.
type MemorySelectionStore struct {
	mu   sync.Mutex
	sels map[SelectionKey]allocation.Selection
}

func NewMemorySelectionStore() *MemorySelectionStore {
	return &MemorySelectionStore{sels: make(map[SelectionKey]allocation.Selection)}
}

func (s *MemorySelectionStore) Get(_ context.Context, k SelectionKey) (allocation.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sel, ok := s.sels[k]; ok {
		return sel, nil
	}
	return allocation.Selection{State: allocation.StateIdle, Pool: k.Pool}, nil
}

func (s *MemorySelectionStore) Save(_ context.Context, k SelectionKey, sel allocation.Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sel.Idle() {
		delete(s.sels, k)
		return nil
	}
	s.sels[k] = sel
	return nil
}

func (s *MemorySelectionStore) Clear(_ context.Context, k SelectionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sels, k)
	return nil
}
