package allocation

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliyamo/retreat-allocation/internal/model"
)

func attendee(id uint64, g model.Gender, confNo, info string, age int) model.Participant {
	return model.Participant{
		ID:              id,
		CourseID:        1,
		FullName:        "participant",
		Gender:          g,
		ConfNo:          confNo,
		CoursesInfoText: info,
		Age:             age,
		Status:          model.StatusAttending,
		SpecialSeating:  model.SeatingNone,
	}
}

var errStoreDown = errors.New("connection reset by peer")

// memStore is a Store keeping rows in memory.  failAt makes the n-th write
// (1-based) fail; failIDs makes every write of those participants fail.
type memStore struct {
	mu      sync.Mutex
	rows    map[uint64]model.Participant
	calls   int
	failAt  int
	failIDs map[uint64]bool

	delay       time.Duration
	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func newMemStore(ps ...model.Participant) *memStore {
	s := &memStore{rows: make(map[uint64]model.Participant), failIDs: make(map[uint64]bool)}
	for _, p := range ps {
		s.rows[p.ID] = p
	}
	return s
}

func (s *memStore) UpdateParticipant(_ context.Context, p *model.Participant) error {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		cur := s.maxInflight.Load()
		if n <= cur || s.maxInflight.CompareAndSwap(cur, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls == s.failAt || s.failIDs[p.ID] {
		return errStoreDown
	}
	p.Version++
	s.rows[p.ID] = *p
	return nil
}

func (s *memStore) snapshot() []model.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Participant, 0, len(s.rows))
	for _, p := range s.rows {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b model.Participant) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

func (s *memStore) get(id uint64) model.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id]
}

func (s *memStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// atomicStore adds a conditional two-record swap to memStore.
type atomicStore struct {
	*memStore
	swaps int
}

func (s *atomicStore) SwapLabels(_ context.Context, _ model.PoolType, a, b *model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows[a.ID].Version != a.Version || s.rows[b.ID].Version != b.Version {
		return ErrConflict
	}
	s.swaps++
	a.Version++
	b.Version++
	s.rows[a.ID] = *a
	s.rows[b.ID] = *b
	return nil
}
