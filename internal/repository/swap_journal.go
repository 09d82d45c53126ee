package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/retreat-allocation/internal/allocation"
)

// SwapJournal keeps move progress in Redis keyed by operation id so a
// retried request resumes the operation it belongs to.  Entries expire
// after ttl.
type SwapJournal struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewSwapJournal returns a journal storing entries under "swapjournal:<op>".
func NewSwapJournal(rdb *redis.Client, ttl time.Duration) *SwapJournal {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SwapJournal{rdb: rdb, ttl: ttl, prefix: "swapjournal"}
}

func (j *SwapJournal) key(opID string) string { return j.prefix + ":" + opID }

// Load returns the journaled record of opID, if any.
func (j *SwapJournal) Load(ctx context.Context, opID string) (*allocation.SwapRecord, bool, error) {
	bs, err := j.rdb.Get(ctx, j.key(opID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rec allocation.SwapRecord
	if err := json.Unmarshal(bs, &rec); err != nil {
		return nil, false, err
	}
	return &rec, true, nil
}

// Save overwrites the record and restarts its expiry.
func (j *SwapJournal) Save(ctx context.Context, rec *allocation.SwapRecord) error {
	bs, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return j.rdb.Set(ctx, j.key(rec.OpID), bs, j.ttl).Err()
}
