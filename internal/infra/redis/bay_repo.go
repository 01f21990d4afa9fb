package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
	"github.com/leadgrid/gatekeeper/internal/infra/storage"
)

// recordTTL bounds how long evidence stays in Redis. Unrepaired records
// older than this must be re-derived from the durable store.
const recordTTL = 7 * 24 * time.Hour

// BayRepo implements storage.BayRepository on Redis. Each bay is a sorted
// set scored by creation time, record payloads live under their own keys.
type BayRepo struct {
	rdb *redis.Client
}

// NewBayRepo creates a new Redis-backed bay repository.
func NewBayRepo(client *Client) *BayRepo {
	return &BayRepo{rdb: client.rdb}
}

func bayKey(bay domain.Bay) string {
	return fmt.Sprintf("bay:%s", bay)
}

func recordKey(bay domain.Bay, id string) string {
	return fmt.Sprintf("bay_record:%s:%s", bay, id)
}

func (r *BayRepo) Add(ctx context.Context, rec *domain.FailureRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal failure record: %w", err)
	}

	if err := r.rdb.Set(ctx, recordKey(rec.Bay, rec.ID), data, recordTTL).Err(); err != nil {
		return fmt.Errorf("failed to set failure record: %w", err)
	}

	if err := r.rdb.ZAdd(ctx, bayKey(rec.Bay), redis.Z{
		Score:  float64(rec.CreatedAt.UnixNano()),
		Member: rec.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to bay: %w", err)
	}

	return nil
}

func (r *BayRepo) Get(ctx context.Context, bay domain.Bay, id string) (*domain.FailureRecord, error) {
	data, err := r.rdb.Get(ctx, recordKey(bay, id)).Bytes()
	if err == redis.Nil {
		// Payload expired but id may linger in the set, drop it
		r.rdb.ZRem(ctx, bayKey(bay), id)
		return nil, storage.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get failure record: %w", err)
	}

	var rec domain.FailureRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failure record: %w", err)
	}
	return &rec, nil
}

func (r *BayRepo) Update(ctx context.Context, rec *domain.FailureRecord) error {
	key := recordKey(rec.Bay, rec.ID)

	exists, err := r.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check failure record: %w", err)
	}
	if exists == 0 {
		return storage.ErrRecordNotFound
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal failure record: %w", err)
	}
	if err := r.rdb.Set(ctx, key, data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("failed to set failure record: %w", err)
	}
	return nil
}

func (r *BayRepo) List(ctx context.Context, bay domain.Bay) ([]*domain.FailureRecord, error) {
	ids, err := r.rdb.ZRange(ctx, bayKey(bay), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	records := make([]*domain.FailureRecord, 0, len(ids))
	for _, id := range ids {
		data, err := r.rdb.Get(ctx, recordKey(bay, id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get failure record: %w", err)
		}

		var rec domain.FailureRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}

	return records, nil
}

func (r *BayRepo) CountUnresolved(ctx context.Context, bay domain.Bay) (int, error) {
	records, err := r.List(ctx, bay)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, rec := range records {
		if !rec.Status.Terminal() {
			n++
		}
	}
	return n, nil
}
