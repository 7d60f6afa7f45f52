package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/snappy"

	"subroute/internal/domain/dispatch"
)

const dispatchJournalKey = "subroute:dispatches"

type listClient interface {
	PushCapped(ctx context.Context, key string, value []byte, size int64, ttl time.Duration) error
	RangeBytes(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	Delete(ctx context.Context, keys ...string) error
}

// DispatchJournal stores dispatch records in a capped Redis list as
// snappy-compressed JSON.
type DispatchJournal struct {
	client listClient
	key    string
	size   int64
	ttl    time.Duration
}

// NewDispatchJournal keeps at most size records; ttl of zero never expires.
func NewDispatchJournal(client listClient, size int, ttl time.Duration) *DispatchJournal {
	if size <= 0 {
		size = 200
	}
	return &DispatchJournal{client: client, key: dispatchJournalKey, size: int64(size), ttl: ttl}
}

// Append implements journal.Store.
func (j *DispatchJournal) Append(ctx context.Context, rec dispatch.Record) error {
	payload, err := encodeSnappyJSON(rec)
	if err != nil {
		return err
	}
	return j.client.PushCapped(ctx, j.key, payload, j.size, j.ttl)
}

// Recent implements journal.Store.
func (j *DispatchJournal) Recent(ctx context.Context, limit int) ([]dispatch.Record, error) {
	if limit <= 0 {
		return []dispatch.Record{}, nil
	}
	payloads, err := j.client.RangeBytes(ctx, j.key, 0, int64(limit)-1)
	if err != nil {
		return nil, err
	}
	out := make([]dispatch.Record, 0, len(payloads))
	for _, p := range payloads {
		var rec dispatch.Record
		if err := decodeSnappyJSON(p, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Clear implements journal.Store.
func (j *DispatchJournal) Clear(ctx context.Context) error {
	return j.client.Delete(ctx, j.key)
}

func encodeSnappyJSON(value any) ([]byte, error) {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	return snappy.Encode(nil, jsonData), nil
}

func decodeSnappyJSON(payload []byte, out any) error {
	jsonData, err := snappy.Decode(nil, payload)
	if err != nil {
		return fmt.Errorf("snappy decode: %w", err)
	}
	if err := json.Unmarshal(jsonData, out); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	return nil
}
