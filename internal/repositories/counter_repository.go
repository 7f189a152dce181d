package repositories

import (
	"context"
	"fmt"
	"path"

	"firebase.google.com/go/v4/db"
)

// CounterRepository increments named counters. Implementations must be atomic
// against concurrent callers: a store-native increment or a transaction, never
// a read followed by a separate write.
type CounterRepository interface {
	// Increment adds one to key (absent counts as zero) and returns the new value.
	Increment(ctx context.Context, key string) (int64, error)
	// IncrementWithThreshold adds one to key; when the result reaches threshold the
	// counter is stored as zero and fired is true.
	IncrementWithThreshold(ctx context.Context, key string, threshold int64) (value int64, fired bool, err error)
}

// nextThresholdValue is the shared threshold rule for every backend.
func nextThresholdValue(current, threshold int64) (int64, bool) {
	next := current + 1
	if next >= threshold {
		return 0, true
	}
	return next, false
}

// RealtimeCounterRepository keeps counters under a root path of the Firebase
// Realtime Database (metadata/users-count, metadata/joined-users/5-Jan-2024, ...).
type RealtimeCounterRepository struct {
	client *db.Client
	root   string
}

// NewRealtimeCounterRepository creates a counter repository rooted at root (default "metadata")
func NewRealtimeCounterRepository(client *db.Client, root string) *RealtimeCounterRepository {
	if root == "" {
		root = "metadata"
	}
	return &RealtimeCounterRepository{client: client, root: root}
}

// Increment runs a database transaction that adds one to the counter
func (r *RealtimeCounterRepository) Increment(ctx context.Context, key string) (int64, error) {
	ref := r.client.NewRef(path.Join(r.root, key))
	result, err := ref.Transaction(ctx, func(tn db.TransactionNode) (interface{}, error) {
		var current int64
		if err := tn.Unmarshal(&current); err != nil {
			return nil, err
		}
		return current + 1, nil
	})
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}

	var value int64
	if err := result.Unmarshal(&value); err != nil {
		return 0, fmt.Errorf("decode counter %s: %w", key, err)
	}
	return value, nil
}

// IncrementWithThreshold runs the increment-or-reset rule inside one transaction
func (r *RealtimeCounterRepository) IncrementWithThreshold(ctx context.Context, key string, threshold int64) (int64, bool, error) {
	ref := r.client.NewRef(path.Join(r.root, key))

	// The update function can be retried on contention, so fired is recomputed each attempt.
	var fired bool
	result, err := ref.Transaction(ctx, func(tn db.TransactionNode) (interface{}, error) {
		var current int64
		if err := tn.Unmarshal(&current); err != nil {
			return nil, err
		}
		var next int64
		next, fired = nextThresholdValue(current, threshold)
		return next, nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("increment %s: %w", key, err)
	}

	var value int64
	if err := result.Unmarshal(&value); err != nil {
		return 0, false, fmt.Errorf("decode counter %s: %w", key, err)
	}
	return value, fired, nil
}
