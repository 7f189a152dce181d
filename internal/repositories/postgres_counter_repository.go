package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counter is one named counter row
type Counter struct {
	Name  string `gorm:"primaryKey;size:191"`
	Value int64  `gorm:"not null;default:0"`
}

// PostgresCounterRepository implements CounterRepository with upserts on a counters table
type PostgresCounterRepository struct {
	db *gorm.DB
}

// NewPostgresCounterRepository creates a new PostgresCounterRepository
func NewPostgresCounterRepository(db *gorm.DB) *PostgresCounterRepository {
	return &PostgresCounterRepository{db: db}
}

// AutoMigrate creates the counters table
func (r *PostgresCounterRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&Counter{})
}

// Increment inserts the counter at 1 or adds one to the existing row
func (r *PostgresCounterRepository) Increment(ctx context.Context, key string) (int64, error) {
	counter := Counter{Name: key, Value: 1}
	err := r.upsert(ctx, &counter, gorm.Expr("counters.value + 1"))
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return counter.Value, nil
}

// IncrementWithThreshold applies increment-or-reset in the conflict clause
func (r *PostgresCounterRepository) IncrementWithThreshold(ctx context.Context, key string, threshold int64) (int64, bool, error) {
	initial, _ := nextThresholdValue(0, threshold)
	counter := Counter{Name: key, Value: initial}
	expr := gorm.Expr("CASE WHEN counters.value + 1 >= ? THEN 0 ELSE counters.value + 1 END", threshold)
	if err := r.upsert(ctx, &counter, expr); err != nil {
		return 0, false, fmt.Errorf("increment %s: %w", key, err)
	}
	// Non-reset values are always >= 1.
	return counter.Value, counter.Value == 0, nil
}

func (r *PostgresCounterRepository) upsert(ctx context.Context, counter *Counter, value clause.Expr) error {
	return r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"value": value}),
			},
			clause.Returning{Columns: []clause.Column{{Name: "value"}}},
		).
		Create(counter).Error
}
