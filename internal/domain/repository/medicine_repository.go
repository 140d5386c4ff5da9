package repository

import (
	"context"

	"github.com/yourusername/medkit-bot/internal/domain/entity"
)

// MedicineRepository medicine records storage. Every lookup is scoped to an
// owner; (owner, name_key) is unique.
type MedicineRepository interface {
	// Insert assigns an ID and stores the record. Returns ErrDuplicate when the
	// owner already has a record with the same name key.
	Insert(ctx context.Context, med *entity.Medicine) error

	// FindByID record by ID for owner, or ErrNotFound
	FindByID(ctx context.Context, id string, owner int64) (*entity.Medicine, error)

	// FindByNameKey record by name key for owner, or ErrNotFound
	FindByNameKey(ctx context.Context, nameKey string, owner int64) (*entity.Medicine, error)

	// ListByOwner all records of owner ordered by name key
	ListByOwner(ctx context.Context, owner int64) ([]entity.Medicine, error)

	// Search records of owner whose name key contains any of needles,
	// ordered by name key
	Search(ctx context.Context, owner int64, needles []string, offset, limit int) ([]entity.Medicine, error)

	// UpdateFields partial update. Reports whether any stored value changed.
	UpdateFields(ctx context.Context, id string, owner int64, upd entity.MedicineUpdate) (bool, error)

	// Delete removes the record or returns ErrNotFound
	Delete(ctx context.Context, id string, owner int64) error

	// DistinctOwners every owner that has at least one record
	DistinctOwners(ctx context.Context) ([]int64, error)

	// FindExpiringBetween records with from <= exp_date <= to, ordered by exp_date
	FindExpiringBetween(ctx context.Context, owner int64, from, to string) ([]entity.Medicine, error)

	// FindExpiredBefore records with exp_date < date, ordered by exp_date
	FindExpiredBefore(ctx context.Context, owner int64, date string) ([]entity.Medicine, error)

	// Close releases the storage handle
	Close() error
}
