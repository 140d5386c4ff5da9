package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/yourusername/medkit-bot/internal/domain/entity"
	"github.com/yourusername/medkit-bot/internal/domain/repository"
)

type ownerKey struct {
	owner   int64
	nameKey string
}

type memoryMedicineRepository struct {
	mu        sync.RWMutex
	medicines map[string]entity.Medicine // key: medicine ID
	names     map[ownerKey]string        // unique index -> medicine ID
}

// NewMemoryMedicineRepository in-memory medicine repository
func NewMemoryMedicineRepository() repository.MedicineRepository {
	return &memoryMedicineRepository{
		medicines: make(map[string]entity.Medicine),
		names:     make(map[ownerKey]string),
	}
}

// Insert stores a new medicine
func (m *memoryMedicineRepository) Insert(ctx context.Context, med *entity.Medicine) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := ownerKey{owner: med.Owner, nameKey: med.NameKey}
	if _, exists := m.names[key]; exists {
		return fmt.Errorf("insert %q: %w", med.Name, repository.ErrDuplicate)
	}

	med.ID = uuid.New().String()
	m.medicines[med.ID] = *med
	m.names[key] = med.ID
	return nil
}

// FindByID medicine by ID
func (m *memoryMedicineRepository) FindByID(ctx context.Context, id string, owner int64) (*entity.Medicine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	med, exists := m.medicines[id]
	if !exists || med.Owner != owner {
		return nil, fmt.Errorf("medicine %s: %w", id, repository.ErrNotFound)
	}
	return &med, nil
}

// FindByNameKey medicine by name key
func (m *memoryMedicineRepository) FindByNameKey(ctx context.Context, nameKey string, owner int64) (*entity.Medicine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.names[ownerKey{owner: owner, nameKey: nameKey}]
	if !exists {
		return nil, fmt.Errorf("medicine %q: %w", nameKey, repository.ErrNotFound)
	}
	med := m.medicines[id]
	return &med, nil
}

// ListByOwner all medicines of owner
func (m *memoryMedicineRepository) ListByOwner(ctx context.Context, owner int64) ([]entity.Medicine, error) {
	return m.filter(owner, func(entity.Medicine) bool { return true }, byNameKey), nil
}

// Search substring search over name keys
func (m *memoryMedicineRepository) Search(ctx context.Context, owner int64, needles []string, offset, limit int) ([]entity.Medicine, error) {
	found := m.filter(owner, func(med entity.Medicine) bool {
		for _, n := range needles {
			if n != "" && strings.Contains(med.NameKey, n) {
				return true
			}
		}
		return false
	}, byNameKey)
	return page(found, offset, limit), nil
}

// UpdateFields partial update
func (m *memoryMedicineRepository) UpdateFields(ctx context.Context, id string, owner int64, upd entity.MedicineUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	med, exists := m.medicines[id]
	if !exists || med.Owner != owner {
		return false, fmt.Errorf("medicine %s: %w", id, repository.ErrNotFound)
	}

	oldKey := ownerKey{owner: owner, nameKey: med.NameKey}
	if !upd.Apply(&med) {
		return false, nil
	}

	newKey := ownerKey{owner: owner, nameKey: med.NameKey}
	if newKey != oldKey {
		if other, taken := m.names[newKey]; taken && other != id {
			return false, fmt.Errorf("rename %s: %w", id, repository.ErrDuplicate)
		}
		delete(m.names, oldKey)
		m.names[newKey] = id
	}
	m.medicines[id] = med
	return true, nil
}

// Delete removes a medicine
func (m *memoryMedicineRepository) Delete(ctx context.Context, id string, owner int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	med, exists := m.medicines[id]
	if !exists || med.Owner != owner {
		return fmt.Errorf("medicine %s: %w", id, repository.ErrNotFound)
	}
	delete(m.medicines, id)
	delete(m.names, ownerKey{owner: owner, nameKey: med.NameKey})
	return nil
}

// DistinctOwners owners with at least one medicine
func (m *memoryMedicineRepository) DistinctOwners(ctx context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[int64]struct{})
	for _, med := range m.medicines {
		seen[med.Owner] = struct{}{}
	}
	owners := make([]int64, 0, len(seen))
	for owner := range seen {
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners, nil
}

// FindExpiringBetween medicines expiring in [from, to]
func (m *memoryMedicineRepository) FindExpiringBetween(ctx context.Context, owner int64, from, to string) ([]entity.Medicine, error) {
	return m.filter(owner, func(med entity.Medicine) bool {
		return med.ExpDate >= from && med.ExpDate <= to
	}, byExpDate), nil
}

// FindExpiredBefore medicines expired before date
func (m *memoryMedicineRepository) FindExpiredBefore(ctx context.Context, owner int64, date string) ([]entity.Medicine, error) {
	return m.filter(owner, func(med entity.Medicine) bool {
		return med.ExpDate < date
	}, byExpDate), nil
}

// Close no-op
func (m *memoryMedicineRepository) Close() error {
	return nil
}

func (m *memoryMedicineRepository) filter(owner int64, keep func(entity.Medicine) bool, less func(a, b entity.Medicine) bool) []entity.Medicine {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []entity.Medicine
	for _, med := range m.medicines {
		if med.Owner == owner && keep(med) {
			out = append(out, med)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byNameKey(a, b entity.Medicine) bool {
	return a.NameKey < b.NameKey
}

func byExpDate(a, b entity.Medicine) bool {
	if a.ExpDate != b.ExpDate {
		return a.ExpDate < b.ExpDate
	}
	return a.NameKey < b.NameKey
}

func page(meds []entity.Medicine, offset, limit int) []entity.Medicine {
	if offset >= len(meds) {
		return nil
	}
	meds = meds[offset:]
	if limit > 0 && len(meds) > limit {
		meds = meds[:limit]
	}
	return meds
}
