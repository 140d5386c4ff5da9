package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/medkit-bot/internal/domain/entity"
	"github.com/yourusername/medkit-bot/internal/domain/repository"
	"github.com/yourusername/medkit-bot/internal/infrastructure/storage"
)

type fakeSheet struct {
	rows     []repository.SheetRow
	parseErr error
	built    []entity.Medicine
}

func (s *fakeSheet) ParseBytes(ctx context.Context, data []byte) ([]repository.SheetRow, error) {
	return s.rows, s.parseErr
}

func (s *fakeSheet) Build(ctx context.Context, meds []entity.Medicine) ([]byte, error) {
	s.built = meds
	return []byte("xlsx"), nil
}

func row(line int, name, qty, exp string) repository.SheetRow {
	return repository.SheetRow{Line: line, Medicine: entity.Medicine{Name: name, Quantity: qty, Notes: "-", ExpDate: exp}}
}

func TestInventory_Import(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := storage.NewMemoryMedicineRepository()
	seed(t, repo, 1, "Нурофен")

	sheet := &fakeSheet{rows: []repository.SheetRow{
		row(2, "Аспирин", "10 шт", "2027-01-01"),
		row(3, "нурофен", "1", "2027-01-01"),
		row(4, "Йод", "1", "2020-01-01"),
		row(5, "Бинт", "2", "завтра"),
		{Line: 6, Err: errors.New("empty name")},
		row(7, " АСПИРИН ", "5", "2027-02-01"),
		row(8, "Сегодня", "1", "2026-03-10"),
	}}
	inv := NewInventoryUseCase(repo, sheet, discardLogger(), time.UTC, fixedNow)

	res, err := inv.Import(ctx, 1, []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 2, res.Duplicates)
	assert.Equal(t, 3, res.Invalid)
	assert.Equal(t, []int{4, 5, 6}, res.InvalidLines)

	med, err := repo.FindByNameKey(ctx, "аспирин", 1)
	require.NoError(t, err)
	assert.Equal(t, "10 шт", med.Quantity)
	assert.Equal(t, int64(1), med.Owner)

	summary := res.Summary()
	assert.Contains(t, summary, "Добавлено: 2")
	assert.Contains(t, summary, "Строки с ошибками: [4 5 6]")
}

func TestInventory_ImportCapsReportedLines(t *testing.T) {
	t.Parallel()
	var rows []repository.SheetRow
	for i := 0; i < maxReportedLines+5; i++ {
		rows = append(rows, repository.SheetRow{Line: i + 2, Err: errors.New("bad")})
	}
	inv := NewInventoryUseCase(storage.NewMemoryMedicineRepository(), &fakeSheet{rows: rows}, discardLogger(), time.UTC, fixedNow)

	res, err := inv.Import(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, maxReportedLines+5, res.Invalid)
	assert.Len(t, res.InvalidLines, maxReportedLines)
}

func TestInventory_ImportParseError(t *testing.T) {
	t.Parallel()
	inv := NewInventoryUseCase(storage.NewMemoryMedicineRepository(), &fakeSheet{parseErr: errors.New("zip: not a valid zip file")}, discardLogger(), time.UTC, fixedNow)

	_, err := inv.Import(context.Background(), 1, []byte("junk"))
	assert.Error(t, err)
}

func TestInventory_Export(t *testing.T) {
	t.Parallel()
	repo := storage.NewMemoryMedicineRepository()
	seed(t, repo, 1, "Нурофен", "Аспирин")
	seed(t, repo, 2, "Йод")
	sheet := &fakeSheet{}
	inv := NewInventoryUseCase(repo, sheet, discardLogger(), time.UTC, fixedNow)

	data, err := inv.Export(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("xlsx"), data)
	require.Len(t, sheet.built, 2)
	assert.Equal(t, "Аспирин", sheet.built[0].Name)
	assert.Equal(t, "Нурофен", sheet.built[1].Name)
}
