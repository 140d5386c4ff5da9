package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourusername/medkit-bot/internal/domain/entity"
	"github.com/yourusername/medkit-bot/internal/domain/repository"
)

// ImportResult outcome of a spreadsheet import
type ImportResult struct {
	Added      int
	Duplicates int
	Invalid    int
	// Line numbers of the skipped invalid rows, capped for display.
	InvalidLines []int
}

// Summary user-facing report of an import.
func (r ImportResult) Summary() string {
	text := fmt.Sprintf("📥 Импорт завершен.\n\nДобавлено: %d\nУже были в аптечке: %d\nПропущено с ошибками: %d",
		r.Added, r.Duplicates, r.Invalid)
	if len(r.InvalidLines) > 0 {
		text += fmt.Sprintf("\nСтроки с ошибками: %v", r.InvalidLines)
	}
	return text
}

const maxReportedLines = 20

// InventoryUseCase spreadsheet import and export of a user's medicines
type InventoryUseCase interface {
	// Import adds the rows of an xlsx file to owner's cabinet
	Import(ctx context.Context, owner int64, data []byte) (ImportResult, error)

	// Export owner's cabinet as an xlsx file
	Export(ctx context.Context, owner int64) ([]byte, error)
}

type inventoryUseCase struct {
	repo  repository.MedicineRepository
	sheet repository.InventorySheet
	log   *slog.Logger
	loc   *time.Location
	now   func() time.Time
}

// NewInventoryUseCase creates an InventoryUseCase
func NewInventoryUseCase(repo repository.MedicineRepository, sheet repository.InventorySheet, log *slog.Logger, loc *time.Location, now func() time.Time) InventoryUseCase {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &inventoryUseCase{
		repo:  repo,
		sheet: sheet,
		log:   log.With("component", "inventory"),
		loc:   loc,
		now:   now,
	}
}

// Import adds the rows of an xlsx file to owner's cabinet. Rows that are
// invalid, expired or already present are skipped and counted.
func (u *inventoryUseCase) Import(ctx context.Context, owner int64, data []byte) (ImportResult, error) {
	rows, err := u.sheet.ParseBytes(ctx, data)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to parse spreadsheet: %w", err)
	}

	today := entity.Today(u.now(), u.loc)
	var res ImportResult
	skip := func(line int) {
		res.Invalid++
		if len(res.InvalidLines) < maxReportedLines {
			res.InvalidLines = append(res.InvalidLines, line)
		}
	}

	for _, row := range rows {
		if row.Err != nil {
			skip(row.Line)
			continue
		}
		exp, err := entity.ParseDate(row.Medicine.ExpDate, u.loc)
		if err != nil || exp.Before(today) {
			skip(row.Line)
			continue
		}

		med := row.Medicine
		med.Owner = owner
		med.NameKey = entity.NameKey(med.Name)
		med.ExpDate = entity.FormatDate(exp)

		err = u.repo.Insert(ctx, &med)
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			res.Duplicates++
		case err != nil:
			return res, fmt.Errorf("failed to insert row %d: %w", row.Line, err)
		default:
			res.Added++
		}
	}

	u.log.InfoContext(ctx, "spreadsheet imported",
		slog.Int64("user_id", owner),
		slog.Int("added", res.Added),
		slog.Int("duplicates", res.Duplicates),
		slog.Int("invalid", res.Invalid),
	)
	return res, nil
}

// Export owner's cabinet as an xlsx file
func (u *inventoryUseCase) Export(ctx context.Context, owner int64) ([]byte, error) {
	meds, err := u.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list medicines: %w", err)
	}
	data, err := u.sheet.Build(ctx, meds)
	if err != nil {
		return nil, fmt.Errorf("failed to build spreadsheet: %w", err)
	}
	u.log.InfoContext(ctx, "spreadsheet exported", slog.Int64("user_id", owner), slog.Int("rows", len(meds)))
	return data, nil
}
