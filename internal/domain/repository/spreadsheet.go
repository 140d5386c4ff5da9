package repository

import (
	"context"

	"github.com/yourusername/medkit-bot/internal/domain/entity"
)

// SheetRow one parsed spreadsheet row; Err is set when the row is unusable.
type SheetRow struct {
	Line     int
	Medicine entity.Medicine
	Err      error
}

// InventorySheet spreadsheet import/export of a medicine list
type InventorySheet interface {
	// ParseBytes reads rows (name, quantity, notes, exp_date) from an xlsx file
	ParseBytes(ctx context.Context, data []byte) ([]SheetRow, error)

	// Build renders medicines as an xlsx file
	Build(ctx context.Context, meds []entity.Medicine) ([]byte, error)
}
