package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"github.com/yourusername/medkit-bot/internal/domain/entity"
	"github.com/yourusername/medkit-bot/internal/domain/repository"
)

const exportSheet = "Аптечка"

var exportHeader = []interface{}{"Название", "Количество", "Примечания", "Срок годности"}

type excelSheet struct{}

// NewExcelSheet xlsx codec for medicine lists
func NewExcelSheet() repository.InventorySheet {
	return &excelSheet{}
}

// ParseBytes reads medicine rows from the first sheet of an xlsx file
func (e *excelSheet) ParseBytes(ctx context.Context, data []byte) ([]repository.SheetRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open excel from bytes: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("excel file is empty")
	}

	// No header when the fourth column of the first row already holds a date.
	cols := defaultColumns
	start := 0
	if len(rows[0]) < 4 || parseCellDate(rows[0][3]) == "" {
		cols = mapColumns(rows[0])
		start = 1
	}

	var out []repository.SheetRow
	for i := start; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := rows[i]
		if blank(row) {
			continue
		}
		out = append(out, parseRow(i+1, row, cols))
	}
	return out, nil
}

type columns struct {
	name, quantity, notes, expiry int
}

var defaultColumns = columns{name: 0, quantity: 1, notes: 2, expiry: 3}

// mapColumns finds the columns by header keywords, falling back to the
// default order for anything not recognised.
func mapColumns(header []string) columns {
	cols := columns{name: -1, quantity: -1, notes: -1, expiry: -1}
	for i, col := range header {
		colName := strings.ToLower(strings.TrimSpace(col))
		switch {
		case cols.name < 0 && contains(colName, "name", "название", "наименование", "препарат", "лекарство"):
			cols.name = i
		case cols.quantity < 0 && contains(colName, "quantity", "qty", "количество", "кол-во"):
			cols.quantity = i
		case cols.notes < 0 && contains(colName, "notes", "note", "примечани", "заметк", "описание"):
			cols.notes = i
		case cols.expiry < 0 && contains(colName, "exp", "срок", "годен", "date", "дата"):
			cols.expiry = i
		}
	}

	if cols.name < 0 {
		cols.name = defaultColumns.name
	}
	if cols.quantity < 0 {
		cols.quantity = defaultColumns.quantity
	}
	if cols.notes < 0 {
		cols.notes = defaultColumns.notes
	}
	if cols.expiry < 0 {
		cols.expiry = defaultColumns.expiry
	}
	return cols
}

func contains(str string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(str, keyword) {
			return true
		}
	}
	return false
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseRow(line int, row []string, cols columns) repository.SheetRow {
	med := entity.Medicine{
		Name:     cell(row, cols.name),
		Quantity: cell(row, cols.quantity),
		Notes:    cell(row, cols.notes),
	}
	if med.Notes == "" {
		med.Notes = "-"
	}

	res := repository.SheetRow{Line: line, Medicine: med}
	switch {
	case med.Name == "":
		res.Err = errors.New("empty name")
	case med.Quantity == "":
		res.Err = errors.New("empty quantity")
	default:
		raw := cell(row, cols.expiry)
		res.Medicine.ExpDate = parseCellDate(raw)
		if res.Medicine.ExpDate == "" {
			res.Err = fmt.Errorf("bad expiry date %q", raw)
		}
	}
	return res
}

var cellDateLayouts = []string{entity.DateLayout, "02.01.2006", "2006/01/02", "02/01/2006"}

// parseCellDate normalises a date cell to YYYY-MM-DD; "" when it is not a date.
// Raw date cells come as Excel serial numbers.
func parseCellDate(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	for _, layout := range cellDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(entity.DateLayout)
		}
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format(entity.DateLayout)
		}
	}
	return ""
}

// Build renders medicines as an xlsx file with a header row
func (e *excelSheet) Build(ctx context.Context, meds []entity.Medicine) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	if err := f.SetCellStyle(exportSheet, "A1", "D1", bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, med := range meds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{med.Name, med.Quantity, med.Notes, med.ExpDate}
		if err := f.SetSheetRow(exportSheet, addr, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(exportSheet, "A", "A", 32); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, "B", "D", 18); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel: %w", err)
	}
	return buf.Bytes(), nil
}
