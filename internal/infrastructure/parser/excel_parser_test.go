package parser

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/medkit-bot/internal/domain/entity"
)

func workbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", addr, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestExcelSheet_BuildThenParse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sheet := NewExcelSheet()
	meds := []entity.Medicine{
		{Name: "Аспирин", Quantity: "10 шт", Notes: "после еды", ExpDate: "2027-01-01"},
		{Name: "Йод", Quantity: "1 фл", Notes: "-", ExpDate: "2026-12-31"},
	}

	data, err := sheet.Build(ctx, meds)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"Аптечка"}, f.GetSheetList())
	header, err := f.GetCellValue("Аптечка", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Название", header)
	require.NoError(t, f.Close())

	rows, err := sheet.ParseBytes(ctx, data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for i, row := range rows {
		require.NoError(t, row.Err)
		assert.Equal(t, i+2, row.Line)
		assert.Equal(t, meds[i], row.Medicine)
	}
}

func TestExcelSheet_ParseHeaderMapping(t *testing.T) {
	t.Parallel()
	data := workbook(t, [][]interface{}{
		{"Срок годности", "Наименование", "Примечания", "Кол-во"},
		{"15.01.2027", "Нурофен", "", "20 шт"},
		{"2027/02/01", "Но-шпа", "при болях", "1 уп"},
	})

	rows, err := NewExcelSheet().ParseBytes(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, entity.Medicine{Name: "Нурофен", Quantity: "20 шт", Notes: "-", ExpDate: "2027-01-15"}, rows[0].Medicine)
	assert.Equal(t, entity.Medicine{Name: "Но-шпа", Quantity: "1 уп", Notes: "при болях", ExpDate: "2027-02-01"}, rows[1].Medicine)
}

func TestExcelSheet_ParseWithoutHeader(t *testing.T) {
	t.Parallel()
	data := workbook(t, [][]interface{}{
		{"Аспирин", "10 шт", "-", "2027-01-01"},
		{},
		{"Бинт", "2 шт", "", "2027-03-01"},
	})

	rows, err := NewExcelSheet().ParseBytes(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Line)
	assert.Equal(t, "Аспирин", rows[0].Medicine.Name)
	assert.Equal(t, 3, rows[1].Line)
}

func TestExcelSheet_ParseDateCells(t *testing.T) {
	t.Parallel()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Название", "Количество", "Примечания", "Срок"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Аспирин", "10", "-"}))
	require.NoError(t, f.SetCellValue("Sheet1", "D2", time.Date(2027, time.January, 15, 0, 0, 0, 0, time.UTC)))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := NewExcelSheet().ParseBytes(context.Background(), buf.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, rows[0].Err)
	assert.Equal(t, "2027-01-15", rows[0].Medicine.ExpDate)
}

func TestExcelSheet_ParseInvalidRows(t *testing.T) {
	t.Parallel()
	data := workbook(t, [][]interface{}{
		{"Название", "Количество", "Примечания", "Срок годности"},
		{"", "10", "-", "2027-01-01"},
		{"Аспирин", "", "-", "2027-01-01"},
		{"Йод", "1", "-", "когда-нибудь"},
		{"Бинт", "1", "-", ""},
	})

	rows, err := NewExcelSheet().ParseBytes(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for _, row := range rows {
		assert.Error(t, row.Err, "line %d", row.Line)
	}
}

func TestExcelSheet_ParseGarbage(t *testing.T) {
	t.Parallel()
	_, err := NewExcelSheet().ParseBytes(context.Background(), []byte("not a zip"))
	assert.Error(t, err)
}

func TestParseCellDate(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"2027-01-15": "2027-01-15",
		"15.01.2027": "2027-01-15",
		"2027/01/15": "2027-01-15",
		"15/01/2027": "2027-01-15",
		"46402":      "2027-01-15",
		"":           "",
		"завтра":     "",
		"-5":         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, parseCellDate(in), in)
	}
}
