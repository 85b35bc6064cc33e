package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("Failed to build cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("Failed to write sheet row: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("Failed to serialize workbook: %v", err)
	}
	return buf
}

func TestParseClientRows(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"Name", "Address"},
		{"Lakeside HOA", "12 Shore Dr"},
		{"", ""},
		{"Palm Court Apartments", "88 Palm Ct"},
	})

	rows, err := ParseClientRows(buf)
	assert.NoError(t, err)
	assert.Equal(t, []ClientRow{
		{Name: "Lakeside HOA", Address: "12 Shore Dr"},
		{Name: "Palm Court Apartments", Address: "88 Palm Ct"},
	}, rows)
}

func TestParseClientRowsHeaderMatching(t *testing.T) {
	// Case-insensitive headers in any column order
	buf := buildWorkbook(t, [][]interface{}{
		{"Phone", "ADDRESS", "name"},
		{"555-0100", "12 Shore Dr", "Lakeside HOA"},
	})

	rows, err := ParseClientRows(buf)
	assert.NoError(t, err)
	assert.Equal(t, []ClientRow{{Name: "Lakeside HOA", Address: "12 Shore Dr"}}, rows)
}

func TestParseClientRowsMissingColumns(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"Name", "Phone"},
		{"Lakeside HOA", "555-0100"},
	})

	_, err := ParseClientRows(buf)

	var importErr *ImportError
	assert.ErrorAs(t, err, &importErr)
	assert.Equal(t, "MISSING_COLUMNS", importErr.Code)
}

func TestParseClientRowsRejectsNonWorkbook(t *testing.T) {
	_, err := ParseClientRows(strings.NewReader("this is not an xlsx file"))

	var importErr *ImportError
	assert.ErrorAs(t, err, &importErr)
	assert.Equal(t, "INVALID_WORKBOOK", importErr.Code)
}

func TestParseClientRowsTrimsWhitespace(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{" Name ", " Address "},
		{"  Lakeside HOA  ", "  12 Shore Dr  "},
	})

	rows, err := ParseClientRows(buf)
	assert.NoError(t, err)
	assert.Equal(t, []ClientRow{{Name: "Lakeside HOA", Address: "12 Shore Dr"}}, rows)
}
