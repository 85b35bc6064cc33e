package utils

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ClientRow is one client parsed from an imported spreadsheet
type ClientRow struct {
	Name    string
	Address string
}

// ImportError represents a spreadsheet import validation error
type ImportError struct {
	Code    string
	Message string
}

func (e *ImportError) Error() string {
	return e.Message
}

// ParseClientRows reads client records from the first sheet of an .xlsx
// workbook. The sheet must carry "Name" and "Address" columns (matched
// case-insensitively); blank rows are skipped.
func ParseClientRows(r io.Reader) ([]ClientRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ImportError{Code: "INVALID_WORKBOOK", Message: fmt.Sprintf("could not open workbook: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ImportError{Code: "EMPTY_WORKBOOK", Message: "workbook has no sheets"}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ImportError{Code: "INVALID_WORKBOOK", Message: fmt.Sprintf("could not read sheet: %v", err)}
	}
	if len(rows) == 0 {
		return nil, &ImportError{Code: "MISSING_HEADER", Message: "sheet has no header row"}
	}

	nameCol, addressCol := -1, -1
	for i, header := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(header)) {
		case "name":
			nameCol = i
		case "address":
			addressCol = i
		}
	}
	if nameCol < 0 || addressCol < 0 {
		return nil, &ImportError{Code: "MISSING_COLUMNS", Message: "sheet must have Name and Address columns"}
	}

	var clients []ClientRow
	for _, row := range rows[1:] {
		name := cellAt(row, nameCol)
		address := cellAt(row, addressCol)
		if name == "" && address == "" {
			continue
		}
		clients = append(clients, ClientRow{Name: name, Address: address})
	}

	return clients, nil
}

func cellAt(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
