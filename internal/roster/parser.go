package roster

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one parsed roster line.
type Row struct {
	Name       string
	Size       string
	CouponCode string
}

// ErrEmptyRoster means the workbook opened fine but held no data rows.
var ErrEmptyRoster = errors.New("roster has no data rows")

// ParseRoster reads the first worksheet of an xlsx document. Column A is the
// participant name, column B the garment size, column C an optional coupon
// code. A leading header row and fully blank rows are skipped; a data row
// without a name is malformed and fails the whole parse.
func ParseRoster(data []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open roster workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyRoster
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	out := make([]Row, 0, len(rows))
	for i, cells := range rows {
		name := cellAt(cells, 0)
		size := cellAt(cells, 1)
		code := cellAt(cells, 2)

		if i == 0 && isHeader(name) {
			continue
		}
		if name == "" && size == "" && code == "" {
			continue
		}
		if name == "" {
			return nil, fmt.Errorf("roster row %d: name is empty", i+1)
		}
		out = append(out, Row{Name: name, Size: size, CouponCode: code})
	}

	if len(out) == 0 {
		return nil, ErrEmptyRoster
	}
	return out, nil
}

func cellAt(cells []string, i int) string {
	if i < len(cells) {
		return strings.TrimSpace(cells[i])
	}
	return ""
}

func isHeader(first string) bool {
	return strings.EqualFold(first, "name") || strings.EqualFold(first, "full name")
}
