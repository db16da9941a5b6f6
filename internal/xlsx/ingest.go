// Package xlsx decodes an uploaded workbook into header-keyed rows for
// the invitation pipeline. Only the first sheet is read; the first
// occupied row supplies the header labels.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/unidoc/unioffice/spreadsheet/reference"

	"invitegen/internal/event"
)

// ErrNoData means the workbook decoded fine but produced zero data
// rows (no sheet, empty sheet, or header row only).
var ErrNoData = errors.New("no data rows")

// DecodeError wraps a failure to read the byte buffer as an xlsx
// container.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode workbook: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// Parse decodes the first sheet of a workbook into ordered RawRows.
// Cells are read raw, so date cells keep their numeric serial text for
// the normalizer to decode. Empty cells and cells under no header are
// omitted from their row, matching the sparse-row contract.
func Parse(r io.ReaderAt, size int64) ([]event.RawRow, error) {
	wb, err := spreadsheet.Read(r, size)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	sheets := wb.Sheets()
	if len(sheets) == 0 {
		return nil, ErrNoData
	}

	// Rows can be sparse and out of order in the file, so gather cell
	// text keyed by (row number, column index) first.
	byRow := make(map[int]map[int]string)
	for _, row := range sheets[0].Rows() {
		num := int(row.RowNumber())
		for _, cell := range row.Cells() {
			colName, err := cell.Column()
			if err != nil {
				continue
			}
			v, err := cell.GetRawValue()
			if err != nil || v == "" {
				v = cell.GetFormattedValue()
			}
			if v == "" {
				continue
			}
			if byRow[num] == nil {
				byRow[num] = make(map[int]string)
			}
			byRow[num][int(reference.ColumnToIndex(colName))] = v
		}
	}
	if len(byRow) == 0 {
		return nil, ErrNoData
	}

	nums := make([]int, 0, len(byRow))
	for n := range byRow {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	headers := byRow[nums[0]]
	rows := make([]event.RawRow, 0, len(nums)-1)
	for _, n := range nums[1:] {
		rr := make(event.RawRow, len(byRow[n]))
		for col, v := range byRow[n] {
			label, ok := headers[col]
			if !ok {
				continue
			}
			rr[label] = v
		}
		if len(rr) == 0 {
			continue
		}
		rows = append(rows, rr)
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	return rows, nil
}

// Headers returns the label set of a row in unspecified order, for the
// batch-level column contract check.
func Headers(row event.RawRow) []string {
	hs := make([]string, 0, len(row))
	for h := range row {
		hs = append(hs, h)
	}
	return hs
}
