package tabular

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/heartmarshall/aaed-cleaner/internal/domain"
)

// DecodeXLSX parses an XLSX upload. Only the first sheet is read; its
// first row must be the header.
func DecodeXLSX(r io.Reader) ([]domain.Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &domain.SchemaError{Missing: RequiredColumns}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, &domain.SchemaError{Missing: RequiredColumns}
	}

	layout, err := layoutFromHeader(rows[0])
	if err != nil {
		return nil, err
	}

	return recordsFromRows(layout, rows[1:])
}

// EncodeXLSX writes records to a single-sheet workbook in the export
// column order.
func EncodeXLSX(w io.Writer, recs []domain.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	if err := setRow(f, sheet, 1, headerRow()); err != nil {
		return err
	}
	for i := range recs {
		if err := setRow(f, sheet, i+2, recordRow(&recs[i])); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cellName, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", rowNum, err)
	}

	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}

	if err := f.SetSheetRow(sheet, cellName, &row); err != nil {
		return fmt.Errorf("set row %d: %w", rowNum, err)
	}
	return nil
}
