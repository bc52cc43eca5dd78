package tabular

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/heartmarshall/aaed-cleaner/internal/domain"
)

// DecodeCSV parses a CSV upload. The first row must be the header.
func DecodeCSV(r io.Reader) ([]domain.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable column count

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &domain.SchemaError{Missing: RequiredColumns}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	layout, err := layoutFromHeader(header)
	if err != nil {
		return nil, err
	}

	var dataRows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		dataRows = append(dataRows, row)
	}

	return recordsFromRows(layout, dataRows)
}

// EncodeCSV writes records as CSV in the export column order.
func EncodeCSV(w io.Writer, recs []domain.Record) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(headerRow()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range recs {
		if err := writer.Write(recordRow(&recs[i])); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
