// Package tabular reads and writes the spreadsheet format used by the
// source-data cleaning workflow. Pure functions: readers/writers in,
// domain records out. No database dependencies.
package tabular

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/heartmarshall/aaed-cleaner/internal/domain"
)

// Column names of the source spreadsheet. The label column is created on
// export when the input did not carry one.
const (
	colIndex     = "index"
	colSubIndex  = "sub_index"
	colEntry     = "entry"
	colGloss     = "gloss"
	colWord      = "word"
	colHomophone = "homophone"
)

// outputPrefix is prepended to the input file name for the export artifact.
const outputPrefix = "classified_"

// RequiredColumns lists the columns an upload must contain.
var RequiredColumns = []string{colIndex, colSubIndex, colEntry, colGloss, colWord}

// OutputName derives the suggested export file name from the input name.
func OutputName(in string) string {
	return outputPrefix + filepath.Base(in)
}

// Decode parses an uploaded spreadsheet into records, dispatching on the
// file extension. Supported: .xlsx, .csv.
func Decode(name string, r io.Reader) ([]domain.Record, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return DecodeXLSX(r)
	case ".csv":
		return DecodeCSV(r)
	default:
		return nil, domain.NewValidationError("file", fmt.Sprintf("unsupported file type %q (want .xlsx or .csv)", filepath.Ext(name)))
	}
}

// Encode serializes records to the format matching the file extension of
// name. Supported: .xlsx, .csv.
func Encode(name string, w io.Writer, recs []domain.Record) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return EncodeXLSX(w, recs)
	case ".csv":
		return EncodeCSV(w, recs)
	default:
		return domain.NewValidationError("file", fmt.Sprintf("unsupported file type %q (want .xlsx or .csv)", filepath.Ext(name)))
	}
}

// ContentType returns the MIME type for an export file name.
func ContentType(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// columnLayout maps header names to their cell positions in one sheet.
type columnLayout struct {
	index     int
	subIndex  int
	entry     int
	gloss     int
	word      int
	homophone int // -1 when the column is absent
}

// layoutFromHeader resolves the column layout from a header row.
// Every missing required column is reported in a single SchemaError.
func layoutFromHeader(header []string) (*columnLayout, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := positions[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.SchemaError{Missing: missing}
	}

	layout := &columnLayout{
		index:     positions[colIndex],
		subIndex:  positions[colSubIndex],
		entry:     positions[colEntry],
		gloss:     positions[colGloss],
		word:      positions[colWord],
		homophone: -1,
	}
	if pos, ok := positions[colHomophone]; ok {
		layout.homophone = pos
	}
	return layout, nil
}

// recordsFromRows converts data rows (header excluded) into records,
// collecting every field error before failing. Blank rows are skipped.
// Row numbers in errors are 1-based and count the header row.
func recordsFromRows(layout *columnLayout, dataRows [][]string) ([]domain.Record, error) {
	var errs []domain.FieldError
	var recs []domain.Record
	seen := make(map[domain.RecordKey]int)

	for i, row := range dataRows {
		rowNum := i + 2 // 1-based, after the header
		if blankRow(row) {
			continue
		}

		rec := domain.Record{
			Index:    cell(row, layout.index),
			Entry:    cell(row, layout.entry),
			Gloss:    cell(row, layout.gloss),
			Word:     cell(row, layout.word),
			Position: len(recs),
		}

		if rec.Index == "" {
			errs = append(errs, domain.FieldError{
				Field:   fmt.Sprintf("row %d: %s", rowNum, colIndex),
				Message: "required",
			})
		}
		if rec.Word == "" {
			errs = append(errs, domain.FieldError{
				Field:   fmt.Sprintf("row %d: %s", rowNum, colWord),
				Message: "required",
			})
		}

		sub, err := strconv.Atoi(cell(row, layout.subIndex))
		if err != nil {
			errs = append(errs, domain.FieldError{
				Field:   fmt.Sprintf("row %d: %s", rowNum, colSubIndex),
				Message: "must be an integer",
			})
		}
		rec.SubIndex = sub

		if layout.homophone >= 0 {
			raw := cell(row, layout.homophone)
			if raw != "" {
				label, err := parseLabel(raw)
				if err != nil {
					errs = append(errs, domain.FieldError{
						Field:   fmt.Sprintf("row %d: %s", rowNum, colHomophone),
						Message: "must be a positive integer",
					})
				} else {
					rec.Homophone = &label
				}
			}
		}

		key := rec.Key()
		if firstRow, dup := seen[key]; dup {
			errs = append(errs, domain.FieldError{
				Field:   fmt.Sprintf("row %d: %s/%s", rowNum, colIndex, colSubIndex),
				Message: fmt.Sprintf("duplicate identity %s (first seen at row %d)", key, firstRow),
			})
		} else {
			seen[key] = rowNum
		}

		recs = append(recs, rec)
	}

	if len(errs) > 0 {
		return nil, domain.NewValidationErrors(errs)
	}
	return recs, nil
}

// parseLabel parses a homophone label cell. Spreadsheet tools often store
// integers as floats ("2.0"), so both forms are accepted.
func parseLabel(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 1 {
			return 0, fmt.Errorf("label %d out of range", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) || int(f) < 1 {
		return 0, fmt.Errorf("invalid label %q", raw)
	}
	return int(f), nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// headerRow is the column order used on export: original columns first,
// then the label column.
func headerRow() []string {
	return []string{colIndex, colSubIndex, colEntry, colGloss, colWord, colHomophone}
}

// recordRow renders one record for export. Unresolved rows get an empty
// label cell.
func recordRow(rec *domain.Record) []string {
	label := ""
	if rec.Homophone != nil {
		label = strconv.Itoa(*rec.Homophone)
	}
	return []string{
		rec.Index,
		strconv.Itoa(rec.SubIndex),
		rec.Entry,
		rec.Gloss,
		rec.Word,
		label,
	}
}
