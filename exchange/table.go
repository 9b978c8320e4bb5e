// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package exchange

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

type Kind string

const (
	KindRespondents Kind = "respondents"
	KindResponses   Kind = "responses"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const sheetName = "Data"

var (
	ErrUnknownKind   = errors.New("type must be respondents or responses")
	ErrUnknownFormat = errors.New("format must be csv or xlsx")
	ErrEmpty         = errors.New("file has no data rows")
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindRespondents, KindResponses:
		return k, nil
	case "":
		return KindRespondents, nil
	}
	return "", ErrUnknownKind
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	case "":
		return FormatCSV, nil
	}
	return "", ErrUnknownFormat
}

// FormatFromFilename picks the format of an uploaded file by extension
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported file %q, upload a .csv or .xlsx file", name)
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename is the download name, e.g. responses_2025-03-01.xlsx
func Filename(k Kind, f Format, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", k, now.UTC().Format(time.DateOnly), f)
}

// Table is a header row plus string cells
type Table struct {
	Header []string
	Rows   [][]string
}

// Write encodes t in the given format
func (t Table) Write(w io.Writer, f Format) error {
	if f == FormatXLSX {
		return t.writeXLSX(w)
	}
	return t.writeCSV(w)
}

func (t Table) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

func (t Table) writeXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	write := func(row int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := make([]any, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		return sw.SetRow(cell, values)
	}

	if err := write(1, t.Header); err != nil {
		return fmt.Errorf("failed to write xlsx header: %w", err)
	}
	for i, row := range t.Rows {
		if err := write(i+2, row); err != nil {
			return fmt.Errorf("failed to write xlsx row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush xlsx: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

// ReadTable decodes an uploaded file. Only the first sheet of a workbook is
// read; blank rows are skipped.
func ReadTable(r io.Reader, f Format) (Table, error) {
	var records [][]string
	switch f {
	case FormatXLSX:
		wb, err := excelize.OpenReader(r)
		if err != nil {
			return Table{}, fmt.Errorf("failed to open workbook: %w", err)
		}
		defer wb.Close()
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return Table{}, ErrEmpty
		}
		records, err = wb.GetRows(sheets[0])
		if err != nil {
			return Table{}, fmt.Errorf("failed to read sheet: %w", err)
		}
	default:
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		var err error
		records, err = cr.ReadAll()
		if err != nil {
			return Table{}, fmt.Errorf("failed to parse csv: %w", err)
		}
	}

	var t Table
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		if t.Header == nil {
			t.Header = rec
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	if len(t.Rows) == 0 {
		return Table{}, ErrEmpty
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// columns looks cells up by header name
type columns map[string]int

func (t Table) columns() columns {
	c := make(columns, len(t.Header))
	for i, h := range t.Header {
		// A UTF-8 BOM survives in CSVs saved by spreadsheet tools
		h = strings.TrimPrefix(h, "\ufeff")
		c[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return c
}

// get returns the first non-empty cell among names
func (c columns) get(row []string, names ...string) string {
	for _, n := range names {
		i, ok := c[n]
		if !ok || i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			return v
		}
	}
	return ""
}

func (c columns) has(names ...string) bool {
	for _, n := range names {
		if _, ok := c[n]; ok {
			return true
		}
	}
	return false
}
