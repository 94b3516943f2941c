// Package tabular loads link-metrics exports (CSV or XLSX), resolves
// column roles from header aliases, and groups rows into per-domain
// records for analysis.
package tabular

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Row is one data row keyed by the original header names.
type Row map[string]string

// Table is a loaded export.
type Table struct {
	Path    string
	Headers []string
	Rows    []Row
}

// Load reads the export at path. The format is chosen by extension;
// anything that is not .xlsx is treated as CSV.
func Load(path string) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return loadXLSX(path)
	}
	return loadCSV(path)
}

func loadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: open csv")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "tabular: read csv")
	}
	if len(records) == 0 {
		return nil, eris.Errorf("tabular: %s has no header row", path)
	}
	return fromRecords(path, records), nil
}

func loadXLSX(path string) (*Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("tabular: %s has no sheets", path)
	}

	var records [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		records = append(records, cells)
	}
	if len(records) == 0 {
		return nil, eris.Errorf("tabular: %s has no header row", path)
	}
	return fromRecords(path, records), nil
}

func fromRecords(path string, records [][]string) *Table {
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return &Table{Path: path, Headers: headers, Rows: rows}
}

// WriteCSV writes headers plus rows to path in header order.
func WriteCSV(path string, headers []string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "tabular: create csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return eris.Wrap(err, "tabular: write header")
	}
	rec := make([]string, len(headers))
	for _, row := range rows {
		for i, h := range headers {
			rec[i] = row[h]
		}
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "tabular: write row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "tabular: flush csv")
}
