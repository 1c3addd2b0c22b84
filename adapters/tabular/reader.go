package tabular

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"her2lab/domain/cohort"
)

// TableReader loads a CSV or Excel file into a RawTable
type TableReader struct {
	path string
	kind string // "csv" or "xlsx"
}

// NewTableReader creates a reader for one file, picking the format from the
// extension. Anything that is not a workbook is treated as CSV.
func NewTableReader(path string) *TableReader {
	ext := strings.ToLower(filepath.Ext(path))
	kind := "csv"
	if ext == ".xlsx" || ext == ".xls" {
		kind = "xlsx"
	}
	return &TableReader{path: path, kind: kind}
}

// Read loads the file into a RawTable: headers snake_cased, cells trimmed,
// every row padded or truncated to the header width.
func (r *TableReader) Read() (*RawTable, error) {
	log.Printf("[TableReader] Reading %s file: %s", r.kind, r.path)

	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.kind), r.path)
	}

	switch r.kind {
	case "xlsx":
		return r.readWorkbook()
	default:
		return r.readCSV()
	}
}

func (r *TableReader) readCSV() (*RawTable, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Dataset exports routinely carry ragged rows; width is normalized
	// against the header in buildTable.
	reader.FieldsPerRecord = -1

	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	readTime := time.Since(readStart)
	log.Printf("[TableReader] CSV file read in %.2fms (%d rows)", float64(readTime.Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV file must have at least a header row and one data row")
	}

	return r.buildTable(rows)
}

func (r *TableReader) readWorkbook() (*RawTable, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	openTime := time.Since(startTime)
	log.Printf("[TableReader] Workbook opened in %.2fms", float64(openTime.Nanoseconds())/1e6)

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets: %s", r.path)
	}

	readStart := time.Now()
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	readTime := time.Since(readStart)
	log.Printf("[TableReader] Sheet %s read in %.2fms (%d rows)", sheet, float64(readTime.Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("workbook must have at least a header row and one data row")
	}

	return r.buildTable(rows)
}

// buildTable normalizes raw string rows into the RawTable shape. Header
// names collide after snake_casing occasionally; the first occurrence wins
// and later duplicates are dropped with their cells.
func (r *TableReader) buildTable(rows [][]string) (*RawTable, error) {
	type column struct {
		idx  int
		name string
	}

	var columns []column
	seen := make(map[string]bool)
	for i, raw := range rows[0] {
		name := cohort.ToSnake(raw)
		if name == "" {
			name = fmt.Sprintf("unnamed_%d", i)
		}
		if seen[name] {
			log.Printf("[TableReader] Duplicate column %q at position %d ignored", name, i)
			continue
		}
		seen[name] = true
		columns = append(columns, column{idx: i, name: name})
	}

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.name
	}

	dataRows := make([]RawRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rowData := make(RawRow, len(columns))
		for _, col := range columns {
			cell := ""
			if col.idx < len(row) {
				cell = strings.TrimSpace(row[col.idx])
			}
			rowData[col.name] = cell
		}
		dataRows = append(dataRows, rowData)
	}

	log.Printf("[TableReader] %s file processed (%d columns, %d rows)",
		strings.ToUpper(r.kind), len(headers), len(dataRows))

	return &RawTable{
		Path:    r.path,
		Headers: headers,
		Rows:    dataRows,
	}, nil
}
