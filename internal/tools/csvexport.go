package tools

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/okmeso/okmeso/internal/domain"
)

// timeLayout is the timestamp format in exported CSV files.
const timeLayout = "2006-01-02 15:04:05"

// filenameDateLayout is the MMDDYY form used in generated file names.
const filenameDateLayout = "010206"

var validFilename = regexp.MustCompile(`^[A-Za-z0-9._\-]+$`)

// ErrFileExists is returned when an export would overwrite a file without
// force set.
var ErrFileExists = errors.New("file already exists; pass force to overwrite")

// SaveCSV writes the table to dir as CSV and returns the path written. An
// empty filename generates STID_MMDDYY-MMDDYY.csv from the table's range.
func (tk *Toolkit) SaveCSV(t *domain.Table, dir, filename string, force bool) (string, error) {
	if t.Len() == 0 {
		return "", fmt.Errorf("table for station %s is empty", t.STID)
	}
	if filename == "" {
		filename = fmt.Sprintf("%s_%s-%s.csv", t.STID,
			t.Times[0].Format(filenameDateLayout), t.Times[t.Len()-1].Format(filenameDateLayout))
	}
	path, err := tk.exportPath(dir, filename, force)
	if err != nil {
		return "", err
	}
	if err := writeCSV(path, []*domain.Table{t}); err != nil {
		return "", err
	}
	tk.metrics.ExportedRows.WithLabelValues("csv").Add(float64(t.Len()))
	return path, nil
}

// SaveCSVSet writes every table in the set to one CSV file, concatenated in
// STID order. An empty filename generates
// STID_and-N-more_MMDDYY-MMDDYY.csv from the first station's range.
func (tk *Toolkit) SaveCSVSet(set domain.TableSet, dir, filename string, force bool) (string, error) {
	if len(set) == 0 {
		return "", errors.New("no tables to save")
	}
	ids := sortedIDs(set)
	tables := make([]*domain.Table, 0, len(ids))
	rows := 0
	for _, id := range ids {
		if set[id].Len() == 0 {
			return "", fmt.Errorf("table for station %s is empty", id)
		}
		tables = append(tables, set[id])
		rows += set[id].Len()
	}

	if filename == "" {
		first := tables[0]
		filename = fmt.Sprintf("%s_and-%d-more_%s-%s.csv", first.STID, len(tables)-1,
			first.Times[0].Format(filenameDateLayout), first.Times[first.Len()-1].Format(filenameDateLayout))
	}
	path, err := tk.exportPath(dir, filename, force)
	if err != nil {
		return "", err
	}
	if err := writeCSV(path, tables); err != nil {
		return "", err
	}
	tk.metrics.ExportedRows.WithLabelValues("csv").Add(float64(rows))
	return path, nil
}

func (tk *Toolkit) exportPath(dir, filename string, force bool) (string, error) {
	if !validFilename.MatchString(filename) {
		return "", fmt.Errorf("invalid filename %q: only alphanumerics, hyphens, underscores, and periods are allowed", filename)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(dir, filename)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s: %w", path, ErrFileExists)
	}
	return path, nil
}

// writeCSV writes tables sequentially under a single header. The column set
// is the union across tables; cells a table lacks are left empty, as are NaN
// cells.
func writeCSV(path string, tables []*domain.Table) error {
	var columns []string
	seen := make(map[string]bool)
	for _, t := range tables {
		for _, name := range t.Columns() {
			if !seen[name] {
				seen[name] = true
				columns = append(columns, name)
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"DATETIME", "STID"}, columns...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(header))
	for _, t := range tables {
		for i := 0; i < t.Len(); i++ {
			record[0] = t.Times[i].Format(timeLayout)
			record[1] = t.STID
			for c, name := range columns {
				record[c+2] = ""
				vals, err := t.Column(name)
				if err != nil {
					continue
				}
				if v := vals[i]; !math.IsNaN(v) {
					record[c+2] = strconv.FormatFloat(v, 'g', -1, 64)
				}
			}
			if err := w.Write(record); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}
