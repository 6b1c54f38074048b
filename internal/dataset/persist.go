package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/curvewatch/curvewatch/pkg/utils"
)

const (
	// ProcessedCSV is the canonical processed dataset file name. The
	// viewer and the API both read this layout.
	ProcessedCSV = "daily.csv"

	// ProcessedJSON is the same table as row objects with nulls for
	// missing cells.
	ProcessedJSON = "daily.json"
)

// Save writes the frame to dir as both CSV and JSON, creating the
// directory if needed. Returns the CSV path.
func (f *Frame) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create processed dir: %w", err)
	}

	csvPath := filepath.Join(dir, ProcessedCSV)
	if err := f.writeCSVFile(csvPath); err != nil {
		return "", err
	}
	if err := f.writeJSONFile(filepath.Join(dir, ProcessedJSON)); err != nil {
		return "", err
	}
	return csvPath, nil
}

func (f *Frame) writeCSVFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()
	return f.WriteCSV(file)
}

// WriteCSV writes the frame with a date column first. NaN cells are
// left empty.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append([]string{"date"}, f.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i, d := range f.Dates {
		row[0] = utils.FormatDate(d)
		for j, name := range f.Columns {
			v := f.data[name][i]
			if math.IsNaN(v) {
				row[j+1] = ""
			} else {
				row[j+1] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func (f *Frame) writeJSONFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()
	return f.WriteJSON(file)
}

// WriteJSON writes the frame as an array of row objects. Missing cells
// become null.
func (f *Frame) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f.Rows(time.Time{}, time.Time{}))
}

// Rows returns the frame as row objects between start and end
// inclusive. Zero bounds are open. Missing cells become nil.
func (f *Frame) Rows(start, end time.Time) []map[string]any {
	rows := make([]map[string]any, 0, len(f.Dates))
	for i, d := range f.Dates {
		if !start.IsZero() && d.Before(start) {
			continue
		}
		if !end.IsZero() && d.After(end) {
			continue
		}
		row := make(map[string]any, len(f.Columns)+1)
		row["date"] = utils.FormatDate(d)
		for _, name := range f.Columns {
			v := f.data[name][i]
			if math.IsNaN(v) {
				row[name] = nil
			} else {
				row[name] = v
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Load reads the processed CSV from dir.
func Load(dir string) (*Frame, error) {
	file, err := os.Open(filepath.Join(dir, ProcessedCSV))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCSV(file)
}

// ReadCSV parses the daily.csv layout back into a frame. Empty cells
// and unparseable numbers load as NaN.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 1 || header[0] != "date" {
		return nil, fmt.Errorf("unexpected header: %v", header)
	}
	cols := header[1:]

	f := NewFrame()
	values := make([][]float64, len(cols))
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		d, err := utils.ParseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", rec[0], err)
		}
		f.Dates = append(f.Dates, d)

		for j := range cols {
			v := math.NaN()
			if j+1 < len(rec) && rec[j+1] != "" {
				if parsed, err := strconv.ParseFloat(rec[j+1], 64); err == nil {
					v = parsed
				}
			}
			values[j] = append(values[j], v)
		}
	}

	for j, name := range cols {
		f.AddColumn(name, values[j])
	}
	return f, nil
}

// ModTime returns the processed CSV's modification time, used by the
// API to detect when the pipeline has refreshed the dataset.
func ModTime(dir string) (time.Time, error) {
	info, err := os.Stat(filepath.Join(dir, ProcessedCSV))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
