package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/curvewatch/curvewatch/pkg/models"
	"github.com/curvewatch/curvewatch/pkg/utils"
)

// RawSnapshotPath returns the path of a raw per-series snapshot:
// <dir>/<source>_<name>_<date>.csv.
func RawSnapshotPath(dir, source, name, date string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s_%s.csv", source, name, date))
}

// WriteRawCSV writes observations as a two-column date,value CSV.
func WriteRawCSV(path string, obs []models.Observation) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create raw dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "value"}); err != nil {
		return err
	}
	for _, o := range obs {
		rec := []string{utils.FormatDate(o.Date), strconv.FormatFloat(o.Value, 'f', -1, 64)}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadRawCSV reads a two-column date,value CSV back into observations.
// Rows with a blank or unparseable value are skipped.
func ReadRawCSV(path string) ([]models.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse raw csv %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	var obs []models.Observation
	for _, rec := range records[1:] {
		if len(rec) < 2 {
			continue
		}
		date, err := utils.ParseDate(rec[0])
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			continue
		}
		obs = append(obs, models.Observation{Date: date, Value: v})
	}
	return obs, nil
}

// LatestSampleFile returns the newest sample file for a series name,
// matching <anything>_<name>_<anything>.csv in dir. Names sort by
// trailing date stamp, so the lexicographic max is the newest.
func LatestSampleFile(dir, name string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*_"+name+"_*.csv"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no sample file for %s in %s", name, dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}
