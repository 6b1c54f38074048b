package pipeline

import (
	"math/rand"
	"time"

	"github.com/curvewatch/curvewatch/internal/config"
	"github.com/curvewatch/curvewatch/pkg/models"
	"github.com/curvewatch/curvewatch/pkg/utils"
)

// Starting levels for the sample random walks, roughly where the
// benchmark curves sat in late 2023.
var sampleBase = map[string]float64{
	"US_3M": 5.3, "US_2Y": 4.6, "US_5Y": 4.2, "US_10Y": 4.1, "US_30Y": 4.2,
	"CA_3M": 5.1, "CA_2Y": 4.2, "CA_5Y": 3.7, "CA_10Y": 3.6, "CA_30Y": 3.7,
	"USDCAD": 1.36,
}

const (
	sampleDays  = 260
	sampleDrift = 0.0
	sampleVol   = 0.03
	sampleFXVol = 0.005
)

// GenerateSample writes deterministic sample snapshots for every
// configured series into dir, one <source>_<name>_<today>.csv each, so
// the pipeline can run offline. Returns the written paths.
func GenerateSample(dir string, series []config.SeriesSpec, seed int64) ([]string, error) {
	rng := rand.New(rand.NewSource(seed))
	days := utils.BusinessDaysEnding(time.Now().UTC(), sampleDays)
	today := utils.TodayString()

	var written []string
	for _, s := range series {
		base, ok := sampleBase[s.Name]
		if !ok {
			base = 4.0
		}
		vol := sampleVol
		if s.Country == "FX" {
			vol = sampleFXVol
		}

		obs := make([]models.Observation, len(days))
		level := base
		for i, d := range days {
			level += sampleDrift + rng.NormFloat64()*vol
			if level < 0 {
				level = 0
			}
			obs[i] = models.Observation{Date: d, Value: level}
		}

		path := RawSnapshotPath(dir, s.Source, s.Name, today)
		if err := WriteRawCSV(path, obs); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
