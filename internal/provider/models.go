package provider

// ModelType identifies a standard data model. Each ModelType maps to a
// concrete data structure in pkg/models.
type ModelType string

// --- Yields ---
const (
	// ModelYieldSeries is a single yield series as dated observations.
	// Data: []models.Observation.
	ModelYieldSeries ModelType = "YieldSeries"

	// ModelYieldCurve is a full curve snapshot for one country on one
	// date (or the latest available). Data: []models.CurvePoint.
	ModelYieldCurve ModelType = "YieldCurve"

	// ModelLatestYields is the most recent observation per tenor.
	// Data: []models.CurvePoint.
	ModelLatestYields ModelType = "LatestYields"
)

// --- FX ---
const (
	// ModelFXRate is a currency pair rate series.
	// Data: []models.FXObservation.
	ModelFXRate ModelType = "FXRate"
)

// --- Discovery ---
const (
	// ModelSeriesDiscovery lists the series a source publishes, filtered
	// by a free-text query. Data: []models.SeriesInfo.
	ModelSeriesDiscovery ModelType = "SeriesDiscovery"
)
