// Package config handles configuration loading for curvewatch.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Data    DataConfig    `mapstructure:"data"    yaml:"data"`
	Fetch   FetchConfig   `mapstructure:"fetch"   yaml:"fetch"`
	Series  []SeriesSpec  `mapstructure:"series"  yaml:"series"`
	Viz     VizConfig     `mapstructure:"viz"     yaml:"viz"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	FRED    FREDConfig    `mapstructure:"fred"    yaml:"fred"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// DataConfig holds filesystem layout for raw and processed data.
type DataConfig struct {
	RawDir       string `mapstructure:"raw_dir"       yaml:"raw_dir"`
	ProcessedDir string `mapstructure:"processed_dir" yaml:"processed_dir"`
	SampleDir    string `mapstructure:"sample_dir"    yaml:"sample_dir"`
	ReadmePath   string `mapstructure:"readme_path"   yaml:"readme_path"`
}

// FetchConfig holds pipeline fetch behavior.
type FetchConfig struct {
	StartDate       string `mapstructure:"start_date"        yaml:"start_date"` // YYYY-MM-DD
	Offline         bool   `mapstructure:"offline"           yaml:"offline"`
	ContinueOnError bool   `mapstructure:"continue_on_error" yaml:"continue_on_error"`
	Concurrency     int    `mapstructure:"concurrency"       yaml:"concurrency"`
	SkipCountries   []string `mapstructure:"skip_countries"  yaml:"skip_countries"` // "US", "CA", "FX"
}

// SeriesSpec describes one series to fetch and its place in the table.
type SeriesSpec struct {
	Name       string  `mapstructure:"name"        yaml:"name"`   // column name, e.g. "US_10Y"
	Source     string  `mapstructure:"source"      yaml:"source"` // provider name: "fred", "boc"
	ID         string  `mapstructure:"id"          yaml:"id"`     // upstream series id
	Country    string  `mapstructure:"country"     yaml:"country"`
	TenorYears float64 `mapstructure:"tenor_years" yaml:"tenor_years"` // 0 for FX
	Units      string  `mapstructure:"units"       yaml:"units"`       // "pct" or "rate"
}

// TenorLabel renders the tenor as the short label shared with the
// upstream sources, "3M" for sub-year tenors and "10Y" otherwise.
// Empty for FX series.
func (s SeriesSpec) TenorLabel() string {
	if s.TenorYears <= 0 {
		return ""
	}
	if s.TenorYears < 1 {
		return fmt.Sprintf("%dM", int(s.TenorYears*12+0.5))
	}
	return fmt.Sprintf("%dY", int(s.TenorYears))
}

// VizConfig holds rendering settings.
type VizConfig struct {
	OutDir        string   `mapstructure:"out_dir"        yaml:"out_dir"`
	OnePagerDir   string   `mapstructure:"one_pager_dir"  yaml:"one_pager_dir"`
	Formats       []string `mapstructure:"formats"        yaml:"formats"`        // "png", "svg"
	CompareCurves []string `mapstructure:"compare_curves" yaml:"compare_curves"` // lookbacks, e.g. "1M","3M","1Y"
	VolWindow     int      `mapstructure:"vol_window"     yaml:"vol_window"`
	Width         int      `mapstructure:"width"          yaml:"width"`
	Height        int      `mapstructure:"height"         yaml:"height"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// FREDConfig holds the FRED credential.
type FREDConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.curvewatch/config.yaml (home directory)
//  3. /etc/curvewatch/config.yaml (system)
//
// Environment variables override config file values.
// Format: CURVEWATCH_<SECTION>_<KEY>, e.g., CURVEWATCH_API_PORT.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".curvewatch"))
	v.AddConfigPath("/etc/curvewatch")

	v.SetEnvPrefix("CURVEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, defaults + env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	finalize(&cfg)
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("CURVEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	finalize(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Data layout
	v.SetDefault("data.raw_dir", "data/raw")
	v.SetDefault("data.processed_dir", "data/processed")
	v.SetDefault("data.sample_dir", "data/raw/sample")
	v.SetDefault("data.readme_path", "README.md")

	// Fetch behavior
	v.SetDefault("fetch.start_date", "2010-01-01")
	v.SetDefault("fetch.offline", false)
	v.SetDefault("fetch.continue_on_error", false)
	v.SetDefault("fetch.concurrency", 4)

	// Rendering
	v.SetDefault("viz.out_dir", "reports/figures")
	v.SetDefault("viz.one_pager_dir", "reports/one_pager")
	v.SetDefault("viz.formats", []string{"png", "svg"})
	v.SetDefault("viz.compare_curves", []string{"1M", "3M", "1Y"})
	v.SetDefault("viz.vol_window", 20)
	v.SetDefault("viz.width", 1100)
	v.SetDefault("viz.height", 500)

	// API
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// finalize applies the defaults that viper can't express and explicit
// env overrides for sensitive values.
func finalize(cfg *Config) {
	if len(cfg.Series) == 0 {
		cfg.Series = DefaultSeries()
	}
	if key := os.Getenv("FRED_API_KEY"); key != "" {
		cfg.FRED.APIKey = key
	}
	if key := os.Getenv("CURVEWATCH_FRED_API_KEY"); key != "" {
		cfg.FRED.APIKey = key
	}
	if cfg.Fetch.Concurrency < 1 {
		cfg.Fetch.Concurrency = 1
	}
}

// DefaultSeries is the standard US and Canada benchmark set plus the
// USD/CAD rate.
func DefaultSeries() []SeriesSpec {
	return []SeriesSpec{
		{Name: "US_3M", Source: "fred", ID: "DGS3MO", Country: "US", TenorYears: 0.25, Units: "pct"},
		{Name: "US_2Y", Source: "fred", ID: "DGS2", Country: "US", TenorYears: 2, Units: "pct"},
		{Name: "US_5Y", Source: "fred", ID: "DGS5", Country: "US", TenorYears: 5, Units: "pct"},
		{Name: "US_10Y", Source: "fred", ID: "DGS10", Country: "US", TenorYears: 10, Units: "pct"},
		{Name: "US_30Y", Source: "fred", ID: "DGS30", Country: "US", TenorYears: 30, Units: "pct"},
		{Name: "CA_3M", Source: "boc", ID: "TB.CDN.90D.DQ.YLD", Country: "CA", TenorYears: 0.25, Units: "pct"},
		{Name: "CA_2Y", Source: "boc", ID: "BD.CDN.2YR.DQ.YLD", Country: "CA", TenorYears: 2, Units: "pct"},
		{Name: "CA_5Y", Source: "boc", ID: "BD.CDN.5YR.DQ.YLD", Country: "CA", TenorYears: 5, Units: "pct"},
		{Name: "CA_10Y", Source: "boc", ID: "BD.CDN.10YR.DQ.YLD", Country: "CA", TenorYears: 10, Units: "pct"},
		{Name: "CA_30Y", Source: "boc", ID: "BD.CDN.LONG.DQ.YLD", Country: "CA", TenorYears: 30, Units: "pct"},
		{Name: "USDCAD", Source: "boc", ID: "FXUSDCAD", Country: "FX", TenorYears: 0, Units: "rate"},
	}
}

// YieldColumns returns the names of series measured in percent.
func (c *Config) YieldColumns() []string {
	var cols []string
	for _, s := range c.Series {
		if s.Units == "pct" {
			cols = append(cols, s.Name)
		}
	}
	return cols
}

// CountryColumns returns the yield column names for one country,
// ordered as configured.
func (c *Config) CountryColumns(country string) []string {
	var cols []string
	for _, s := range c.Series {
		if s.Country == country && s.Units == "pct" {
			cols = append(cols, s.Name)
		}
	}
	return cols
}

// TenorMapping returns country → tenor-year → column name for the
// slope computations.
func (c *Config) TenorMapping() map[string]map[int]string {
	m := make(map[string]map[int]string)
	for _, s := range c.Series {
		if s.Country != "US" && s.Country != "CA" {
			continue
		}
		if s.TenorYears < 1 {
			continue
		}
		if m[s.Country] == nil {
			m[s.Country] = make(map[int]string)
		}
		m[s.Country][int(s.TenorYears)] = s.Name
	}
	return m
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
