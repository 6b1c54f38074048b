// curvewatch — US Treasury vs Government of Canada yield-curve watcher
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/curvewatch/curvewatch/api"
	"github.com/curvewatch/curvewatch/internal/config"
	"github.com/curvewatch/curvewatch/internal/dataset"
	"github.com/curvewatch/curvewatch/internal/logging"
	"github.com/curvewatch/curvewatch/internal/pipeline"
	"github.com/curvewatch/curvewatch/internal/provider"
	"github.com/curvewatch/curvewatch/internal/providers"
	"github.com/curvewatch/curvewatch/pkg/models"
	"github.com/curvewatch/curvewatch/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set in PersistentPreRunE.
var (
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "curvewatch",
	Short: "curvewatch — US vs Canada government bond yield curves",
	Long: `curvewatch fetches US Treasury yields from FRED and Government of
Canada benchmark yields from the Bank of Canada Valet API, aligns them
into one daily table, derives slopes, tenor changes, rolling vol and
the 10Y cross-country spread, and renders chart artifacts plus an
interactive web viewer.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(statusCmd)
}

// registry builds the provider registry used by the data commands.
func registry() (*provider.Registry, error) {
	reg := provider.NewRegistry()
	if err := providers.RegisterAllWithKey(reg, cfg.FRED.APIKey); err != nil {
		return nil, fmt.Errorf("register providers: %w", err)
	}
	return reg, nil
}

// applyFetchFlags copies the shared fetch flags onto the config.
func applyFetchFlags(cmd *cobra.Command) {
	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		cfg.Fetch.Offline = true
	}
	if keep, _ := cmd.Flags().GetBool("continue-on-error"); keep {
		cfg.Fetch.ContinueOnError = true
	}
	if skip, _ := cmd.Flags().GetStringSlice("skip"); len(skip) > 0 {
		for i := range skip {
			skip[i] = strings.ToUpper(skip[i])
		}
		cfg.Fetch.SkipCountries = skip
	}
	if start, _ := cmd.Flags().GetString("start"); start != "" {
		cfg.Fetch.StartDate = start
	}
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("offline", false, "use the newest sample snapshots instead of hitting upstream APIs")
	cmd.Flags().Bool("continue-on-error", false, "keep going when individual series fail")
	cmd.Flags().StringSlice("skip", nil, "countries to skip (US, CA, FX)")
	cmd.Flags().String("start", "", "first observation date, YYYY-MM-DD")
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("curvewatch %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Run Command (full pipeline) ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: fetch, process, persist, render",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFetchFlags(cmd)

		reg, err := registry()
		if err != nil {
			return err
		}
		runner := pipeline.NewRunner(cfg, reg, logger)

		res, err := runner.Run(cmd.Context())
		if err != nil {
			return err
		}
		printRunSummary(res)
		return nil
	},
}

func init() { addFetchFlags(runCmd) }

// --- Fetch Command (no rendering) ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and merge all configured series without rendering",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFetchFlags(cmd)

		reg, err := registry()
		if err != nil {
			return err
		}
		runner := pipeline.NewRunner(cfg, reg, logger)

		res, err := runner.Gather(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("📥 Fetched %d series (%d rows)\n", len(res.Fetched)+len(res.FromRaw), res.Frame.Len())
		for _, name := range res.Failed {
			fmt.Printf("   ⚠️  failed: %s\n", name)
		}
		return nil
	},
}

func init() { addFetchFlags(fetchCmd) }

// --- Render Command ---

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Re-render all chart artifacts from the persisted dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := pipeline.NewRunner(cfg, provider.NewRegistry(), logger)
		res, err := runner.RenderOnly()
		if err != nil {
			return err
		}
		printArtifacts(res.Artifacts)
		return nil
	},
}

// --- Serve Command (API server + viewer) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and web viewer",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}

		reg, err := registry()
		if err != nil {
			return err
		}
		srv := api.NewServer(cfg, reg, logger)
		if noUI, _ := cmd.Flags().GetBool("no-ui"); noUI {
			srv.SetServeUI(false)
		}

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 curvewatch listening on http://%s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "port override")
	serveCmd.Flags().Bool("no-ui", false, "serve the API only, without the embedded viewer")
}

// --- Sample Command ---

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate deterministic sample snapshots for offline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, _ := cmd.Flags().GetInt64("seed")
		paths, err := pipeline.GenerateSample(cfg.Data.SampleDir, cfg.Series, seed)
		if err != nil {
			return err
		}
		fmt.Printf("🧪 Wrote %d sample files to %s\n", len(paths), cfg.Data.SampleDir)
		return nil
	},
}

func init() {
	sampleCmd.Flags().Int64("seed", 42, "random seed for the simulated walks")
}

// --- Discover Command ---

var discoverCmd = &cobra.Command{
	Use:   "discover [query]",
	Short: "Search upstream catalogs for candidate yield series",
	Long: `Search a provider's series catalog. Useful for finding the upstream
identifier of a tenor not in the default set.

Examples:
  curvewatch discover "treasury constant maturity"
  curvewatch discover --provider boc bond`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry()
		if err != nil {
			return err
		}

		params := provider.QueryParams{
			provider.ParamQuery: strings.Join(args, " "),
		}
		if name, _ := cmd.Flags().GetString("provider"); name != "" {
			params[provider.ParamProvider] = name
		}
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
			params[provider.ParamLimit] = fmt.Sprintf("%d", limit)
		}

		result, err := reg.Fetch(cmd.Context(), provider.ModelSeriesDiscovery, params)
		if err != nil {
			return err
		}
		infos, ok := result.Data.([]models.SeriesInfo)
		if !ok {
			return fmt.Errorf("unexpected discovery payload %T", result.Data)
		}

		fmt.Printf("🔍 %d series from %s\n", len(infos), result.Provider)
		for _, info := range infos {
			line := fmt.Sprintf("   %-22s %s", info.ID, info.Label)
			if info.Tenor != "" {
				line += fmt.Sprintf("  [%s]", info.Tenor)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().String("provider", "", "provider to search (fred, boc)")
	discoverCmd.Flags().Int("limit", 25, "max results")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  curvewatch — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:     %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Series:        %d configured\n", len(cfg.Series))
		fmt.Printf("    Start date:    %s\n", cfg.Fetch.StartDate)
		fmt.Printf("    Processed dir: %s\n", cfg.Data.ProcessedDir)
		fmt.Printf("    Figures dir:   %s\n", cfg.Viz.OutDir)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		fmt.Println("  Dataset:")
		if f, err := dataset.Load(cfg.Data.ProcessedDir); err == nil {
			fmt.Printf("    Rows:          %d\n", f.Len())
			fmt.Printf("    Columns:       %d\n", len(f.Columns))
			fmt.Printf("    Last date:     %s\n", utils.FormatDate(f.LastDate()))
			m := cfg.TenorMapping()
			last := f.Len() - 1
			fmt.Printf("    US 10Y:        %s\n", utils.FormatPct(f.Value(last, m["US"][10])))
			fmt.Printf("    CA 10Y:        %s\n", utils.FormatPct(f.Value(last, m["CA"][10])))
		} else {
			fmt.Println("    (no processed dataset, run `curvewatch run` first)")
		}
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set (FRED runs keyless with lower limits)"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-12s %s\n", k.Name+":", status)
		}

		fmt.Println()
		fmt.Println("  Providers:")
		reg, err := registry()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		for _, info := range reg.List() {
			mark := "✅"
			if err := pingProvider(ctx, reg, info.Name); err != nil {
				mark = "❌"
			}
			fmt.Printf("    %s %-6s %s\n", mark, info.Name, info.Description)
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func pingProvider(ctx context.Context, reg *provider.Registry, name string) error {
	p, err := reg.Get(name)
	if err != nil {
		return err
	}
	return p.Ping(ctx)
}

func printRunSummary(res *pipeline.Result) {
	fmt.Printf("✅ Pipeline complete: %d rows → %s\n", res.Rows, res.ProcessedPath)
	if len(res.FromRaw) > 0 {
		fmt.Printf("   ♻️  reused today's snapshots for %d series\n", len(res.FromRaw))
	}
	if len(res.Skipped) > 0 {
		fmt.Printf("   ⏭️  skipped: %s\n", strings.Join(res.Skipped, ", "))
	}
	if len(res.Failed) > 0 {
		fmt.Printf("   ⚠️  failed: %s\n", strings.Join(res.Failed, ", "))
	}
	printArtifacts(res.Artifacts)
}

func printArtifacts(paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Printf("🖼  %d artifacts:\n", len(paths))
	for _, p := range paths {
		fmt.Printf("   %s\n", p)
	}
}
