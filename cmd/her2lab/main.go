package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"her2lab/adapters/postgres"
	"her2lab/adapters/stats/stages"
	"her2lab/adapters/tabular"
	"her2lab/app"
	"her2lab/domain/core"
	"her2lab/domain/study"
	"her2lab/internal/charts"
	"her2lab/internal/config"
	"her2lab/internal/report"
	"her2lab/internal/testkit"
	"her2lab/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rootCmd := &cobra.Command{
		Use:   "her2lab",
		Short: "EDA and hypothesis tests over the curated HER2 cohort",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Flags write straight into the config, so revalidate after parsing
			return cfg.Validate()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.Paths.DataDir, "data-dir", cfg.Paths.DataDir, "Directory holding the mutations and drug-sensitivity tables")
	flags.StringVar(&cfg.Paths.OutputDir, "out-dir", cfg.Paths.OutputDir, "Directory for reports and charts")
	flags.Float64Var(&cfg.Study.ViabilityThreshold, "threshold", cfg.Study.ViabilityThreshold, "Viability threshold below which a measurement counts as sensitive")
	flags.StringVar(&cfg.Study.PathwayAlternative, "alternative", cfg.Study.PathwayAlternative, "Pathway test alternative: two_sided|greater|less")
	flags.StringSliceVar(&cfg.Study.TargetedDrugs, "targeted", cfg.Study.TargetedDrugs, "HER2-targeted drugs")
	flags.StringSliceVar(&cfg.Study.ComparatorDrugs, "comparators", cfg.Study.ComparatorDrugs, "Comparator drugs (empty compares against all others)")
	flags.Int64Var(&cfg.Study.Seed, "seed", cfg.Study.Seed, "Random seed for deterministic runs")
	flags.StringVar(&cfg.Charts.Format, "format", cfg.Charts.Format, "Chart image format: png|svg")
	flags.StringVar(&cfg.Database.URL, "database-url", cfg.Database.URL, "PostgreSQL ledger URL (empty keeps the in-memory ledger)")

	rootCmd.AddCommand(
		newReportCmd(cfg),
		newEdaCmd(cfg),
		newSurvivalCmd(cfg),
		newPathwayCmd(cfg),
		newDrugsCmd(cfg),
		newSynthCmd(cfg),
		newArtifactsCmd(cfg),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newReportCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Run the full study and write markdown, HTML, and charts",
		Long: `Run every stage over the configured data directory, draw the figure
set, and write report.md and report.html next to the charts.

Example: her2lab report --data-dir data --out-dir out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), cfg)
		},
	}
}

func newEdaCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "eda",
		Short: "Profile the raw and cleaned cohort with charts",
		Long: `List the raw columns with inferred statistical types, profile every
analysis column, report missingness, and draw the cohort figures.

Example: her2lab eda --data-dir data`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEda(cmd.Context(), cfg)
		},
	}
}

func newSurvivalCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "survival",
		Short: "Test the High/Low signal split against vital status",
		Long: `Split the cohort at the median pathway signal and test the association
with vital status: contingency table, chi-square, Fisher's exact, odds
ratio, and Cramér's V.

Example: her2lab survival --data-dir data`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSingleStage(cmd.Context(), cfg, stages.NewSurvivalStage())
		},
	}
}

func newPathwayCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "pathway",
		Short: "Compare the pathway signal between HER2 arms",
		Long: `Run the Mann-Whitney U test of signal in HER2-positive versus
HER2-negative tumors under the configured alternative.

Example: her2lab pathway --alternative greater`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSingleStage(cmd.Context(), cfg, stages.NewPathwayStage())
		},
	}
}

func newDrugsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "drugs",
		Short: "Compare drug sensitivity for targeted versus comparator agents",
		Long: `Compute per-drug sensitive fractions at the viability threshold and
test targeted against comparator viability with Mann-Whitney U.

Example: her2lab drugs --targeted lapatinib --threshold 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSingleStage(cmd.Context(), cfg, stages.NewResponseStage())
		},
	}
}

func newSynthCmd(cfg *config.Config) *cobra.Command {
	var patients int

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate a synthetic dataset into the data directory",
		Long: `Write deterministic mutations.csv and drug-sensitivity.csv fixtures
shaped like the curated cohort.

Example: her2lab synth --data-dir data --seed 42 --patients 200`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(cfg, patients)
		},
	}

	cmd.Flags().IntVar(&patients, "patients", 0, "Number of patients (0 keeps the generator default)")

	return cmd
}

func newArtifactsCmd(cfg *config.Config) *cobra.Command {
	var (
		runID string
		kind  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "List artifacts stored in the PostgreSQL ledger",
		Long: `Query stored artifacts in creation order. Requires a configured
database URL; the in-memory ledger does not outlive a run.

Example: her2lab artifacts --kind survival_association --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArtifacts(cmd.Context(), cfg, runID, kind, limit)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Filter by run ID")
	cmd.Flags().StringVar(&kind, "kind", "", "Filter by artifact kind")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum artifacts to list")

	return cmd
}

func runReport(ctx context.Context, cfg *config.Config) error {
	run, err := runStages(ctx, cfg, allStages())
	if err != nil {
		return err
	}

	chartDir := filepath.Join(cfg.Paths.OutputDir, "charts")
	chartPaths, err := charts.NewRenderer(cfg.Charts.Format).RenderAll(ctx, run.ChartData(), chartDir)
	if err != nil {
		return fmt.Errorf("chart rendering failed: %w", err)
	}

	// Chart links in the report are relative to the output directory
	relPaths := make([]string, len(chartPaths))
	for i, p := range chartPaths {
		rel, err := filepath.Rel(cfg.Paths.OutputDir, p)
		if err != nil {
			rel = p
		}
		relPaths[i] = rel
	}

	renderer := report.NewRenderer(relPaths)
	md, err := renderer.Render(ctx, run.Result, ports.FormatMarkdown)
	if err != nil {
		return fmt.Errorf("markdown rendering failed: %w", err)
	}
	html, err := renderer.Render(ctx, run.Result, ports.FormatHTML)
	if err != nil {
		return fmt.Errorf("html rendering failed: %w", err)
	}

	mdPath := filepath.Join(cfg.Paths.OutputDir, "report.md")
	htmlPath := filepath.Join(cfg.Paths.OutputDir, "report.html")
	if err := os.WriteFile(mdPath, md, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", mdPath, err)
	}
	if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", htmlPath, err)
	}

	if err := printConsole(ctx, run, relPaths); err != nil {
		return err
	}
	fmt.Printf("\n💾 Report written to %s and %s (%d charts under %s)\n",
		mdPath, htmlPath, len(chartPaths), chartDir)
	return nil
}

func runEda(ctx context.Context, cfg *config.Config) error {
	if err := printRawInventory(cfg); err != nil {
		return err
	}

	run, err := runStages(ctx, cfg, []study.Stage{stages.NewProfileStage()})
	if err != nil {
		return err
	}

	chartDir := filepath.Join(cfg.Paths.OutputDir, "charts")
	chartPaths, err := charts.NewRenderer(cfg.Charts.Format).RenderAll(ctx, run.ChartData(), chartDir)
	if err != nil {
		return fmt.Errorf("chart rendering failed: %w", err)
	}

	if err := printConsole(ctx, run, nil); err != nil {
		return err
	}
	fmt.Printf("\n💾 %d charts under %s\n", len(chartPaths), chartDir)
	return nil
}

func runSingleStage(ctx context.Context, cfg *config.Config, stage study.Stage) error {
	run, err := runStages(ctx, cfg, []study.Stage{stage})
	if err != nil {
		return err
	}
	return printConsole(ctx, run, nil)
}

func runSynth(cfg *config.Config, patients int) error {
	genConfig := testkit.DefaultGeneratorConfig()
	genConfig.Seed = cfg.Study.Seed
	if patients > 0 {
		genConfig.Patients = patients
	}

	gen := testkit.NewCohortGenerator(genConfig)
	if err := gen.WriteFixtures(cfg.Paths.DataDir); err != nil {
		return fmt.Errorf("fixture generation failed: %w", err)
	}

	fmt.Printf("✅ Synthetic dataset written under %s (seed %d, %d patients)\n",
		cfg.Paths.DataDir, genConfig.Seed, genConfig.Patients)
	return nil
}

func runArtifacts(ctx context.Context, cfg *config.Config, runID, kind string, limit int) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("artifacts requires --database-url or HER2LAB_DATABASE_URL")
	}

	ledger, closeLedger, err := buildLedger(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}
	defer closeLedger()

	filters := ports.ArtifactFilters{Limit: limit}
	if runID != "" {
		id, err := core.ParseRunID(runID)
		if err != nil {
			return err
		}
		filters.RunID = &id
	}
	if kind != "" {
		k := core.ArtifactKind(kind)
		filters.Kind = &k
	}

	artifacts, err := ledger.ListArtifacts(ctx, filters)
	if err != nil {
		return fmt.Errorf("ledger query failed: %w", err)
	}

	fmt.Printf("\n=== ARTIFACTS (%d) ===\n", len(artifacts))
	for _, artifact := range artifacts {
		fmt.Printf("%-38s %-24s %s\n", artifact.ID, artifact.Kind, artifact.CreatedAt)
	}
	return nil
}

// printRawInventory lists the raw clinical columns with their inferred
// statistical types, before any cleaning.
func printRawInventory(cfg *config.Config) error {
	path, err := findTable(cfg.Paths.DataDir, "mutations")
	if err != nil {
		return err
	}
	table, err := tabular.NewTableReader(path).Read()
	if err != nil {
		return err
	}

	fmt.Printf("\n=== RAW COLUMNS (%s) ===\n", filepath.Base(path))
	fmt.Printf("Rows: %d\n", table.Len())
	for _, header := range table.Headers {
		fmt.Printf("%-28s %s\n", header, tabular.InferColumnType(table, header))
	}
	return nil
}

func findTable(dataDir, base string) (string, error) {
	for _, ext := range []string{".csv", ".xlsx"} {
		path := filepath.Join(dataDir, base+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no %s.csv or %s.xlsx under %s", base, base, dataDir)
}

func allStages() []study.Stage {
	return []study.Stage{
		stages.NewProfileStage(),
		stages.NewSurvivalStage(),
		stages.NewPathwayStage(),
		stages.NewResponseStage(),
	}
}

// runStages wires the source and ledger from the config and executes the
// given stages as one run.
func runStages(ctx context.Context, cfg *config.Config, stageList []study.Stage) (*app.StudyRunResult, error) {
	ledger, closeLedger, err := buildLedger(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}
	defer closeLedger()

	sourceConfig := tabular.DefaultSourceConfig()
	sourceConfig.SignalPreference = cfg.Study.SignalPreference
	sourceConfig.MinDose = cfg.Study.MinDose
	sourceConfig.KeepZeroDose = cfg.Study.KeepZeroDose
	source := tabular.NewFileCohortSource(cfg.Paths.DataDir, sourceConfig)

	svc := app.NewStudyService(source, ledger, stageList)
	return svc.RunStudy(ctx, cfg.Params())
}

// buildLedger selects the artifact ledger: PostgreSQL when a database URL
// is configured, in-memory otherwise.
func buildLedger(ctx context.Context, cfg *config.Config) (ports.LedgerPort, func(), error) {
	if cfg.Database.URL == "" {
		log.Printf("Using in-memory artifact ledger")
		return testkit.NewInMemoryLedgerAdapter(), func() {}, nil
	}

	db, err := postgres.Open(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Printf("Using PostgreSQL artifact ledger")
	return postgres.NewLedgerRepository(db), func() { db.Close() }, nil
}

func printConsole(ctx context.Context, run *app.StudyRunResult, chartPaths []string) error {
	out, err := report.NewRenderer(chartPaths).Render(ctx, run.Result, ports.FormatConsole)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}
