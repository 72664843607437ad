package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gotlf/adapters/postgres"
	"gotlf/adapters/tabular"
	"gotlf/app"
	"gotlf/domain/study"
	"gotlf/internal"
	"gotlf/internal/config"
	"gotlf/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Optional .env for local development; the environment wins otherwise.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "gotlf-cli",
		Short: "Clinical study analysis: generate TLF summary tables from ADaM datasets",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newValidateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var (
		dataDir   string
		outputDir string
		param     string
		week      float64
		reference string
		confLevel float64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the report catalog over the study datasets",
		Long: `Run every report output as an independent unit of work: load the
datasets once, produce each summary table concurrently, and write one CSV
per output. A failing output is reported and does not abort its siblings.

Example: gotlf-cli run --data data --output output --param GLUC --week 24 --ref Placebo`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.Paths.DataDir = dataDir
			}
			if outputDir != "" {
				cfg.Paths.OutputDir = outputDir
			}

			logger := internal.DefaultLogger
			data, err := app.LoadStudy(tabular.NewLoader(cfg.Paths.DataDir))
			if err != nil {
				return err
			}

			var store ports.ResultStore
			if cfg.Archive.Enabled {
				db, err := postgres.Open(cfg.Archive.DatabaseURL)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := postgres.Migrate(cmd.Context(), db); err != nil {
					return err
				}
				store = postgres.NewResultStore(db)
			}

			outputs := app.StandardOutputs(data, app.EndpointSpec{
				Param:        param,
				EndpointWeek: week,
				ReferenceArm: reference,
				ConfLevel:    confLevel,
			})

			runner := app.NewRunner(cfg.Runner.MaxConcurrent, store)
			report := runner.Run(cmd.Context(), outputs)

			if err := writeTables(cfg.Paths.OutputDir, report); err != nil {
				return err
			}

			for _, res := range report.Results {
				status := "ok"
				if res.Err != nil {
					status = res.Err.Error()
				}
				fmt.Printf("%-28s %s\n", res.Name, status)
			}
			if failed := report.Failed(); failed > 0 {
				return fmt.Errorf("%d of %d outputs failed", failed, len(report.Results))
			}
			logger.Info("all outputs written to %s", cfg.Paths.OutputDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data", "", "dataset directory (default $DATA_DIR or data)")
	cmd.Flags().StringVar(&outputDir, "output", "", "output directory (default $OUTPUT_DIR or output)")
	cmd.Flags().StringVar(&param, "param", "GLUC", "endpoint parameter code (PARAMCD)")
	cmd.Flags().Float64Var(&week, "week", 24, "endpoint analysis week (AVISITN)")
	cmd.Flags().StringVar(&reference, "ref", "Placebo", "reference arm for treatment contrasts")
	cmd.Flags().Float64Var(&confLevel, "conf", 0.95, "confidence level for intervals")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and schema-check the study datasets without producing tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.Paths.DataDir = dataDir
			}
			loader := tabular.NewLoader(cfg.Paths.DataDir)

			failed := 0
			for _, name := range []string{study.DatasetADSL, study.DatasetADAE, study.DatasetADLB} {
				schema, _ := study.SchemaFor(name)
				tbl, err := loader.Load(name, schema)
				if err != nil {
					failed++
					fmt.Printf("%-8s %v\n", name, err)
					continue
				}
				fmt.Printf("%-8s ok (%d rows, %d columns)\n", name, tbl.NumRows(), tbl.NumCols())
			}
			if failed > 0 {
				return fmt.Errorf("%d datasets failed validation", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data", "", "dataset directory (default $DATA_DIR or data)")
	return cmd
}

// writeTables writes each successful output as a long-format CSV, the
// contract consumed by the external table formatter.
func writeTables(dir string, report app.RunReport) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, res := range report.Results {
		if res.Err != nil || res.Table == nil {
			continue
		}
		path := filepath.Join(dir, res.Name+".csv")
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := res.Table.WriteCSV(f); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", path, err)
		}
	}
	return nil
}
