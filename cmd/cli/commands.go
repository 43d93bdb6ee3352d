package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"claimsim/adapters/excel"
	"claimsim/adapters/postgres"
	"claimsim/adapters/report"
	"claimsim/domain/simulation"
	"claimsim/internal/api"
	"claimsim/internal/errors"
	"claimsim/internal/logger"
	"claimsim/internal/migration"
	"claimsim/internal/testkit"
	"claimsim/ui"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newGenerateCmd() *cobra.Command {
	cfg := testkit.DefaultClaimsConfig()
	var out string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic claims table",
		Long: `Generate a seeded synthetic claims table with known development.

Example: claimsim generate --out claims.csv --claims-per-period 200 --withhold-actuals`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cs := testkit.NewClaimsGenerator(cfg).Generate()
			if err := excel.WriteClaims(cmd.Context(), out, cs); err != nil {
				return errors.IOError(out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s (prediction date %s)\n", len(cs), out, cfg.PredictionDate())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&out, "out", "claims.csv", "Output file (.csv or .xlsx)")
	f.IntVar(&cfg.ClaimsPerPeriod, "claims-per-period", cfg.ClaimsPerPeriod, "Claims per evaluation date")
	f.IntVar(&cfg.Periods, "periods", cfg.Periods, "Number of evaluation dates")
	f.Uint64Var(&cfg.Seed, "gen-seed", cfg.Seed, "Generator seed")
	f.BoolVar(&cfg.WithholdActuals, "withhold-actuals", false, "Leave the last evaluation date without future actuals")
	return cmd
}

func newFitCmd(opts *overrides) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit the closure, zero-payment and payment models and print them",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			req, err := c.RunRequest()
			if err != nil {
				return err
			}
			_, models, err := c.Pipeline.Fit(cmd.Context(), req.Window)
			if err != nil {
				return err
			}
			summaries := simulation.Models{
				Closure:     models.Closure.Describe(),
				ZeroPayment: models.ZeroPayment.Describe(),
				Payment:     models.Payment.Describe(),
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), summaries)
			}
			fmt.Fprint(cmd.OutOrStdout(), report.ModelsMarkdown(summaries))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print model summaries as JSON")
	return cmd
}

func newSimulateCmd(opts *overrides) *cobra.Command {
	var asJSON bool
	var reportPath, exportPath string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Fit the models, simulate, and print the aggregate results",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			req, err := c.RunRequest()
			if err != nil {
				return err
			}
			run, err := c.Pipeline.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			if reportPath != "" {
				if err := report.Write(cmd.Context(), reportPath, run); err != nil {
					return err
				}
			}
			if exportPath != "" {
				if err := excel.ExportRun(cmd.Context(), exportPath, run); err != nil {
					return err
				}
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), run.Summary)
			}
			printSummary(cmd.OutOrStdout(), run)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run summary as JSON")
	cmd.Flags().StringVar(&reportPath, "report", "", "Also write the HTML report here")
	cmd.Flags().StringVar(&exportPath, "export", "", "Also write the .xlsx export here")
	return cmd
}

func newReportCmd(opts *overrides) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run the pipeline and write the HTML report",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			if out == "" {
				out = c.Config.Paths.ReportPath
			}
			req, err := c.RunRequest()
			if err != nil {
				return err
			}
			run, err := c.Pipeline.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := report.Write(cmd.Context(), out, run); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Report path (default REPORT_PATH)")
	return cmd
}

func newExportCmd(opts *overrides) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run the pipeline and export results to .xlsx",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			if out == "" {
				out = c.Config.Paths.ExportPath
			}
			req, err := c.RunRequest()
			if err != nil {
				return err
			}
			run, err := c.Pipeline.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := excel.ExportRun(cmd.Context(), out, run); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Workbook path (default EXPORT_PATH)")
	return cmd
}

func newServeCmd(opts *overrides) *cobra.Command {
	var noAPI bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline, then serve the report viewer and the run API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			req, err := c.RunRequest()
			if err != nil {
				return err
			}
			run, err := c.Pipeline.Run(ctx, req)
			if err != nil {
				return err
			}

			viewer, err := ui.NewApp(ui.Config{Port: c.Config.Server.Port}, c.Runs)
			if err != nil {
				return err
			}
			viewer.SetRun(run)

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return viewer.Start(ctx) })
			if !noAPI {
				server := api.NewServer(api.Config{Port: c.Config.Server.APIPort, GinMode: c.Config.Server.GinMode}, c.Pipeline, c.Runs, req)
				server.OnRun = viewer.SetRun
				g.Go(func() error { return server.Start(ctx) })
			}
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&noAPI, "no-api", false, "Serve only the report viewer")
	return cmd
}

func newMigrateCmd(opts *overrides) *cobra.Command {
	var importPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and optionally import a claims file",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())
			if c.DB == nil {
				return errors.ConfigInvalid("DATABASE_URL is required")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %s\n", migration.NewRunner().Version())

			if importPath == "" {
				return nil
			}
			cs, err := excel.NewClaimSource(importPath).LoadClaims(cmd.Context())
			if err != nil {
				return err
			}
			if err := postgres.NewClaimRepository(c.DB).ImportClaims(cmd.Context(), cs); err != nil {
				return errors.WithCode(errors.CodeDatabaseError, err)
			}
			logger.FromContext(cmd.Context()).Infof("[Migrate] imported %d claims from %s", len(cs), importPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&importPath, "import", "", "Claims file to load into the claims table")
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, run *simulation.Run) {
	sum := run.Summary
	fmt.Fprintf(w, "run %s  fingerprint %s\n", run.ID, sum.Print.Short())
	fmt.Fprintf(w, "training rows %d, prediction claims %d, trials %d, seed %d\n\n",
		run.TrainingRows, run.PredictionRows, sum.Config.Trials, sum.Config.Seed)

	row := func(name string, d simulation.Distribution, expected float64) {
		fmt.Fprintf(w, "%-18s mean %12.2f  sd %10.2f  p50 %12.2f  p95 %12.2f  p99 %12.2f  expected %12.2f\n",
			name, d.Mean, d.StdDev, d.Percentiles.P50, d.Percentiles.P95, d.Percentiles.P99, expected)
	}
	row("open claims", sum.OpenCount, sum.ExpectedOpenCount)
	row("incremental paid", sum.TotalPaid, sum.ExpectedTotalPaid)

	if bt := sum.BackTest; bt != nil {
		fmt.Fprintf(w, "\nactual open claims %d (percentile rank %.1f%%)\n", bt.Actuals.OpenCount, 100*bt.OpenCountRank)
		fmt.Fprintf(w, "actual paid %.0f (percentile rank %.1f%%)\n", bt.Actuals.TotalPaid, 100*bt.TotalPaidRank)
	}

	outcomes := make([]string, 0, len(sum.OutcomeShare))
	for o := range sum.OutcomeShare {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	fmt.Fprintln(w)
	for _, o := range outcomes {
		fmt.Fprintf(w, "%-14s %6.2f%%\n", o, 100*sum.OutcomeShare[simulation.Outcome(o)])
	}
}
