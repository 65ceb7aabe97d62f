package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kurtbrian03/docrank/internal/app"
	"github.com/kurtbrian03/docrank/internal/config"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "docrank"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	rootCmd := &cobra.Command{
		Use:     programName,
		Short:   "docrank MCP server",
		Long:    "Hybrid document relevance ranking with audit exports and snapshot regression checks",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithFlags(cmd.Flags(), version)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)

	app.RegisterFlags(rootCmd.Flags())
	rootCmd.AddCommand(newSearchCmd(), newBenchCmd(), newDiffCmd(), newCICmd())
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

func runWithFlags(flags *pflag.FlagSet, version string) error {
	return app.RunWithDeps(context.Background(), app.DefaultRunParams(), flags, version)
}

func loadSettings(flags *pflag.FlagSet) (*config.Settings, error) {
	app.SetupLogging()
	return config.LoadSettingsWithFlags(flags)
}

func newSearchCmd() *cobra.Command {
	var opts app.SearchOptions

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Rank the corpus against a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd.Flags())
			if err != nil {
				return err
			}
			opts.Query = strings.Join(args, " ")
			return app.RunSearch(cmd.Context(), &settings.Engine, opts, cmd.OutOrStdout())
		},
	}

	app.RegisterEngineFlags(cmd.Flags())
	cmd.Flags().StringToStringVarP(&opts.Filters, "filter", "f", nil, "Filters as key=value (tipo, extension, carpeta, proveedor, hospital, mes, anio, etiquetas)")
	cmd.Flags().BoolVar(&opts.Audit, "audit", false, "Include the per-signal score breakdown")
	cmd.Flags().BoolVar(&opts.Profiling, "profiling", false, "Record per-phase timings")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print results as JSON")
	cmd.Flags().StringVar(&opts.AuditJSON, "audit-json", "", "Write the audit export to this JSON file")
	cmd.Flags().StringVar(&opts.AuditCSV, "audit-csv", "", "Write the audit scores to this CSV file")
	return cmd
}

func newBenchCmd() *cobra.Command {
	var repetitions int

	cmd := &cobra.Command{
		Use:   "bench <query>...",
		Short: "Measure search latency over a set of queries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd.Flags())
			if err != nil {
				return err
			}
			return app.RunBenchmark(cmd.Context(), &settings.Engine, args, repetitions, cmd.OutOrStdout())
		},
	}

	app.RegisterEngineFlags(cmd.Flags())
	cmd.Flags().IntVarP(&repetitions, "repetitions", "r", 5, "Number of runs per query")
	return cmd
}

func newDiffCmd() *cobra.Command {
	var opts app.DiffOptions

	cmd := &cobra.Command{
		Use:   "diff <snapshot-a> <snapshot-b>",
		Short: "Compare two audit exports",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd.Flags())
			if err != nil {
				return err
			}
			opts.SnapshotA, opts.SnapshotB = args[0], args[1]
			_, err = app.RunDiff(&settings.CI, opts, cmd.OutOrStdout())
			return err
		},
	}

	app.RegisterCIFlags(cmd.Flags())
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the diff as JSON")
	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "Write JSON, CSV and TXT reports to --out-dir")
	return cmd
}

func newCICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ci <baseline> <candidate>",
		Short:        "Fail when the candidate ranking regresses against the baseline",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd.Flags())
			if err != nil {
				return err
			}
			return app.RunCI(&settings.CI, args[0], args[1], cmd.OutOrStdout())
		},
	}

	app.RegisterCIFlags(cmd.Flags())
	return cmd
}
