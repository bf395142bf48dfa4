package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/sca-rates/internal/model"
	"github.com/sells-group/sca-rates/internal/pipeline"
)

var generateStdout bool

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the fiscal year migration script",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate(); err != nil {
			return err
		}

		p := pipeline.New(cfg)
		if generateStdout {
			report, err := p.Render(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			formatReport(cmd.ErrOrStderr(), report)
			return nil
		}

		report, err := p.Generate(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		formatReport(out, report)
		_, _ = fmt.Fprintf(out, "SQL file created: %s (%d records)\n", report.OutputPath, report.Records)
		return nil
	},
}

// addPipelineFlags registers the flags shared by every command that runs the
// pipeline. Empty and zero defaults defer to config.yaml and the environment.
func addPipelineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("source", "", "current-year rate file (pipe-delimited or .xlsx)")
	f.String("source-delim", "", "source delimiter")
	f.String("duplicates", "", "duplicate occupation code policy (last, first, error, keep)")
	f.Bool("enrich", true, "join prior-year descriptions")
	f.String("prior", "", "prior-year description export")
	f.String("prior-delim", "", "prior-year export delimiter")
	f.String("join", "", "description join strategy (keyed, linear)")
	f.String("out-dir", "", "directory for the generated script")
	f.String("fiscal-year", "", "fiscal year policy (current, next)")
	f.Int("year", 0, "explicit fiscal year, overrides --fiscal-year")
	f.Bool("overwrite", false, "replace an existing script for the same year")
	f.String("dialect", "", "SQL dialect (mssql, postgres, sqlite)")
	f.String("shape", "", "statement shape (insert, upsert)")
	f.String("wrapper", "", "script wrapper (guard, transaction, none)")
	f.String("table", "", "target table")
	f.Bool("escape-literals", false, "double single quotes in titles and codes")
}

func formatReport(out io.Writer, report *model.RunReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STAGE\tSTATUS\tRECORDS\tELAPSED")
	for _, s := range report.Stages {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.Name, s.Status, s.Records, s.Duration)
	}
	_, _ = fmt.Fprintf(w, "total\t\t%d\t%s\n", report.Records, report.Total)
	_ = w.Flush()

	if report.Dropped > 0 {
		_, _ = fmt.Fprintf(out, "Dropped %d duplicate occupation codes\n", report.Dropped)
	}
	if report.Unmatched > 0 {
		_, _ = fmt.Fprintf(out, "%d prior-year descriptions matched no current code\n", report.Unmatched)
	}
}

func init() {
	addPipelineFlags(generateCmd)
	generateCmd.Flags().BoolVar(&generateStdout, "stdout", false, "write the script to stdout instead of a file")
	rootCmd.AddCommand(generateCmd)
}
