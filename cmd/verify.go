package main

import (
	"bytes"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/sca-rates/internal/emit"
	"github.com/sells-group/sca-rates/internal/errkind"
	"github.com/sells-group/sca-rates/internal/pipeline"
	"github.com/sells-group/sca-rates/internal/verify"
)

var verifyPasses int

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Apply the script to an in-memory SQLite database and check row counts",
	Long:  "Renders the configured script in the sqlite dialect, applies it to an empty in-memory table and checks that every record landed. The guard wrapper is replaced by a transaction.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate(); err != nil {
			return err
		}

		opts := verify.SQLiteOptions(cfg.EmitOptions())
		var script bytes.Buffer
		report, err := pipeline.New(cfg).RenderWith(ctx, &script, opts)
		if err != nil {
			return err
		}

		counts, err := verify.Run(ctx, script.String(), opts, verifyPasses)
		if err != nil {
			return err
		}

		if err := checkCounts(counts, report.Records, verifyPasses, opts.Shape); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		formatReport(out, report)
		_, _ = fmt.Fprintf(out, "Verified %d rows (%d codes) for fiscal year %d after %d pass(es)\n",
			counts.Rows, counts.DistinctCodes, report.FiscalYear, verifyPasses)
		return nil
	},
}

// checkCounts compares the table against what the script should have written.
// Inserts accumulate on every pass; upserts converge on one row per code.
func checkCounts(c verify.Counts, records, passes int, shape emit.Shape) error {
	want := records * passes
	if shape == emit.ShapeUpsert {
		want = records
	}
	if c.Rows != want {
		return errkind.Format(eris.Errorf("verify: expected %d rows, found %d", want, c.Rows))
	}
	if records > 0 && c.Years != 1 {
		return errkind.Format(eris.Errorf("verify: expected one fiscal year, found %d", c.Years))
	}
	return nil
}

func init() {
	addPipelineFlags(verifyCmd)
	verifyCmd.Flags().IntVar(&verifyPasses, "passes", 1, "number of times to apply the script")
	rootCmd.AddCommand(verifyCmd)
}
