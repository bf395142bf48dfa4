package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sells-group/sca-rates/internal/config"
	"github.com/sells-group/sca-rates/internal/errkind"
)

var cfg *config.Config

// flagKeys maps command line flags onto configuration keys. Flags win over the
// environment and config.yaml when set.
var flagKeys = map[string]string{
	"log-level":       "log.level",
	"log-format":      "log.format",
	"source":          "source.path",
	"source-delim":    "source.delimiter",
	"duplicates":      "source.duplicates",
	"enrich":          "enrichment.enabled",
	"prior":           "enrichment.path",
	"prior-delim":     "enrichment.delimiter",
	"join":            "enrichment.join",
	"out-dir":         "output.dir",
	"fiscal-year":     "output.fiscal_year",
	"year":            "output.year",
	"overwrite":       "output.overwrite",
	"dialect":         "output.dialect",
	"shape":           "output.shape",
	"wrapper":         "output.wrapper",
	"table":           "output.table",
	"escape-literals": "output.escape_literals",
}

var rootCmd = &cobra.Command{
	Use:           "sca-rates",
	Short:         "Generate SCA wage rate migration scripts",
	Long:          "Reads the annual Service Contract Act wage rate export, joins prior-year descriptions and writes a SQL migration named for the fiscal year.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := config.New()
		if err := bindFlags(v, cmd); err != nil {
			return err
		}

		c, err := config.Unmarshal(v)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return eris.Wrapf(err, "bind flag --%s", name)
		}
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (console, json)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(errkind.ExitCode(err))
	}
}
