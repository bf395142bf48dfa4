package config

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/sca-rates/internal/emit"
	"github.com/sells-group/sca-rates/internal/sca"
)

// Config holds the full application configuration.
type Config struct {
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	Enrichment EnrichmentConfig `yaml:"enrichment" mapstructure:"enrichment"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SourceConfig configures the current-year rate file.
type SourceConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	Delimiter  string `yaml:"delimiter" mapstructure:"delimiter"`
	Encoding   string `yaml:"encoding" mapstructure:"encoding"`
	Comment    string `yaml:"comment" mapstructure:"comment"`
	LazyQuotes bool   `yaml:"lazy_quotes" mapstructure:"lazy_quotes"`
	Sheet      string `yaml:"sheet" mapstructure:"sheet"`
	SheetIndex int    `yaml:"sheet_index" mapstructure:"sheet_index"`
	SkipRows   int    `yaml:"skip_rows" mapstructure:"skip_rows"`
	TrimSpace  bool   `yaml:"trim_space" mapstructure:"trim_space"`
	Duplicates string `yaml:"duplicates" mapstructure:"duplicates"`
}

// EnrichmentConfig configures the prior-year description export.
type EnrichmentConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	Path       string `yaml:"path" mapstructure:"path"`
	Delimiter  string `yaml:"delimiter" mapstructure:"delimiter"`
	Encoding   string `yaml:"encoding" mapstructure:"encoding"`
	Comment    string `yaml:"comment" mapstructure:"comment"`
	LazyQuotes bool   `yaml:"lazy_quotes" mapstructure:"lazy_quotes"`
	TrimSpace  bool   `yaml:"trim_space" mapstructure:"trim_space"`
	Join       string `yaml:"join" mapstructure:"join"`
}

// OutputConfig configures the generated migration script.
type OutputConfig struct {
	Dir            string `yaml:"dir" mapstructure:"dir"`
	NameFormat     string `yaml:"name_format" mapstructure:"name_format"`
	FiscalYear     string `yaml:"fiscal_year" mapstructure:"fiscal_year"`
	Year           int    `yaml:"year" mapstructure:"year"`
	Overwrite      bool   `yaml:"overwrite" mapstructure:"overwrite"`
	Dialect        string `yaml:"dialect" mapstructure:"dialect"`
	Shape          string `yaml:"shape" mapstructure:"shape"`
	Wrapper        string `yaml:"wrapper" mapstructure:"wrapper"`
	Table          string `yaml:"table" mapstructure:"table"`
	EscapeLiterals bool   `yaml:"escape_literals" mapstructure:"escape_literals"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// New returns a viper instance with config file lookup, environment binding and
// defaults applied. Callers may bind flags to it before calling Unmarshal.
func New() *viper.Viper {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.path", "2025_SCA_Rates.csv")
	v.SetDefault("source.delimiter", "|")
	v.SetDefault("source.encoding", "utf-8")
	v.SetDefault("source.comment", "")
	v.SetDefault("source.lazy_quotes", false)
	v.SetDefault("source.sheet", "")
	v.SetDefault("source.sheet_index", 0)
	v.SetDefault("source.skip_rows", 0)
	v.SetDefault("source.trim_space", false)
	v.SetDefault("source.duplicates", string(sca.DuplicatesLast))
	v.SetDefault("enrichment.enabled", true)
	v.SetDefault("enrichment.path", "2023_sca_rates_export_arrs.csv")
	v.SetDefault("enrichment.delimiter", ",")
	v.SetDefault("enrichment.encoding", "utf-8")
	v.SetDefault("enrichment.comment", "")
	v.SetDefault("enrichment.lazy_quotes", false)
	v.SetDefault("enrichment.trim_space", false)
	v.SetDefault("enrichment.join", string(sca.JoinKeyed))
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.name_format", emit.DefaultNameFormat)
	v.SetDefault("output.fiscal_year", string(emit.FiscalYearCurrent))
	v.SetDefault("output.year", 0)
	v.SetDefault("output.overwrite", false)
	v.SetDefault("output.dialect", string(emit.DialectMSSQL))
	v.SetDefault("output.shape", string(emit.ShapeInsert))
	v.SetDefault("output.wrapper", string(emit.WrapperGuard))
	v.SetDefault("output.table", "dbo.Jobs")
	v.SetDefault("output.escape_literals", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	return v
}

// Unmarshal reads the optional config file into v and decodes the result.
func Unmarshal(v *viper.Viper) (*Config, error) {
	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks enumerations and policy combinations.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source.Path) == "" {
		return eris.New("config: source.path is required")
	}
	if _, err := DelimiterRune(c.Source.Delimiter); err != nil {
		return eris.Wrap(err, "config: source.delimiter")
	}
	if err := validateEncoding(c.Source.Encoding); err != nil {
		return eris.Wrap(err, "config: source.encoding")
	}
	if _, err := CommentRune(c.Source.Comment); err != nil {
		return eris.Wrap(err, "config: source.comment")
	}
	if c.Source.SheetIndex < 0 || c.Source.SkipRows < 0 {
		return eris.New("config: source.sheet_index and source.skip_rows must not be negative")
	}
	dup := sca.DuplicatePolicy(c.Source.Duplicates)
	if !dup.Valid() {
		return eris.Errorf("config: source.duplicates %q must be one of %v", c.Source.Duplicates, sca.DuplicatePolicies)
	}

	if c.Enrichment.Enabled {
		if strings.TrimSpace(c.Enrichment.Path) == "" {
			return eris.New("config: enrichment.path is required when enrichment is enabled")
		}
		if _, err := DelimiterRune(c.Enrichment.Delimiter); err != nil {
			return eris.Wrap(err, "config: enrichment.delimiter")
		}
		if err := validateEncoding(c.Enrichment.Encoding); err != nil {
			return eris.Wrap(err, "config: enrichment.encoding")
		}
		if _, err := CommentRune(c.Enrichment.Comment); err != nil {
			return eris.Wrap(err, "config: enrichment.comment")
		}
		join := sca.JoinStrategy(c.Enrichment.Join)
		if !join.Valid() {
			return eris.Errorf("config: enrichment.join %q must be keyed or linear", c.Enrichment.Join)
		}
		if join == sca.JoinKeyed && dup == sca.DuplicatesKeep {
			return eris.New("config: source.duplicates=keep requires enrichment.join=linear")
		}
	}

	if _, err := emit.FiscalYear(emit.FiscalYearPolicy(c.Output.FiscalYear), c.Output.Year, time.Time{}); err != nil {
		return eris.Wrap(err, "config: output.fiscal_year")
	}
	if c.Output.Year < 0 {
		return eris.Errorf("config: output.year %d must not be negative", c.Output.Year)
	}
	if err := emit.ValidateNameFormat(c.Output.NameFormat); err != nil {
		return eris.Wrap(err, "config: output.name_format")
	}
	if err := c.EmitOptions().Validate(); err != nil {
		return eris.Wrap(err, "config: output")
	}
	return nil
}

// SourceOptions maps the source section onto the reader options.
func (c *Config) SourceOptions() sca.SourceOptions {
	d, _ := DelimiterRune(c.Source.Delimiter)
	comment, _ := CommentRune(c.Source.Comment)
	return sca.SourceOptions{
		Path:       c.Source.Path,
		Delimiter:  d,
		Encoding:   c.Source.Encoding,
		TrimSpace:  c.Source.TrimSpace,
		LazyQuotes: c.Source.LazyQuotes,
		Comment:    comment,
		Sheet:      c.Source.Sheet,
		SheetIndex: c.Source.SheetIndex,
		SkipRows:   c.Source.SkipRows,
	}
}

// EnrichmentOptions maps the enrichment section onto the reader options.
func (c *Config) EnrichmentOptions() sca.EnrichmentOptions {
	d, _ := DelimiterRune(c.Enrichment.Delimiter)
	comment, _ := CommentRune(c.Enrichment.Comment)
	return sca.EnrichmentOptions{
		Path:       c.Enrichment.Path,
		Delimiter:  d,
		Encoding:   c.Enrichment.Encoding,
		TrimSpace:  c.Enrichment.TrimSpace,
		LazyQuotes: c.Enrichment.LazyQuotes,
		Comment:    comment,
		Strategy:   sca.JoinStrategy(c.Enrichment.Join),
	}
}

// EmitOptions maps the output section onto the emission policy.
func (c *Config) EmitOptions() emit.Options {
	return emit.Options{
		Dialect:        emit.Dialect(c.Output.Dialect),
		Shape:          emit.Shape(c.Output.Shape),
		Wrapper:        emit.Wrapper(c.Output.Wrapper),
		Table:          c.Output.Table,
		EscapeLiterals: c.Output.EscapeLiterals,
	}
}

// FileOptions maps the output section onto the file policy.
func (c *Config) FileOptions() emit.FileOptions {
	return emit.FileOptions{
		Dir:        c.Output.Dir,
		NameFormat: c.Output.NameFormat,
		Overwrite:  c.Output.Overwrite,
	}
}

// DelimiterRune converts a one-character delimiter setting. "\t" and "tab" name
// the tab character.
func DelimiterRune(s string) (rune, error) {
	switch s {
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, eris.Errorf("delimiter %q must be a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, eris.Errorf("delimiter %q is not allowed", s)
	}
	return r, nil
}

// CommentRune converts an optional comment character setting. Empty disables
// comment lines.
func CommentRune(s string) (rune, error) {
	if s == "" {
		return 0, nil
	}
	return DelimiterRune(s)
}

// validateEncoding rejects charset labels the readers cannot decode. Empty means
// UTF-8.
func validateEncoding(label string) error {
	if strings.TrimSpace(label) == "" {
		return nil
	}
	if _, err := htmlindex.Get(label); err != nil {
		return eris.Errorf("unsupported charset %q", label)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
