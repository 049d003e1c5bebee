package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"clv-segments/pkg/models"

	"gopkg.in/yaml.v3"
)

const envPrefix = "CLV_SEGMENTS_"

// Config is the resolved configuration of one CLI run.
type Config struct {
	// Source: a database table (DSN + Table) or a CSV file (InputCSV).
	DSN      string
	Table    string
	InputCSV string
	From     string // optional lower InvoiceDate bound for the database source, YYYY-MM-DD
	To       string // optional upper bound, exclusive

	Output     string
	EvalOutput string

	ReferenceCountry string
	ReferenceDate    string // YYYY-MM-DD; empty → last transaction + 1 day
	Workers          int

	CLVEnabled    bool
	HorizonMonths int

	K              int
	KMin           int
	KMax           int
	Seed           uint64
	ClusterColumns []string

	LogMode string
	Verbose bool
}

// configFile mirrors the YAML layout of a config file.
type configFile struct {
	Source struct {
		DSN      string `yaml:"dsn"`
		Table    string `yaml:"table"`
		InputCSV string `yaml:"input_csv"`
		From     string `yaml:"from"`
		To       string `yaml:"to"`
	} `yaml:"source"`
	Output struct {
		Path     string `yaml:"path"`
		EvalPath string `yaml:"eval_path"`
	} `yaml:"output"`
	Features struct {
		ReferenceCountry string `yaml:"reference_country"`
		ReferenceDate    string `yaml:"reference_date"`
		Workers          int    `yaml:"workers"`
	} `yaml:"features"`
	CLV struct {
		Enabled       *bool `yaml:"enabled"`
		HorizonMonths int   `yaml:"horizon_months"`
	} `yaml:"clv"`
	Segment struct {
		K       int      `yaml:"k"`
		KMin    int      `yaml:"k_min"`
		KMax    int      `yaml:"k_max"`
		Seed    *uint64  `yaml:"seed"`
		Columns []string `yaml:"columns"`
	} `yaml:"segment"`
	Log struct {
		Mode    string `yaml:"mode"`
		Verbose *bool  `yaml:"verbose"`
	} `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	cols := []string{models.ColRecency, models.ColFrequency, models.ColMonetary, models.ColIsReferenceCountry}
	cols = append(cols, models.CategoryShareColumns()...)
	return Config{
		Table:            "OnlineRetail",
		Output:           "data/processed/rfm_segments.csv",
		ReferenceCountry: "United Kingdom",
		Workers:          4,
		CLVEnabled:       true,
		HorizonMonths:    6,
		K:                4,
		KMin:             2,
		KMax:             8,
		Seed:             42,
		ClusterColumns:   cols,
		LogMode:          "dev",
	}
}

// Load resolves configuration in priority order: defaults -> file -> env.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var f configFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.applyFile(f)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(f configFile) {
	setString(&c.DSN, f.Source.DSN)
	setString(&c.Table, f.Source.Table)
	setString(&c.InputCSV, f.Source.InputCSV)
	setString(&c.From, f.Source.From)
	setString(&c.To, f.Source.To)
	setString(&c.Output, f.Output.Path)
	setString(&c.EvalOutput, f.Output.EvalPath)
	setString(&c.ReferenceCountry, f.Features.ReferenceCountry)
	setString(&c.ReferenceDate, f.Features.ReferenceDate)
	setInt(&c.Workers, f.Features.Workers)
	if f.CLV.Enabled != nil {
		c.CLVEnabled = *f.CLV.Enabled
	}
	setInt(&c.HorizonMonths, f.CLV.HorizonMonths)
	setInt(&c.K, f.Segment.K)
	setInt(&c.KMin, f.Segment.KMin)
	setInt(&c.KMax, f.Segment.KMax)
	if f.Segment.Seed != nil {
		c.Seed = *f.Segment.Seed
	}
	if len(f.Segment.Columns) > 0 {
		c.ClusterColumns = f.Segment.Columns
	}
	setString(&c.LogMode, f.Log.Mode)
	if f.Log.Verbose != nil {
		c.Verbose = *f.Log.Verbose
	}
}

func (c *Config) applyEnv() error {
	setString(&c.DSN, env("DSN"))
	setString(&c.Table, env("TABLE"))
	setString(&c.InputCSV, env("INPUT"))
	setString(&c.Output, env("OUTPUT"))
	setString(&c.EvalOutput, env("EVAL_OUTPUT"))
	setString(&c.ReferenceCountry, env("REFERENCE_COUNTRY"))
	setString(&c.ReferenceDate, env("REFERENCE_DATE"))
	setString(&c.LogMode, env("LOG_MODE"))
	if v := env("COLUMNS"); v != "" {
		c.ClusterColumns = splitList(v)
	}

	ints := map[string]*int{
		"WORKERS":        &c.Workers,
		"HORIZON_MONTHS": &c.HorizonMonths,
		"K":              &c.K,
		"K_MIN":          &c.KMin,
		"K_MAX":          &c.KMax,
	}
	for name, dst := range ints {
		if v := env(name); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}
			*dst = i
		}
	}
	if v := env("SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSEED: %w", envPrefix, err)
		}
		c.Seed = seed
	}
	bools := map[string]*bool{"CLV_ENABLED": &c.CLVEnabled, "VERBOSE": &c.Verbose}
	for name, dst := range bools {
		if v := env(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}
			*dst = b
		}
	}
	return nil
}

// Validate checks the fields a run cannot start without.
func (c Config) Validate() error {
	switch {
	case c.InputCSV == "" && c.DSN == "":
		return fmt.Errorf("%w: one of input CSV or DSN is required", models.ErrInvalidInput)
	case c.Output == "":
		return fmt.Errorf("%w: output path is required", models.ErrInvalidInput)
	case c.K < 1:
		return fmt.Errorf("%w: k must be at least 1", models.ErrInvalidInput)
	case c.KMin < 2 || c.KMax < c.KMin:
		return fmt.Errorf("%w: candidate range %d..%d", models.ErrInvalidInput, c.KMin, c.KMax)
	case c.CLVEnabled && c.HorizonMonths <= 0:
		return fmt.Errorf("%w: horizon must be positive", models.ErrInvalidInput)
	case len(c.ClusterColumns) == 0:
		return fmt.Errorf("%w: no clustering columns", models.ErrInvalidInput)
	}
	return nil
}

// Pipeline converts the run configuration into the pipeline parameters.
func (c Config) Pipeline() (models.Config, error) {
	if err := c.Validate(); err != nil {
		return models.Config{}, err
	}
	pc := models.Config{
		ReferenceCountry: c.ReferenceCountry,
		Workers:          c.Workers,
		EnableCLV:        c.CLVEnabled,
		HorizonMonths:    c.HorizonMonths,
		ClusterColumns:   c.ClusterColumns,
		K:                c.K,
		Seed:             c.Seed,
		Verbose:          c.Verbose,
	}
	if c.ReferenceDate != "" {
		ref, err := ParseDay(c.ReferenceDate)
		if err != nil {
			return models.Config{}, fmt.Errorf("reference date: %w", err)
		}
		pc.ReferenceDate = &ref
	}
	for k := c.KMin; k <= c.KMax; k++ {
		pc.KCandidates = append(pc.KCandidates, k)
	}
	return pc, nil
}

// ParseDay parses YYYY-MM-DD as midnight UTC.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", models.ErrInvalidInput, s)
	}
	return t, nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + name))
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
