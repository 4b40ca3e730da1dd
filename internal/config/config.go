// Package config loads planetarium settings from YAML, checks them against
// an embedded CUE schema and applies environment overrides.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/planetarium/internal/kv"
	"github.com/roach88/planetarium/internal/scene"
)

//go:embed schema.cue
var schemaCUE string

// DefaultMaxInstances bounds the scene when the file does not say otherwise.
const DefaultMaxInstances = 24

// Identifier schemes for generated records.
const (
	IDsTime = "time" // base-36 creation time plus a random suffix
	IDsUUID = "uuid" // UUIDv7
)

// Environment variables that override file values.
const (
	EnvStorageDriver = "PLANETARIUM_STORAGE_DRIVER"
	EnvStorageDSN    = "PLANETARIUM_STORAGE_DSN"
	EnvS3Bucket      = "PLANETARIUM_S3_BUCKET"
)

// Config is the full set of runtime settings.
type Config struct {
	Variant      scene.Variant `yaml:"variant"`
	MaxInstances int           `yaml:"maxInstances"`
	// Seed makes generation deterministic when set.
	Seed    *uint64   `yaml:"seed"`
	IDs     string    `yaml:"ids"`
	Storage kv.Config `yaml:"storage"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Variant:      scene.VariantShapes,
		MaxInstances: DefaultMaxInstances,
		IDs:          IDsTime,
		Storage:      kv.Config{Driver: kv.DriverFile},
	}
}

// Error describes a configuration value that failed validation.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Load reads the YAML file at path. An empty path yields Default.
// Environment overrides are applied in both cases.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		cfg, err = Parse(data)
		if err != nil {
			return Config{}, err
		}
	}
	ApplyEnv(&cfg, os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse validates data against the schema and decodes it over Default.
func Parse(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, &Error{Message: fmt.Sprintf("invalid yaml: %v", err)}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := checkSchema(raw); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &Error{Message: fmt.Sprintf("decode: %v", err)}
	}
	return cfg, nil
}

// checkSchema unifies raw with #Config and requires a concrete result.
func checkSchema(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError reduces a CUE error list to its first entry and field path.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}
	first := errs[0]
	format, args := first.Msg()
	return &Error{
		Field:   strings.Join(trimDefinition(first.Path()), "."),
		Message: fmt.Sprintf(format, args...),
	}
}

func trimDefinition(path []string) []string {
	if len(path) > 0 && path[0] == "#Config" {
		return path[1:]
	}
	return path
}

// ApplyEnv overlays the PLANETARIUM_* variables onto cfg.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvStorageDriver)); v != "" {
		cfg.Storage.Driver = kv.Driver(strings.ToLower(v))
	}
	if v := strings.TrimSpace(getenv(EnvStorageDSN)); v != "" {
		cfg.Storage.DSN = v
	}
	if v := strings.TrimSpace(getenv(EnvS3Bucket)); v != "" {
		cfg.Storage.S3.Bucket = v
	}
}

// Validate checks cross-field rules the schema cannot see, including values
// that arrived through flags or the environment.
func (c Config) Validate() error {
	if _, err := scene.ParseVariant(string(c.Variant)); err != nil {
		return &Error{Field: "variant", Message: err.Error()}
	}
	if c.MaxInstances < 1 {
		return &Error{Field: "maxInstances", Message: fmt.Sprintf("must be at least 1, got %d", c.MaxInstances)}
	}
	if c.IDs != IDsTime && c.IDs != IDsUUID {
		return &Error{Field: "ids", Message: fmt.Sprintf("must be %q or %q, got %q", IDsTime, IDsUUID, c.IDs)}
	}
	valid := false
	for _, d := range kv.ValidDrivers {
		if c.Storage.Driver == d {
			valid = true
			break
		}
	}
	if !valid {
		return &Error{Field: "storage.driver", Message: fmt.Sprintf("unknown driver %q: must be one of %v", c.Storage.Driver, kv.ValidDrivers)}
	}
	if c.Storage.Driver == kv.DriverS3 && c.Storage.S3.Bucket == "" {
		return &Error{Field: "storage.s3.bucket", Message: "required for the s3 driver"}
	}
	return nil
}
