package verify

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no
// configuration path is given.
const DefaultConfigFile = ".tverify.yaml"

// ErrIncompatibleVersion is returned when a configuration requires
// another version of the tool.
var ErrIncompatibleVersion = errors.New("configuration requires another tverify version")

// Config is the content of a configuration file.
type Config struct {
	Name string `yaml:"name" validate:"required"`
	// Version is a semver constraint the running tool must satisfy.
	Version    string            `yaml:"version,omitempty" validate:"omitempty,semver_constraint"`
	Timeout    time.Duration     `yaml:"timeout,omitempty" validate:"gte=0"`
	Filter     string            `yaml:"filter,omitempty"`
	Debug      bool              `yaml:"debug,omitempty"`
	Contracts  []ContractConfig  `yaml:"contracts,omitempty" validate:"dive"`
	Invariants []InvariantConfig `yaml:"invariants,omitempty" validate:"dive"`
}

// ContractConfig adds clauses to the contract of one function, named as
// in the diagnostics, e.g. "pkg.F" or "(*pkg.T).M".
type ContractConfig struct {
	Method   string   `yaml:"method" validate:"required"`
	Requires []string `yaml:"requires,omitempty" validate:"dive,required"`
	Ensures  []string `yaml:"ensures,omitempty" validate:"dive,required"`
}

// InvariantConfig adds invariant clauses to a named type of the package.
type InvariantConfig struct {
	Type      string   `yaml:"type" validate:"required"`
	Invariant []string `yaml:"invariant" validate:"min=1,dive,required"`
}

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("semver_constraint", validateConstraint)
}

func validateConstraint(fl validator.FieldLevel) bool {
	_, err := semver.NewConstraint(fl.Field().String())
	return err == nil
}

// DefaultConfig is the configuration written by `tverify init`.
func DefaultConfig() Config {
	return Config{
		Name:    "tverify",
		Version: "^" + Version,
		Timeout: 10 * time.Second,
	}
}

// LoadConfig reads, validates and version-checks the configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes a configuration. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the fields of c and that the running tool satisfies
// its version constraint.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Version == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(c.Version)
	if err != nil {
		return err
	}
	if !constraint.Check(semver.MustParse(Version)) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrIncompatibleVersion, Version, c.Version)
	}
	return nil
}

// Options turns c into the options of checking the package in dir.
func (c *Config) Options(dir string) CheckOptions {
	opts := CheckOptions{
		Assembly:     dir,
		MethodFilter: c.Filter,
		Debug:        c.Debug,
		Timeout:      c.Timeout,
	}
	for _, cc := range c.Contracts {
		opts.Contracts = append(opts.Contracts, ContractOverlay{
			Method:   cc.Method,
			Requires: cc.Requires,
			Ensures:  cc.Ensures,
		})
	}
	for _, ic := range c.Invariants {
		opts.Invariants = append(opts.Invariants, InvariantOverlay{
			Type:      ic.Type,
			Invariant: ic.Invariant,
		})
	}
	return opts
}
