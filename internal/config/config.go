package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "routegen.yaml"

type EmitConfig struct {
	MapName               string `yaml:"map_name" toml:"map_name"`
	NormalizeAnyToUnknown bool   `yaml:"normalize_any_to_unknown" toml:"normalize_any_to_unknown"`
}

// GoConfig configures the Go package front end, used by "go:" type
// references.
type GoConfig struct {
	Dir      string   `yaml:"dir" toml:"dir"`
	Packages []string `yaml:"packages" toml:"packages"`
	// Imports maps a Go package path to the module path named types from it
	// are imported from.
	Imports map[string]string `yaml:"imports" toml:"imports"`
}

type FilterConfig struct {
	Prefix        string   `yaml:"prefix" toml:"prefix"`
	IgnoreMethods []string `yaml:"ignore_methods" toml:"ignore_methods"`
	IgnorePaths   []string `yaml:"ignore_paths" toml:"ignore_paths"`
	IncludePaths  []string `yaml:"include_paths" toml:"include_paths"`
}

type StoreConfig struct {
	Path    string `yaml:"path" toml:"path"`
	Enabled bool   `yaml:"enabled" toml:"enabled"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	JSON  bool   `yaml:"json" toml:"json"`
}

type Config struct {
	Input  string       `yaml:"input" toml:"input"`
	Output string       `yaml:"output" toml:"output"`
	Emit   EmitConfig   `yaml:"emit" toml:"emit"`
	Go     GoConfig     `yaml:"go" toml:"go"`
	Filter FilterConfig `yaml:"filter" toml:"filter"`
	Store  StoreConfig  `yaml:"store" toml:"store"`
	Log    LogConfig    `yaml:"log" toml:"log"`
}

// Default returns a config with every default applied.
func Default() *Config {
	c := &Config{Store: StoreConfig{Enabled: true}}
	c.SetDefaults()
	return c
}

// Load reads the config at configPath (YAML, or TOML for a .toml
// extension), then applies env overrides. A missing file yields the
// defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()
	if configPath == "" {
		configPath = DefaultPath
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := decode(configPath, data, cfg); err != nil {
			return nil, err
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, errors.Wrap(err, "read config")
	}

	cfg.SetDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return errors.WithHint(errors.Wrapf(err, "parse config %s", path),
				"the file is read as TOML because of its extension")
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

func (c *Config) SetDefaults() {
	if c.Input == "" {
		c.Input = "routes.yaml"
	}
	if c.Output == "" {
		c.Output = "generated/api-routes.d.ts"
	}
	if c.Emit.MapName == "" {
		c.Emit.MapName = "ApiRoutes"
	}
	if c.Go.Dir == "" {
		c.Go.Dir = "."
	}
	if len(c.Go.Packages) == 0 {
		c.Go.Packages = []string{"./..."}
	}
	if c.Filter.IgnoreMethods == nil {
		c.Filter.IgnoreMethods = []string{"OPTIONS", "HEAD"}
	}
	if c.Store.Path == "" {
		c.Store.Path = ".routegen/history.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return errors.New("input cannot be empty")
	}
	if strings.TrimSpace(c.Output) == "" {
		return errors.New("output cannot be empty")
	}
	if err := ensureWritableDir(filepath.Dir(c.Output)); err != nil {
		return errors.Wrap(err, "output directory not writable")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// Encode renders the config as YAML, used by `routegen init`.
func (c *Config) Encode() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "encode config")
	}
	return data, nil
}

func ensureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func applyEnvOverrides(c *Config) {
	setString(&c.Input, "ROUTEGEN_INPUT")
	setString(&c.Output, "ROUTEGEN_OUTPUT")
	setString(&c.Emit.MapName, "ROUTEGEN_MAP_NAME")
	setBool(&c.Emit.NormalizeAnyToUnknown, "ROUTEGEN_NORMALIZE_ANY")
	setString(&c.Go.Dir, "ROUTEGEN_GO_DIR")
	setString(&c.Filter.Prefix, "ROUTEGEN_PREFIX")
	setString(&c.Store.Path, "ROUTEGEN_STORE_PATH")
	setBool(&c.Store.Enabled, "ROUTEGEN_STORE_ENABLED")
	setString(&c.Log.Level, "ROUTEGEN_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
