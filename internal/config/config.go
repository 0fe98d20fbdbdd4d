package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "repbench.yaml"

type Config struct {
	Trials         int      `yaml:"trials"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	SettleSeconds  int      `yaml:"settle_seconds"`
	Attempts       int      `yaml:"attempts"`
	LogDir         string   `yaml:"log_dir"`
	WorkDir        string   `yaml:"work_dir"`
	EnvFile        string   `yaml:"env_file"`
	Commands       Commands `yaml:"commands"`
}

// Commands are argv lists for the external collaborators. An empty list
// disables that collaborator.
type Commands struct {
	Reset       []string `yaml:"reset"`
	MachineInfo []string `yaml:"machine_info"`
	Build       []string `yaml:"build"`
	Run         []string `yaml:"run"`
	DmesgClear  []string `yaml:"dmesg_clear"`
	DmesgDump   []string `yaml:"dmesg_dump"`
}

func Default() *Config {
	return &Config{
		Trials:         3,
		TimeoutSeconds: 300,
		SettleSeconds:  3,
		Attempts:       3,
		LogDir:         "logs",
		WorkDir:        ".",
		Commands: Commands{
			Reset:       []string{"./clear.sh"},
			MachineInfo: []string{"./get_machine_info.sh"},
			Build:       []string{"cargo", "build"},
			Run:         []string{"cargo", "run"},
			DmesgClear:  []string{"sudo", "dmesg", "-C"},
			DmesgDump:   []string{"sudo", "dmesg"},
		},
	}
}

// Load reads the YAML file at path on top of Default. Keys absent from the
// file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load, except that a missing file at
// DefaultPath yields the built-in defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && path == DefaultPath && errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func validate(cfg *Config) error {
	if cfg.Trials < 1 {
		return fmt.Errorf("trials must be at least 1")
	}
	if cfg.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout_seconds must be at least 1")
	}
	if cfg.SettleSeconds < 0 {
		return fmt.Errorf("settle_seconds must not be negative")
	}
	if cfg.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1")
	}
	if cfg.LogDir == "" {
		return fmt.Errorf("log_dir is required")
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if len(cfg.Commands.Run) == 0 {
		return fmt.Errorf("commands.run is required")
	}
	return nil
}

// Validate re-checks cfg after flag overrides have been applied.
func (c *Config) Validate() error {
	return validate(c)
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) Settle() time.Duration {
	return time.Duration(c.SettleSeconds) * time.Second
}

// Env returns the KEY=VALUE pairs from EnvFile, sorted by key. Relative
// paths resolve against WorkDir.
func (c *Config) Env() ([]string, error) {
	if c.EnvFile == "" {
		return nil, nil
	}
	path := c.EnvFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.WorkDir, path)
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	env := make([]string, 0, len(vars))
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env, nil
}
