package pbapserver

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// Config is the PSE's externally-tunable configuration, loaded from an
// optional YAML file and overridable by CLI flags (§4.I), mirroring the
// teacher's client.Config default-filling factory.
type Config struct {
	Listen       string        `yaml:"listen"`
	RootDir      string        `yaml:"rootdir"`
	Backend      string        `yaml:"backend"` // "fs" or "mem"
	FragmentCap  int           `yaml:"fragment_cap"`
	LogLevel     string        `yaml:"log_level"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// NewConfig returns a Config filled with the package defaults.
func NewConfig() *Config {
	return &Config{
		Listen:      ":9021",
		RootDir:     ".",
		Backend:     "fs",
		FragmentCap: defaultFragmentCap,
		LogLevel:    "info",
	}
}

// LoadConfig reads path as YAML over the package defaults; a missing file
// is not an error, matching the "optional config file" contract in §4.I.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("pbapserver: no config file found, using defaults", "path", path)
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyLogLevel sets charmbracelet/log's global level from cfg.LogLevel,
// defaulting to Info on an unrecognized value.
func (c *Config) ApplyLogLevel() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warn("pbapserver: unrecognized log level, defaulting to info", "log_level", c.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
