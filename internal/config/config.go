// Package config holds the runtime's tunable limits, loadable from YAML.
//
// Defaults mirror the C headers' constants (BUFSIZ 8192, FOPEN_MAX 16).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the set of fixed capacities the runtime is built with. The
// tables never grow past these at run time.
type Config struct {
	// OpenMax is the descriptor-table slot count (OPEN_MAX).
	OpenMax int `yaml:"open_max"`
	// FopenMax is the stream-table slot count (FOPEN_MAX), including the
	// three standard streams.
	FopenMax int `yaml:"fopen_max"`
	// BufSize is the default stream buffer size (BUFSIZ).
	BufSize int `yaml:"buf_size"`
	// PipeCapacity is the pipe ring size in bytes (0 uses the kernel default).
	PipeCapacity int `yaml:"pipe_capacity"`
	// Debug enables verbose structured logging.
	Debug bool `yaml:"debug"`
}

// Default returns the limits from the C headers.
func Default() Config {
	return Config{
		OpenMax:      32,
		FopenMax:     16,
		BufSize:      8192,
		PipeCapacity: 0,
	}
}

// Load reads a YAML config file, filling unset fields from Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg.normalized()
}

func (c Config) normalized() (Config, error) {
	def := Default()
	if c.OpenMax <= 0 {
		c.OpenMax = def.OpenMax
	}
	if c.FopenMax < 3 {
		// The standard streams occupy three slots; anything smaller cannot
		// host a runtime.
		return Config{}, fmt.Errorf("fopen_max %d is below the 3 standard streams", c.FopenMax)
	}
	if c.BufSize <= 0 {
		c.BufSize = def.BufSize
	}
	if c.PipeCapacity < 0 {
		c.PipeCapacity = 0
	}
	return c, nil
}
