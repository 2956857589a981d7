package zsend

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds file-based overrides of the detected capability. Zero
// values keep the detected defaults.
type Config struct {
	HeaderCorkMin         int    `yaml:"header_cork_min"`
	HeaderCorkMax         int    `yaml:"header_cork_max"`
	SendfileChunk         int    `yaml:"sendfile_chunk"`
	SendfileChunkThreaded int    `yaml:"sendfile_chunk_thread_per_conn"`
	BufferSize            int    `yaml:"buffer_size"`
	Model                 string `yaml:"exec_model"`
	DisableZeroCopy       bool   `yaml:"disable_zero_copy"`
	DisableVectored       bool   `yaml:"disable_vectored"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := new(Config)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HeaderCorkMin < 0 || c.HeaderCorkMax < 0 {
		return fmt.Errorf("header cork window must not be negative")
	}
	if err := c.window(DefaultWindow).check(); err != nil {
		return err
	}
	if c.SendfileChunk < 0 || c.SendfileChunkThreaded < 0 || c.BufferSize < 0 {
		return fmt.Errorf("chunk and buffer sizes must not be negative")
	}
	if _, err := parseExecModel(c.Model); err != nil {
		return err
	}
	return nil
}

// ExecModel returns the configured execution model, EventDriven when
// unset.
func (c *Config) ExecModel() ExecModel {
	m, _ := parseExecModel(c.Model)
	return m
}

// Apply returns caps with the overrides of c. Features can be switched
// off but never on: a platform without vectored writes stays without.
// A bound set on one side only must still fit the other side of caps.
func (c *Config) Apply(caps Capability) (Capability, error) {
	w := c.window(caps.Window)
	if err := w.check(); err != nil {
		return caps, err
	}
	caps.Window = w
	if c.SendfileChunk > 0 {
		caps.ChunkSize = c.SendfileChunk
	}
	if c.SendfileChunkThreaded > 0 {
		caps.ThreadChunkSize = c.SendfileChunkThreaded
	}
	if c.DisableZeroCopy {
		caps.ZeroCopy = ZeroCopyNone
	}
	if c.DisableVectored {
		caps.Vectored = false
	}
	return caps, nil
}

// Options turns c into Sender options on top of caps.
func (c *Config) Options(caps Capability) ([]Option, error) {
	caps, err := c.Apply(caps)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithCapability(caps),
		WithExecModel(c.ExecModel()),
		WithBufferSize(c.BufferSize),
	}, nil
}

// window merges the configured bounds onto base.
func (c *Config) window(base Window) Window {
	if c.HeaderCorkMin > 0 {
		base.Min = c.HeaderCorkMin
	}
	if c.HeaderCorkMax > 0 {
		base.Max = c.HeaderCorkMax
	}
	return base
}

func (w Window) check() error {
	if w.Min > w.Max {
		return fmt.Errorf("header cork window [%d,%d] is empty", w.Min, w.Max)
	}
	return nil
}

func parseExecModel(s string) (ExecModel, error) {
	switch s {
	case "", "event-driven":
		return EventDriven, nil
	case "thread-per-connection":
		return ThreadPerConnection, nil
	}
	return EventDriven, fmt.Errorf("unknown exec_model %q", s)
}
