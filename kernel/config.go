package kernel

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/alecthomas/units"
	"gopkg.in/yaml.v3"
)

// ByteSize is a byte count that accepts human-readable sizes ("1MiB",
// "64KiB") as well as plain integers, in flags and in YAML.
type ByteSize uint64

// String implements flag.Value.
func (b ByteSize) String() string {
	return units.Base2Bytes(b).String()
}

// Set implements flag.Value.
func (b *ByteSize) Set(s string) error {
	if s == "" {
		*b = 0
		return nil
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		*b = ByteSize(n)
		return nil
	}
	parsed, err := units.ParseBase2Bytes(s)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("invalid size %q: negative", s)
	}
	*b = ByteSize(parsed)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler. Both `memory: 1MiB` and
// `memory: 1048576` are accepted.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid size: expected scalar, got %v", value.Kind)
	}
	return b.Set(value.Value)
}

// MarshalYAML implements yaml.Marshaler.
func (b ByteSize) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}

// Default machine parameters.
const (
	// DefaultMemoryBytes is the arena capacity when none is configured.
	DefaultMemoryBytes = ByteSize(1 << 20)

	// DefaultInitName is the name of the seeded first process.
	DefaultInitName = "init"
)

// Config describes a machine. The zero value is valid; unset fields take
// defaults when the kernel is constructed.
type Config struct {
	// Memory is the arena capacity.
	// Default: 1MiB
	Memory ByteSize `yaml:"memory"`

	// SplitThreshold is the minimum remainder, in bytes, worth keeping as
	// a separate free block when an allocation splits a larger one.
	// Default: 64
	SplitThreshold ByteSize `yaml:"split_threshold"`

	// SplitThresholdSet marks an explicit threshold, letting zero mean
	// "split any remainder" rather than "use the default".
	SplitThresholdSet bool `yaml:"-"`

	// InitName names the seeded first process.
	// Default: "init"
	InitName string `yaml:"init_process"`
}

// DefaultConfig returns the machine parameters the original defaults to.
func DefaultConfig() Config {
	return Config{
		Memory:            DefaultMemoryBytes,
		SplitThreshold:    ByteSize(64),
		SplitThresholdSet: true,
		InitName:          DefaultInitName,
	}
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.Memory == 0 {
		c.Memory = DefaultMemoryBytes
	}
	if c.SplitThreshold == 0 && !c.SplitThresholdSet {
		c.SplitThreshold = ByteSize(64)
	}
	if c.InitName == "" {
		c.InitName = DefaultInitName
	}
	return c
}

// LoadConfig reads a YAML machine config. Unknown fields are rejected so a
// typo fails loudly instead of silently taking a default.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML machine config bytes.
func ParseConfig(data []byte) (Config, error) {
	var raw struct {
		Memory         *ByteSize `yaml:"memory"`
		SplitThreshold *ByteSize `yaml:"split_threshold"`
		InitName       string    `yaml:"init_process"`
	}
	if err := unmarshalStrict(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	var c Config
	if raw.Memory != nil {
		c.Memory = *raw.Memory
	}
	if raw.SplitThreshold != nil {
		c.SplitThreshold = *raw.SplitThreshold
		c.SplitThresholdSet = true
	}
	c.InitName = raw.InitName
	return c, nil
}

func unmarshalStrict(data []byte, out interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(out)
	if errors.Is(err, io.EOF) {
		// Empty document: every field takes its default.
		return nil
	}
	return err
}
