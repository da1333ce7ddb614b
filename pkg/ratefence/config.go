package ratefence

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the limiter configuration. It is usually loaded from a
// YAML file, but can also be built in code and passed via WithConfig.
type Config struct {
	// Listen is the address the demo server binds to. The library
	// itself never reads it.
	Listen string `yaml:"listen,omitempty"`

	// Limit is the fixed-window rate limit applied to every tracked
	// client.
	Limit Policy `yaml:"limit"`

	// Extractor specifies how clients are identified.
	// Examples: "remote-addr", "proxy".
	Extractor string `yaml:"extractor,omitempty"`

	// TrackedClients restricts limiting to the listed addresses.
	// When empty, every client is limited.
	TrackedClients []string `yaml:"tracked_clients,omitempty"`
}

// NewConfig creates a Config with the documented defaults:
// 100 requests per hour, clients identified by remote address.
func NewConfig() *Config {
	return &Config{
		Listen: ":9980",
		Limit: Policy{
			Requests: 100,
			Period:   3600,
		},
		Extractor: "remote-addr",
	}
}

// LoadConfigFromFile loads configuration from a YAML file.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrInvalidConfig, err)
	}

	config := NewConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", ErrInvalidConfig, err)
	}

	// Apply defaults if not set
	if config.Listen == "" {
		config.Listen = ":9980"
	}
	if config.Limit.Requests == 0 && config.Limit.Period == 0 {
		config.Limit = Policy{Requests: 100, Period: 3600}
	}
	if config.Extractor == "" {
		config.Extractor = "remote-addr"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Limit.Validate(); err != nil {
		return fmt.Errorf("%w: invalid limit: %v", ErrInvalidConfig, err)
	}

	if _, err := ParseExtractorConfig(c.Extractor); err != nil {
		return err
	}

	for _, addr := range c.TrackedClients {
		if ParseClientID(addr) == 0 {
			return fmt.Errorf("%w: tracked client %q is not an IPv4 address", ErrInvalidConfig, addr)
		}
	}

	return nil
}

// TrackedClientIDs resolves the configured tracked client addresses to
// their numeric ids.
func (c *Config) TrackedClientIDs() ([]ClientID, error) {
	ids := make([]ClientID, 0, len(c.TrackedClients))
	for _, addr := range c.TrackedClients {
		id := ParseClientID(addr)
		if id == 0 {
			return nil, fmt.Errorf("%w: tracked client %q is not an IPv4 address", ErrInvalidConfig, addr)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
