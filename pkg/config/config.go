package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration. Every value can come from the
// YAML file; the CalDAV credentials can also be supplied through the
// environment, which takes precedence.
type Config struct {
	CalDAV  CalDAVConfig  `yaml:"caldav"`
	NATS    NATSConfig    `yaml:"nats"`
	Logging LoggingConfig `yaml:"logging"`
}

// CalDAVConfig holds the connection target and credentials
type CalDAVConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// NATSConfig enables the optional change-notification publisher when a
// URL is set
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration file (when present) and applies
// environment overrides. A missing file is not an error; the environment
// alone is a valid configuration source.
func Load(configPath string) (*Config, error) {
	var config Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
			// Fall through to the environment.
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	config.applyEnv()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyEnv overlays CALDAV_* variables on top of the file values. The
// YANDEX_* names are accepted for backward compatibility with earlier
// deployments.
func (c *Config) applyEnv() {
	if v := os.Getenv("CALDAV_URL"); v != "" {
		c.CalDAV.URL = v
	}
	if v := firstEnv("CALDAV_USERNAME", "YANDEX_USERNAME"); v != "" {
		c.CalDAV.Username = v
	}
	if v := firstEnv("CALDAV_PASSWORD", "YANDEX_PASSWORD"); v != "" {
		c.CalDAV.Password = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("NATS_SUBJECT"); v != "" {
		c.NATS.Subject = v
	}
}

func (c *Config) validate() error {
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		c.NATS.Subject = "calendar.changes"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging format must be json or text, got %q", c.Logging.Format)
	}

	return nil
}

// Missing lists the CalDAV settings that still have no value. An empty
// result means the connection is fully configured.
func (c *CalDAVConfig) Missing() []string {
	var missing []string
	if c.URL == "" {
		missing = append(missing, "CALDAV_URL")
	}
	if c.Username == "" {
		missing = append(missing, "CALDAV_USERNAME")
	}
	if c.Password == "" {
		missing = append(missing, "CALDAV_PASSWORD")
	}
	return missing
}

// Configured reports whether all CalDAV connection settings are present
func (c *CalDAVConfig) Configured() bool {
	return len(c.Missing()) == 0
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
