package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Config is the root of the application configuration loaded from a YAML file.
type Config struct {
	Logger     Logger     `yaml:"logger"`
	Scanner    Scanner    `yaml:"scanner"`
	Rules      Rules      `yaml:"rules"`
	HTTPClient HTTPClient `yaml:"http_client"`
}

type Logger struct {
	Level string `yaml:"level"`
}

// Scanner holds the engine-level knobs for a scan run.
type Scanner struct {
	Workers int `yaml:"workers"`
}

// Rules describes where the declarative rule catalog is loaded from.
// Source may be a local file path or an HTTP(S) URL; when empty only the
// builtin catalog is used.
type Rules struct {
	Source string `yaml:"source"`
}

type HTTPClient struct {
	Debug            *bool         `yaml:"debug"`
	RetryCount       int           `yaml:"retry_count"`
	RetryWaitTime    time.Duration `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration `yaml:"retry_max_wait_time"`
	Timeout          time.Duration `yaml:"timeout"`
	TLSClientConfig  TLSConfig     `yaml:"tls_client_config"`
	Proxy            Proxy         `yaml:"proxy"`
}

// TLSConfig controls certificate verification for outbound HTTPS. Verify is
// optional so an absent key keeps verification on.
type TLSConfig struct {
	Verify *bool `yaml:"verify"`
}

type Proxy struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// ValidateConfigPath checks that the given path points at a regular file.
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

// LoadYAML decodes the YAML file at configPath into data.
func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// LoadConfig reads the application configuration from configPath. A missing
// file is not an error: callers get a zero-value config and defaults apply.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadYAML(configPath, config); err != nil {
		return nil, err
	}

	return config, nil
}
