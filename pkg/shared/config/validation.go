package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidateConfig checks if the global configuration has valid values.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateScannerConfig(&cfg.Scanner); err != nil {
		return fmt.Errorf("YAML global config: scanner directive is invalid: %w", err)
	}
	if err := ValidateRulesConfig(&cfg.Rules); err != nil {
		return fmt.Errorf("YAML global config: rules directive is invalid: %w", err)
	}
	if err := ValidateHTTPConfig(&cfg.HTTPClient); err != nil {
		return fmt.Errorf("YAML global config: http_client directive is invalid: %w", err)
	}
	return nil
}

// ValidateScannerConfig checks if the scanner configuration has valid values.
func ValidateScannerConfig(scannerConfig *Scanner) error {
	if scannerConfig == nil {
		return fmt.Errorf("scanner configuration is nil")
	}
	if scannerConfig.Workers < 0 || scannerConfig.Workers > 256 {
		return fmt.Errorf("workers must be between 0 and 256: %d", scannerConfig.Workers)
	}
	return nil
}

// ValidateRulesConfig checks if the rules configuration has valid values.
func ValidateRulesConfig(rulesConfig *Rules) error {
	if rulesConfig == nil {
		return fmt.Errorf("rules configuration is nil")
	}
	source := strings.TrimSpace(rulesConfig.Source)
	if source == "" {
		return nil
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		if _, err := url.ParseRequestURI(source); err != nil {
			return fmt.Errorf("invalid rules source URL %q: %w", source, err)
		}
	}
	return nil
}

// ValidateHTTPConfig checks if the HTTP configuration has valid values.
func ValidateHTTPConfig(httpConfig *HTTPClient) error {
	if httpConfig == nil {
		return fmt.Errorf("HTTP configuration is nil")
	}
	if httpConfig.RetryCount < 0 || httpConfig.RetryCount > 20 {
		return fmt.Errorf("retry_count must be between 0 and 20: %d", httpConfig.RetryCount)
	}

	durations := map[string]time.Duration{
		"RetryMaxWaitTime": httpConfig.RetryMaxWaitTime,
		"RetryWaitTime":    httpConfig.RetryWaitTime,
		"Timeout":          httpConfig.Timeout,
	}
	for name, duration := range durations {
		if err := validateDuration(duration, name, 100*time.Second); err != nil {
			return err
		}
	}

	if err := validateProxy(&httpConfig.Proxy); err != nil {
		return err
	}

	return nil
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %q: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("invalid duration for %q: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}

// validateProxy checks that host and port are either both set or both empty.
func validateProxy(proxy *Proxy) error {
	if proxy == nil {
		return nil
	}
	if (proxy.Host == "") != (proxy.Port == "") {
		return fmt.Errorf("proxy host and port must be set together")
	}
	return nil
}
