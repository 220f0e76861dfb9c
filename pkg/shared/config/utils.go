package config

import (
	"reflect"
)

// GetBoolValue dereferences an optional boolean, falling back when unset.
func GetBoolValue(value *bool, defaultValue bool) bool {
	if value == nil {
		return defaultValue
	}
	return *value
}

// SetThen provides a utility to select the first value if set, otherwise defaults.
func SetThen[T any](value T, defaultValue T) T {
	if reflect.ValueOf(value).IsZero() {
		return defaultValue
	}
	return value
}

// Workers resolves the effective worker-pool bound for a scan run.
func Workers(cfg *Config) int {
	if cfg == nil || cfg.Scanner.Workers <= 0 {
		return DefaultWorkers
	}
	return cfg.Scanner.Workers
}
