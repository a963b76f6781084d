// Package env reads process environment values with fallbacks, for the few
// knobs that need resolving before the typed config is loaded.
package env

import "os"

// Get returns the environment value for key, or fallback when the variable
// is unset or blank.
func Get(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
