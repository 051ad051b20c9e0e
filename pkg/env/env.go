package env

import "os"

// Get returns the value of the given environment variable or a fallback. It exists for
// the handful of reads that happen before envconfig has parsed the full configuration.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
