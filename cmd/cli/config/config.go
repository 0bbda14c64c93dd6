package config

import "os"

const defaultAPIURL = "http://localhost:8080"

// APIURL returns the base URL for the DocWatch API.
// It can be overridden with the DOCWATCH_API_URL environment variable.
func APIURL() string {
	if v := os.Getenv("DOCWATCH_API_URL"); v != "" {
		return v
	}
	return defaultAPIURL
}
