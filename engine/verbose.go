package engine

import (
	"os"
	"strings"
)

// VerboseFlags is the parsed RUNTIME_VERBOSE environment variable (§6): a
// comma-separated word set gating optional diagnostics.
type VerboseFlags struct {
	Metric      bool
	Logging     bool
	Route       bool
	ErrorCaller bool
}

// ParseVerboseEnv parses RUNTIME_VERBOSE once at boot.
func ParseVerboseEnv() VerboseFlags {
	return parseVerbose(os.Getenv("RUNTIME_VERBOSE"))
}

func parseVerbose(raw string) VerboseFlags {
	var flags VerboseFlags
	for _, word := range strings.Split(raw, ",") {
		switch strings.TrimSpace(word) {
		case "metric":
			flags.Metric = true
		case "logging":
			flags.Logging = true
		case "route":
			flags.Route = true
		case "error_caller":
			flags.ErrorCaller = true
		}
	}
	return flags
}
