// Package appconfig models a single tenant app's configuration: its
// immutable base record, optional environment overlays, hosts, CORS
// policy, and named encryption keys. Parsing follows the same
// Configuration.Bind idiom the teacher's config package uses for process
// bootstrap settings (gocrud-app/config/configuration.go), applied instead
// to the per-app config.json tree (§6 of the spec).
package appconfig

import "time"

// HostUsage tags what a Host entry is for. "request" marks a host used for
// routing live traffic; other values are accepted but not used for routing
// (e.g. a vanity/display host).
type HostUsage string

const RequestUsage HostUsage = "request"

// Host is one entry in an App's host list.
type Host struct {
	Host  string    `json:"host"`
	Usage HostUsage `json:"usage"`
}

// CorsOptions configures the per-app CORS middleware (§6).
type CorsOptions struct {
	Enabled         bool     `json:"enabled"`
	AllowedOrigin   string   `json:"allowed_origin"` // origin_based | all | none | any | custom
	AllowedOriginAny []string `json:"allowed_origin_any"`
	AllowedMethods  []string `json:"allowed_methods"`
	AllowedHeaders  []string `json:"allowed_headers"`
	AllowCredentials bool    `json:"allow_credentials"`
	CacheExpiration time.Duration `json:"cache_expiration"`
	ExposedHeaders  []string `json:"exposed_headers"`
}

// Encryption is one named encryption key configured for an app.
type Encryption struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
	Name   string `json:"name"`
}

// AppConfig is a single app's immutable configuration record. The
// `environment` field is empty for the main config; non-empty variants
// share every field above except ModuleConfig, which is overridden
// per-environment (see AppConfigSet).
type AppConfig struct {
	AppID       string
	AppName     string
	AppGroup    string
	Hosts       []Host
	TimeOffset  time.Duration
	CorsOptions *CorsOptions
	Encryptions map[string]Encryption // keyed by Encryption.Name (or ID if Name is empty)

	Environment string // "" for the main config

	// ModuleConfig is the recursive, typed-object store of module-specific
	// parsed config (§3, §9 "Dynamic typing / typed stores").
	ModuleConfig *ModuleStore
}

// RequestHosts returns the hosts tagged for routing live traffic.
func (c *AppConfig) RequestHosts() []string {
	var out []string
	for _, h := range c.Hosts {
		if h.Usage == RequestUsage {
			out = append(out, h.Host)
		}
	}
	return out
}

// AppConfigSet bundles an app's main AppConfig with its named environment
// variants and per-environment module warnings (§3).
type AppConfigSet struct {
	Main     *AppConfig
	Variants map[string]*AppConfig // env name -> AppConfig

	// Warnings maps env name ("" for main) -> module name -> warning message.
	Warnings map[string]map[string]string
}

// Resolve returns the AppConfig for an environment name: "" resolves to
// Main, a known variant name to that variant, and an unknown name to nil.
func (s *AppConfigSet) Resolve(env string) *AppConfig {
	if env == "" {
		return s.Main
	}
	if v, ok := s.Variants[env]; ok {
		return v
	}
	return nil
}

// HasWarnings reports whether any environment produced module warnings.
func (s *AppConfigSet) HasWarnings() bool {
	for _, m := range s.Warnings {
		if len(m) > 0 {
			return true
		}
	}
	return false
}
