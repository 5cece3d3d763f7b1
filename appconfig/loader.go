package appconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// fileHost mirrors the two accepted shapes for a hosts entry: a bare string
// or an {host, usage} object.
type fileHost struct {
	Host  string
	Usage HostUsage
}

func (h *fileHost) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		h.Host = s
		h.Usage = RequestUsage
		return nil
	}

	var obj struct {
		Host  string    `json:"host"`
		Usage HostUsage `json:"usage"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	h.Host = obj.Host
	h.Usage = obj.Usage
	if h.Usage == "" {
		h.Usage = RequestUsage
	}
	return nil
}

// fileConfig is the on-disk shape of config.json (§6).
type fileConfig struct {
	AppID       string                     `json:"app_id"`
	AppName     string                     `json:"app_name"`
	AppGroup    string                     `json:"app_group"`
	Hosts       []fileHost                 `json:"hosts"`
	TimeOffset  int64                      `json:"time_offset"` // seconds
	CorsOptions *fileCorsOptions           `json:"cors_options"`
	Encryptions []Encryption               `json:"encryptions"`
	Environments json.RawMessage           `json:"environments"`

	// Every other top-level key is treated as a module config section.
	Modules map[string]json.RawMessage `json:"-"`
}

type fileCorsOptions struct {
	Enabled          bool     `json:"enabled"`
	AllowedOrigin    string   `json:"allowed_origin"`
	AllowedOriginAny []string `json:"allowed_origin_any"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	CacheExpiration  string   `json:"cache_expiration"`
	ExposedHeaders   []string `json:"exposed_headers"`
}

var reservedKeys = map[string]bool{
	"app_id": true, "app_name": true, "app_group": true, "hosts": true,
	"time_offset": true, "cors_options": true, "encryptions": true,
	"environments": true,
}

// LoadDir parses <dir>/config.json into an AppConfigSet: a main AppConfig
// plus one AppConfig per entry in "environments", each sharing the main's
// immutable base and overriding only the module store (§3).
func LoadDir(dir string) (*AppConfigSet, error) {
	path := filepath.Join(dir, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("appconfig: failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds an AppConfigSet from the raw contents of a config.json file.
func Parse(data []byte) (*AppConfigSet, error) {
	var whole map[string]json.RawMessage
	if err := json.Unmarshal(data, &whole); err != nil {
		return nil, fmt.Errorf("appconfig: invalid json: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("appconfig: invalid json: %w", err)
	}
	if fc.AppID == "" {
		return nil, fmt.Errorf("appconfig: app_id is required")
	}

	fc.Modules = make(map[string]json.RawMessage)
	for k, v := range whole {
		if !reservedKeys[k] {
			fc.Modules[k] = v
		}
	}

	main := buildAppConfig(&fc, "", fc.Modules)

	set := &AppConfigSet{
		Main:     main,
		Variants: make(map[string]*AppConfig),
		Warnings: make(map[string]map[string]string),
	}

	environments, err := parseEnvironments(fc.Environments)
	if err != nil {
		return nil, fmt.Errorf("appconfig: invalid environments: %w", err)
	}

	for envName, raw := range environments {
		var envModules map[string]json.RawMessage
		if err := json.Unmarshal(raw, &envModules); err != nil {
			// A malformed environment overlay does not abort the whole app;
			// it is recorded as a warning and the environment is skipped,
			// matching the isolate-per-app-failure policy at a finer grain.
			if set.Warnings[envName] == nil {
				set.Warnings[envName] = make(map[string]string)
			}
			set.Warnings[envName]["*"] = fmt.Sprintf("invalid environment overlay: %v", err)
			continue
		}

		// An environment overlay only overrides module sections; everything
		// else (hosts, CORS, encryption keys, ...) is shared with Main, per
		// §3's "non-null variants share the immutable base and override
		// only the typed-object store."
		merged := make(map[string]json.RawMessage, len(fc.Modules)+len(envModules))
		for k, v := range fc.Modules {
			merged[k] = v
		}
		for k, v := range envModules {
			merged[k] = v
		}

		variant := buildAppConfig(&fc, envName, merged)
		set.Variants[envName] = variant
	}

	return set, nil
}

// parseEnvironments accepts either shape permitted by §6: an object keyed
// by environment name, or an array of objects each carrying a "name" field
// alongside its module overlay.
func parseEnvironments(raw json.RawMessage) (map[string]json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asObject); err == nil {
		return asObject, nil
	}

	var asArray []json.RawMessage
	if err := json.Unmarshal(raw, &asArray); err != nil {
		return nil, fmt.Errorf("environments must be an object or array: %w", err)
	}

	result := make(map[string]json.RawMessage, len(asArray))
	for _, item := range asArray {
		var named struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &named); err != nil || named.Name == "" {
			return nil, fmt.Errorf("array-form environment entry missing \"name\"")
		}
		result[named.Name] = item
	}
	return result, nil
}

func buildAppConfig(fc *fileConfig, env string, modules map[string]json.RawMessage) *AppConfig {
	hosts := make([]Host, 0, len(fc.Hosts))
	for _, h := range fc.Hosts {
		hosts = append(hosts, Host{Host: h.Host, Usage: h.Usage})
	}

	encryptions := make(map[string]Encryption, len(fc.Encryptions))
	for _, e := range fc.Encryptions {
		key := e.Name
		if key == "" {
			key = e.ID
		}
		encryptions[key] = e
	}

	var cors *CorsOptions
	if fc.CorsOptions != nil {
		cacheExp, _ := time.ParseDuration(fc.CorsOptions.CacheExpiration)
		cors = &CorsOptions{
			Enabled:          fc.CorsOptions.Enabled,
			AllowedOrigin:    fc.CorsOptions.AllowedOrigin,
			AllowedOriginAny: fc.CorsOptions.AllowedOriginAny,
			AllowedMethods:   fc.CorsOptions.AllowedMethods,
			AllowedHeaders:   fc.CorsOptions.AllowedHeaders,
			AllowCredentials: fc.CorsOptions.AllowCredentials,
			CacheExpiration:  cacheExp,
			ExposedHeaders:   fc.CorsOptions.ExposedHeaders,
		}
	}

	return &AppConfig{
		AppID:        fc.AppID,
		AppName:      fc.AppName,
		AppGroup:     fc.AppGroup,
		Hosts:        hosts,
		TimeOffset:   time.Duration(fc.TimeOffset) * time.Second,
		CorsOptions:  cors,
		Encryptions:  encryptions,
		Environment:  env,
		ModuleConfig: NewModuleStore(modules),
	}
}
