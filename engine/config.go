// Package engine is the composition root: it loads EngineConfig, wires
// Resource Groups, the App Registry's pull loop, the Service Register, the
// host Detector, and the HTTP responder onto a core.Runtime, the same way
// gocrud-app/run.go composes a fixed set of core.Options into one process.
package engine

import (
	"strings"
	"time"

	"github.com/gocrud/tenantengine/config"
)

// ServerConfig is the HTTP binding section of EngineConfig.
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	ReuseAddress    bool          `json:"reuse_address"`
	BodyLimitBytes  int64         `json:"body_limit_bytes"`
}

// AppSourceConfig describes where the App Registry pulls tenant configs
// from: a local directory, and/or a remote (object storage or etcd) path
// with credentials.
type AppSourceConfig struct {
	LocalPath    string        `json:"local_path"`
	PullInterval time.Duration `json:"pull_interval"`

	RemoteKind string `json:"remote_kind"` // "" | "oss" | "etcd"
	RemotePath string `json:"remote_path"`

	EtcdEndpoints []string `json:"etcd_endpoints"`
	EtcdUsername  string   `json:"etcd_username"`
	EtcdPassword  string   `json:"etcd_password"`
}

// LoggerSinkConfig configures one named logging role ("default", "startup").
type LoggerSinkConfig struct {
	Console bool   `json:"console"`
	FilePath string `json:"file_path"`
	TCPAddr  string `json:"tcp_addr"`
}

// ResourceGroupConfig describes one named Resource Group's SQL backing.
// Only the sqlite dialector is wired here (the other Resource Group
// dialectors are selected programmatically by whatever composes the
// engine in code, since gorm.Dialector isn't a serializable value).
type ResourceGroupConfig struct {
	ID       string `json:"id"`
	SQLitePath string `json:"sqlite_path"`
}

// EngineConfig is the process-wide, immutable-after-construction bootstrap
// record (§3 "Engine Config").
type EngineConfig struct {
	WorkingDirectory string                     `json:"working_directory"`
	ServiceName      string                     `json:"service_name"`
	DebugFeatures    map[string]any             `json:"debug_features"`
	Server           ServerConfig               `json:"server"`
	Timezone         string                     `json:"timezone"`
	AppSource        AppSourceConfig            `json:"app_source"`
	ResourceGroups   []ResourceGroupConfig      `json:"resource_groups"`
	LoggerSinks      map[string]LoggerSinkConfig `json:"logger_sinks"`
	MetricEndpoint   string                     `json:"metric_endpoint"`
}

func (c *EngineConfig) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}
	if c.Server.BodyLimitBytes <= 0 {
		c.Server.BodyLimitBytes = 100 << 20 // 100 MiB
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.AppSource.PullInterval == 0 {
		c.AppSource.PullInterval = 30 * time.Second
	}
	if c.DebugFeatures == nil {
		c.DebugFeatures = map[string]any{}
	}
}

// DebugFeatureEnabled reports whether a named debug feature key is present
// in the config's debug-feature map at all (§6 "honored only when present").
func (c *EngineConfig) DebugFeatureEnabled(key string) bool {
	_, ok := c.DebugFeatures[key]
	return ok
}

// DebugIncludeAppIDs returns the appConfig_includesAppIDs debug feature's
// value, if configured.
func (c *EngineConfig) DebugIncludeAppIDs() []string {
	raw, ok := c.DebugFeatures["appConfig_includesAppIDs"]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// LoadEngineConfig reads the engine config file (JSON when path ends in
// ".json", YAML otherwise) plus RUNTIME_VERBOSE-independent environment
// overrides via config.ConfigurationBuilder (§2.3).
func LoadEngineConfig(path string) (*EngineConfig, error) {
	builder := config.NewConfigurationBuilder()
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		builder.AddJsonFile(path, true)
	} else {
		builder.AddYamlFile(path, true)
	}
	builder.AddEnvironmentVariables("ENGINE")

	cfg, err := builder.Build()
	if err != nil {
		return nil, err
	}

	var engineCfg EngineConfig
	if err := cfg.Bind("", &engineCfg); err != nil {
		return nil, err
	}
	engineCfg.applyDefaults()
	return &engineCfg, nil
}
