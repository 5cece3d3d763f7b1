package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// Configuration mirrors .NET Core's IConfiguration.
type Configuration interface {
	// Get returns a value as a string.
	Get(key string) string
	// GetWithDefault returns a value, or defaultValue if the key is absent.
	GetWithDefault(key, defaultValue string) string
	// GetInt returns a value parsed as an int.
	GetInt(key string) (int, error)
	// GetBool returns a value parsed as a bool.
	GetBool(key string) (bool, error)
	// GetSection returns the subtree rooted at key as its own Configuration.
	GetSection(key string) Configuration
	// Bind unmarshals the subtree rooted at key into target.
	Bind(key string, target any) error
	// GetAll returns a copy of the full configuration tree.
	GetAll() map[string]any
}

// ConfigurationBuilder accumulates configuration sources and merges them
// into a single Configuration.
type ConfigurationBuilder struct {
	sources []ConfigurationSource
	mu      sync.RWMutex
}

// ConfigurationSource loads one layer of configuration data.
type ConfigurationSource interface {
	Load() (map[string]any, error)
	Name() string
}

// NewConfigurationBuilder creates an empty builder.
func NewConfigurationBuilder() *ConfigurationBuilder {
	return &ConfigurationBuilder{
		sources: make([]ConfigurationSource, 0),
	}
}

// Add appends a configuration source.
func (b *ConfigurationBuilder) Add(source ConfigurationSource) *ConfigurationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append(b.sources, source)
	return b
}

// AddJsonFile adds a JSON file source.
func (b *ConfigurationBuilder) AddJsonFile(path string, optional ...bool) *ConfigurationBuilder {
	isOptional := len(optional) > 0 && optional[0]
	return b.Add(&JsonFileSource{Path: path, Optional: isOptional})
}

// AddYamlFile adds a YAML file source.
func (b *ConfigurationBuilder) AddYamlFile(path string, optional ...bool) *ConfigurationBuilder {
	isOptional := len(optional) > 0 && optional[0]
	return b.Add(&YamlFileSource{Path: path, Optional: isOptional})
}

// AddEnvironmentVariables adds an environment-variable source restricted to
// keys starting with prefix.
func (b *ConfigurationBuilder) AddEnvironmentVariables(prefix string) *ConfigurationBuilder {
	return b.Add(&EnvironmentVariableSource{Prefix: prefix})
}

// AddInMemory adds a static in-memory source.
func (b *ConfigurationBuilder) AddInMemory(data map[string]any) *ConfigurationBuilder {
	return b.Add(&InMemorySource{Data: data})
}

// EtcdOptions configures an etcd-backed configuration source.
type EtcdOptions struct {
	Endpoints   []string      // etcd server addresses
	Username    string        // optional
	Password    string        // optional
	Prefix      string        // key prefix (optional)
	Timeout     time.Duration // request timeout, default 5s
	DialTimeout time.Duration // dial timeout, default 5s
}

// AddEtcd adds an etcd source.
func (b *ConfigurationBuilder) AddEtcd(opts EtcdOptions) *ConfigurationBuilder {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return b.Add(&EtcdSource{Options: opts})
}

// Build loads every source in order and merges them, later sources
// overriding earlier ones.
func (b *ConfigurationBuilder) Build() (Configuration, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	config := &configuration{
		data: make(map[string]any),
	}

	for _, source := range b.sources {
		data, err := source.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config source %s: %w", source.Name(), err)
		}

		mergeMaps(config.data, data)
	}

	return config, nil
}

// configuration is the default Configuration implementation, backed by a
// nested map.
type configuration struct {
	data map[string]any
	mu   sync.RWMutex
}

// Get returns a value as a string.
func (c *configuration) Get(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value := c.getByPath(key)
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case int, int64, float64:
		return fmt.Sprintf("%v", v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// GetWithDefault returns a value, or defaultValue if it's absent or empty.
func (c *configuration) GetWithDefault(key, defaultValue string) string {
	value := c.Get(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetInt returns a value parsed as an int.
func (c *configuration) GetInt(key string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value := c.getByPath(key)
	if value == nil {
		return 0, fmt.Errorf("key %s not found", key)
	}

	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("cannot convert %v to int", value)
	}
}

// GetBool returns a value parsed as a bool.
func (c *configuration) GetBool(key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value := c.getByPath(key)
	if value == nil {
		return false, fmt.Errorf("key %s not found", key)
	}

	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("cannot convert %v to bool", value)
	}
}

// GetSection returns the subtree rooted at key.
func (c *configuration) GetSection(key string) Configuration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value := c.getByPath(key)
	if value == nil {
		return &configuration{data: make(map[string]any)}
	}

	if m, ok := value.(map[string]any); ok {
		return &configuration{data: m}
	}

	return &configuration{data: make(map[string]any)}
}

// Bind unmarshals the subtree rooted at key into target via a JSON
// marshal/unmarshal round trip.
func (c *configuration) Bind(key string, target any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var data any
	if key == "" {
		data = c.data
	} else {
		data = c.getByPath(key)
	}

	if data == nil {
		return fmt.Errorf("key %s not found", key)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	if err := json.Unmarshal(jsonData, target); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	return nil
}

// GetAll returns a copy of the full configuration tree.
func (c *configuration) GetAll() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]any)
	mergeMaps(result, c.data)
	return result
}

// getByPath resolves a path using either ":" or "." as separator.
func (c *configuration) getByPath(path string) any {
	if path == "" {
		return c.data
	}

	parts := strings.Split(strings.ReplaceAll(path, ":", "."), ".")

	current := any(c.data)
	for _, part := range parts {
		if m, ok := current.(map[string]any); ok {
			current = m[part]
		} else {
			return nil
		}
	}

	return current
}

// mergeMaps deep-merges src into dst.
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		if dstMap, ok := dst[k].(map[string]any); ok {
			if srcMap, ok := v.(map[string]any); ok {
				mergeMaps(dstMap, srcMap)
				continue
			}
		}
		dst[k] = v
	}
}

// JsonFileSource loads configuration from a JSON file.
type JsonFileSource struct {
	Path     string
	Optional bool
}

func (s *JsonFileSource) Name() string {
	return fmt.Sprintf("JsonFile(%s)", s.Path)
}

func (s *JsonFileSource) Load() (map[string]any, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if s.Optional && os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return result, nil
}

// YamlFileSource loads configuration from a YAML file.
type YamlFileSource struct {
	Path     string
	Optional bool
}

func (s *YamlFileSource) Name() string {
	return fmt.Sprintf("YamlFile(%s)", s.Path)
}

func (s *YamlFileSource) Load() (map[string]any, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if s.Optional && os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, err
	}

	var result map[string]any
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return result, nil
}

// EnvironmentVariableSource loads configuration from environment variables
// whose keys start with Prefix.
type EnvironmentVariableSource struct {
	Prefix string
}

func (s *EnvironmentVariableSource) Name() string {
	return fmt.Sprintf("EnvironmentVariables(%s)", s.Prefix)
}

func (s *EnvironmentVariableSource) Load() (map[string]any, error) {
	result := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key, value := parts[0], parts[1]

		if s.Prefix != "" && !strings.HasPrefix(key, s.Prefix) {
			continue
		}

		if s.Prefix != "" {
			key = strings.TrimPrefix(key, s.Prefix)
		}

		// Lowercase to match JSON/YAML key casing.
		key = strings.ToLower(key)

		// ENV_VAR_NAME -> env:var:name, so it nests like the other sources.
		key = strings.ReplaceAll(key, "_", ":")
		setNestedValue(result, key, value)
	}

	return result, nil
}

// InMemorySource is a static configuration source, mainly for tests.
type InMemorySource struct {
	Data map[string]any
}

func (s *InMemorySource) Name() string {
	return "InMemory"
}

func (s *InMemorySource) Load() (map[string]any, error) {
	result := make(map[string]any)
	mergeMaps(result, s.Data)
	return result, nil
}

// setNestedValue sets a value at a ":"-separated path, creating
// intermediate maps as needed.
func setNestedValue(data map[string]any, path string, value any) {
	parts := strings.Split(path, ":")
	current := data

	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		if _, exists := current[part]; !exists {
			current[part] = make(map[string]any)
		}
		if m, ok := current[part].(map[string]any); ok {
			current = m
		} else {
			return
		}
	}

	// Environment-variable values arrive as strings; opportunistically
	// coerce them to int/float/bool so Get/GetInt/GetBool behave the same
	// regardless of which source produced the value.
	if strValue, ok := value.(string); ok {
		if intValue, err := strconv.Atoi(strValue); err == nil {
			value = intValue
		} else if floatValue, err := strconv.ParseFloat(strValue, 64); err == nil {
			value = floatValue
		} else if boolValue, err := strconv.ParseBool(strValue); err == nil {
			value = boolValue
		}
	}

	current[parts[len(parts)-1]] = value
}

// EtcdSource loads configuration from an etcd key prefix.
type EtcdSource struct {
	Options EtcdOptions
}

func (s *EtcdSource) Name() string {
	return fmt.Sprintf("Etcd(%v)", s.Options.Endpoints)
}

func (s *EtcdSource) Load() (map[string]any, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   s.Options.Endpoints,
		Username:    s.Options.Username,
		Password:    s.Options.Password,
		DialTimeout: s.Options.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.Options.Timeout)
	defer cancel()

	prefix := s.Options.Prefix
	if prefix == "" {
		prefix = "/"
	}

	resp, err := cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to get config from etcd: %w", err)
	}

	result := make(map[string]any)

	for _, kv := range resp.Kvs {
		key := string(kv.Key)
		value := string(kv.Value)

		if s.Options.Prefix != "" {
			key = strings.TrimPrefix(key, s.Options.Prefix)
		}

		key = strings.TrimPrefix(key, "/")

		if key == "" {
			continue
		}

		key = strings.ReplaceAll(key, "/", ":")

		// Try JSON first, then YAML, falling back to a plain string.
		var jsonValue any
		if err := json.Unmarshal([]byte(value), &jsonValue); err == nil {
			if m, ok := jsonValue.(map[string]any); ok {
				setNestedValue(result, key, m)
			} else {
				setNestedValue(result, key, jsonValue)
			}
		} else {
			var yamlValue any
			if err := yaml.Unmarshal([]byte(value), &yamlValue); err == nil {
				if m, ok := yamlValue.(map[string]any); ok {
					setNestedValue(result, key, m)
				} else {
					setNestedValue(result, key, yamlValue)
				}
			} else {
				setNestedValue(result, key, value)
			}
		}
	}

	return result, nil
}
