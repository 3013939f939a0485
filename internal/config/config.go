// Package config loads docsearch configuration. Values are layered, lowest
// precedence first: built-in defaults, the user file
// ($XDG_CONFIG_HOME/docsearch/config.yaml), the project file
// (.docsearch.yaml, .docsearch.yml or .docsearch.toml) and DOCSEARCH_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/pkg/document"
)

// ProjectFiles are the project config file names, in lookup order.
var ProjectFiles = []string{".docsearch.yaml", ".docsearch.yml", ".docsearch.toml"}

// Config is the complete docsearch configuration.
type Config struct {
	Version int                    `yaml:"version" toml:"version" json:"version"`
	Index   IndexConfig            `yaml:"index" toml:"index" json:"index"`
	Fields  map[string]FieldConfig `yaml:"fields" toml:"fields" json:"fields"`
	Search  SearchConfig           `yaml:"search" toml:"search" json:"search"`
	Server  ServerConfig           `yaml:"server" toml:"server" json:"server"`
	Sources SourcesConfig          `yaml:"sources" toml:"sources" json:"sources"`
}

// IndexConfig locates the index and chooses its analyzer.
type IndexConfig struct {
	// Path is the index directory. Relative paths are resolved against the
	// project directory passed to Load.
	Path string `yaml:"path" toml:"path" json:"path"`
	// Analyzer analyzes analyzed fields: simple, standard, en or keyword.
	Analyzer string `yaml:"analyzer" toml:"analyzer" json:"analyzer"`
	// Memory keeps the index in memory only (useful with serve + watch).
	Memory bool `yaml:"memory" toml:"memory" json:"memory"`
	// WatchDebounce delays re-indexing after a file change.
	WatchDebounce string `yaml:"watch_debounce" toml:"watch_debounce" json:"watch_debounce"`
}

// FieldConfig describes how one document field is indexed. Unset values
// keep the field description defaults.
type FieldConfig struct {
	Analyzed      *bool   `yaml:"analyzed,omitempty" toml:"analyzed,omitempty" json:"analyzed,omitempty"`
	Boost         float64 `yaml:"boost,omitempty" toml:"boost,omitempty" json:"boost,omitempty"`
	Identifier    bool    `yaml:"identifier,omitempty" toml:"identifier,omitempty" json:"identifier,omitempty"`
	InFullContent *bool   `yaml:"in_full_content,omitempty" toml:"in_full_content,omitempty" json:"in_full_content,omitempty"`
}

// SearchConfig configures query execution.
type SearchConfig struct {
	MaxResults     int      `yaml:"max_results" toml:"max_results" json:"max_results"`
	DefaultFields  []string `yaml:"default_fields" toml:"default_fields" json:"default_fields"`
	QueryCacheSize int      `yaml:"query_cache_size" toml:"query_cache_size" json:"query_cache_size"`
}

// ServerConfig configures `docsearch serve`.
type ServerConfig struct {
	Addr      string `yaml:"addr" toml:"addr" json:"addr"`
	Transport string `yaml:"transport" toml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" toml:"log_level" json:"log_level"`
}

// SourcesConfig holds the settings of every document source.
type SourcesConfig struct {
	JSONL JSONLConfig `yaml:"jsonl" toml:"jsonl" json:"jsonl"`
	SQL   SQLConfig   `yaml:"sql" toml:"sql" json:"sql"`
	Redis RedisConfig `yaml:"redis" toml:"redis" json:"redis"`
	Kafka KafkaConfig `yaml:"kafka" toml:"kafka" json:"kafka"`
}

// JSONLConfig reads one JSON object per line.
type JSONLConfig struct {
	Path string `yaml:"path" toml:"path" json:"path"`
}

// SQLConfig reads the rows of a query. Driver is "sqlite" or "postgres".
type SQLConfig struct {
	Driver string `yaml:"driver" toml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" toml:"dsn" json:"dsn"`
	Query  string `yaml:"query" toml:"query" json:"query"`
}

// RedisConfig reads the hashes whose keys match Pattern.
type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr" json:"addr"`
	Password string `yaml:"password" toml:"password" json:"password"`
	DB       int    `yaml:"db" toml:"db" json:"db"`
	Pattern  string `yaml:"pattern" toml:"pattern" json:"pattern"`
	// KeyField, when set, stores the Redis key in this document field.
	KeyField string `yaml:"key_field" toml:"key_field" json:"key_field"`
}

// KafkaConfig reads JSON documents from a topic.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" toml:"brokers" json:"brokers"`
	Topic   string   `yaml:"topic" toml:"topic" json:"topic"`
	GroupID string   `yaml:"group_id" toml:"group_id" json:"group_id"`
	// MaxMessages ends a batch after this many messages. Zero reads until
	// IdleTimeout passes without a message.
	MaxMessages int    `yaml:"max_messages" toml:"max_messages" json:"max_messages"`
	IdleTimeout string `yaml:"idle_timeout" toml:"idle_timeout" json:"idle_timeout"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			Path:          ".docsearch",
			Analyzer:      store.DefaultConfig().Analyzer,
			WatchDebounce: "500ms",
		},
		Fields: map[string]FieldConfig{},
		Search: SearchConfig{
			MaxResults:     20,
			QueryCacheSize: 256,
		},
		Server: ServerConfig{
			Addr:      ":8080",
			Transport: "http",
			LogLevel:  "info",
		},
		Sources: SourcesConfig{
			SQL:   SQLConfig{Driver: "sqlite"},
			Redis: RedisConfig{Addr: "localhost:6379", Pattern: "*"},
			Kafka: KafkaConfig{GroupID: "docsearch", IdleTimeout: "5s"},
		},
	}
}

// GetUserConfigPath returns $XDG_CONFIG_HOME/docsearch/config.yaml, or
// ~/.config/docsearch/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "docsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "docsearch", "config.yaml")
}

// Load builds the configuration for the project in dir and validates it.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if path := FindProjectFile(dir); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if cfg.Index.Path != "" && !filepath.IsAbs(cfg.Index.Path) {
		cfg.Index.Path = filepath.Join(dir, cfg.Index.Path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindProjectFile returns the first project config file in dir, or "".
func FindProjectFile(dir string) string {
	for _, name := range ProjectFiles {
		if path := filepath.Join(dir, name); fileExists(path) {
			return path
		}
	}
	return ""
}

// loadFile merges the YAML or TOML file at path into c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &parsed)
	} else {
		err = yaml.Unmarshal(data, &parsed)
	}
	if err != nil {
		return errors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith copies the non-zero values of other into c. Field entries are
// merged per field name.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	setString(&c.Index.Path, other.Index.Path)
	setString(&c.Index.Analyzer, other.Index.Analyzer)
	setString(&c.Index.WatchDebounce, other.Index.WatchDebounce)
	if other.Index.Memory {
		c.Index.Memory = true
	}

	for name, f := range other.Fields {
		c.Fields[name] = f
	}

	setInt(&c.Search.MaxResults, other.Search.MaxResults)
	setInt(&c.Search.QueryCacheSize, other.Search.QueryCacheSize)
	if len(other.Search.DefaultFields) > 0 {
		c.Search.DefaultFields = slices.Clone(other.Search.DefaultFields)
	}

	setString(&c.Server.Addr, other.Server.Addr)
	setString(&c.Server.Transport, other.Server.Transport)
	setString(&c.Server.LogLevel, other.Server.LogLevel)

	setString(&c.Sources.JSONL.Path, other.Sources.JSONL.Path)

	setString(&c.Sources.SQL.Driver, other.Sources.SQL.Driver)
	setString(&c.Sources.SQL.DSN, other.Sources.SQL.DSN)
	setString(&c.Sources.SQL.Query, other.Sources.SQL.Query)

	setString(&c.Sources.Redis.Addr, other.Sources.Redis.Addr)
	setString(&c.Sources.Redis.Password, other.Sources.Redis.Password)
	setInt(&c.Sources.Redis.DB, other.Sources.Redis.DB)
	setString(&c.Sources.Redis.Pattern, other.Sources.Redis.Pattern)
	setString(&c.Sources.Redis.KeyField, other.Sources.Redis.KeyField)

	if len(other.Sources.Kafka.Brokers) > 0 {
		c.Sources.Kafka.Brokers = slices.Clone(other.Sources.Kafka.Brokers)
	}
	setString(&c.Sources.Kafka.Topic, other.Sources.Kafka.Topic)
	setString(&c.Sources.Kafka.GroupID, other.Sources.Kafka.GroupID)
	setInt(&c.Sources.Kafka.MaxMessages, other.Sources.Kafka.MaxMessages)
	setString(&c.Sources.Kafka.IdleTimeout, other.Sources.Kafka.IdleTimeout)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// applyEnvOverrides applies DOCSEARCH_* environment variables.
func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"DOCSEARCH_INDEX_PATH":     &c.Index.Path,
		"DOCSEARCH_ANALYZER":       &c.Index.Analyzer,
		"DOCSEARCH_ADDR":           &c.Server.Addr,
		"DOCSEARCH_TRANSPORT":      &c.Server.Transport,
		"DOCSEARCH_LOG_LEVEL":      &c.Server.LogLevel,
		"DOCSEARCH_SQL_DRIVER":     &c.Sources.SQL.Driver,
		"DOCSEARCH_SQL_DSN":        &c.Sources.SQL.DSN,
		"DOCSEARCH_REDIS_ADDR":     &c.Sources.Redis.Addr,
		"DOCSEARCH_REDIS_PASSWORD": &c.Sources.Redis.Password,
		"DOCSEARCH_KAFKA_TOPIC":    &c.Sources.Kafka.Topic,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("DOCSEARCH_KAFKA_BROKERS"); v != "" {
		c.Sources.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DOCSEARCH_MEMORY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.ConfigError("DOCSEARCH_MEMORY must be a boolean", err)
		}
		c.Index.Memory = b
	}
	if v := os.Getenv("DOCSEARCH_MAX_RESULTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.ConfigError("DOCSEARCH_MAX_RESULTS must be an integer", err)
		}
		c.Search.MaxResults = n
	}
	return nil
}

// Validate reports the first invalid setting as a configuration error.
func (c *Config) Validate() error {
	if err := c.StoreConfig().Validate(); err != nil {
		return err
	}
	if !c.Index.Memory && c.Index.Path == "" {
		return errors.ConfigError("index.path is required unless index.memory is set", nil)
	}
	if c.Index.WatchDebounce != "" {
		if _, err := time.ParseDuration(c.Index.WatchDebounce); err != nil {
			return errors.ConfigError(fmt.Sprintf("index.watch_debounce is not a duration: %q", c.Index.WatchDebounce), err)
		}
	}

	for name, f := range c.Fields {
		if name == "" {
			return errors.ConfigError("field names must not be empty", nil)
		}
		if name == document.FullContentField {
			return errors.ConfigError(fmt.Sprintf("field name %q is reserved", name), nil)
		}
		if f.Boost < 0 {
			return errors.ConfigError(fmt.Sprintf("fields.%s.boost must be non-negative, got %g", name, f.Boost), nil)
		}
	}

	if c.Search.MaxResults < 0 {
		return errors.ConfigError(fmt.Sprintf("search.max_results must be non-negative, got %d", c.Search.MaxResults), nil)
	}
	if c.Search.QueryCacheSize < 0 {
		return errors.ConfigError(fmt.Sprintf("search.query_cache_size must be non-negative, got %d", c.Search.QueryCacheSize), nil)
	}

	switch strings.ToLower(c.Server.Transport) {
	case "http", "stdio":
	default:
		return errors.ConfigError(fmt.Sprintf("server.transport must be 'http' or 'stdio', got %s", c.Server.Transport), nil)
	}
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.ConfigError(fmt.Sprintf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel), nil)
	}

	switch c.Sources.SQL.Driver {
	case "sqlite", "postgres":
	default:
		return errors.ConfigError(fmt.Sprintf("sources.sql.driver must be 'sqlite' or 'postgres', got %s", c.Sources.SQL.Driver), nil)
	}
	if c.Sources.Kafka.IdleTimeout != "" {
		if _, err := time.ParseDuration(c.Sources.Kafka.IdleTimeout); err != nil {
			return errors.ConfigError(fmt.Sprintf("sources.kafka.idle_timeout is not a duration: %q", c.Sources.Kafka.IdleTimeout), err)
		}
	}
	return nil
}

// StoreConfig returns the engine settings.
func (c *Config) StoreConfig() store.Config {
	return store.Config{Analyzer: c.Index.Analyzer}
}

// WatchDebounce returns the parsed watch debounce, 500ms when unset.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Index.WatchDebounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// FieldDescriptions converts the fields section to field descriptions.
func (c *Config) FieldDescriptions() document.Descriptions {
	descs := make(document.Descriptions, len(c.Fields))
	for name, f := range c.Fields {
		b := document.NewBuilder()
		if f.Boost > 0 {
			b.SetBoostFactor(f.Boost)
		}
		if f.Identifier {
			b.SetIdentifier(true)
		}
		if f.Analyzed != nil {
			b.SetAnalyzed(*f.Analyzed)
		}
		if f.InFullContent != nil {
			b.SetInFullContent(*f.InFullContent)
		}
		descs[name] = b.Build()
	}
	return descs
}

// WriteYAML writes c to path as YAML.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
