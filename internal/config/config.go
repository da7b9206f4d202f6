package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7433"
	DefaultDBFileName = ".kudos.db"
	DefaultLogLevel   = "debug"

	DefaultLikeMaxPageSize = 500
	DefaultLikeGCBatchSize = 500
	DefaultOrphanGrace     = 5 * time.Minute

	configFileName           = ".kudos.toml"
	configDirEnvKey          = "KUDOS_CONFIG_DIR"
	trustProjectConfigEnvKey = "KUDOS_TRUST_PROJECT_CONFIG"
	apiURLEnvKey             = "KUDOS_API_URL"
	dbPathEnvKey             = "KUDOS_DB"
	logLevelEnvKey           = "KUDOS_LOG_LEVEL"
	supportedZonesEnvKey     = "KUDOS_SUPPORTED_ZONES"
)

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ZoneConfig names the zones the server serves.
type ZoneConfig struct {
	Supported []string `toml:"supported"`
	Default   []string `toml:"default"`
}

// LikeConfig tunes the Like service.
type LikeConfig struct {
	MaxPageSize int      `toml:"max_page_size"`
	GCBatchSize int      `toml:"gc_batch_size"`
	OrphanGrace Duration `toml:"orphan_grace"`
}

// StoreConfig tunes the repository store.
type StoreConfig struct {
	DeclinedTypes []string `toml:"declined_types"`
}

// Config defines runtime configuration for kudos.
type Config struct {
	APIURL                   string      `toml:"api_url"`
	DBPath                   string      `toml:"db_path"`
	LogLevel                 string      `toml:"log_level"`
	Zones                    ZoneConfig  `toml:"zones"`
	Likes                    LikeConfig  `toml:"likes"`
	Store                    StoreConfig `toml:"store"`
	TrustedProjectConfigPath string      `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		DBPath:   "",
		LogLevel: DefaultLogLevel,
		Likes: LikeConfig{
			MaxPageSize: DefaultLikeMaxPageSize,
			GCBatchSize: DefaultLikeGCBatchSize,
			OrphanGrace: Duration{DefaultOrphanGrace},
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"zones.supported",
	"zones.default",
	"likes.max_page_size",
	"likes.gc_batch_size",
	"likes.orphan_grace",
	"store.declined_types",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "zones.supported":
		return strings.Join(c.Zones.Supported, ","), nil
	case "zones.default":
		return strings.Join(c.Zones.Default, ","), nil
	case "likes.max_page_size":
		return strconv.Itoa(c.Likes.MaxPageSize), nil
	case "likes.gc_batch_size":
		return strconv.Itoa(c.Likes.GCBatchSize), nil
	case "likes.orphan_grace":
		return c.Likes.OrphanGrace.String(), nil
	case "store.declined_types":
		return strings.Join(c.Store.DeclinedTypes, ","), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if level := strings.TrimSpace(os.Getenv(logLevelEnvKey)); level != "" {
		cfg.LogLevel = level
	}
	if raw := strings.TrimSpace(os.Getenv(supportedZonesEnvKey)); raw != "" {
		cfg.Zones.Supported = splitCSV(raw)
	}

	cfg.normalize()

	return &cfg, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "likes.max_page_size", "likes.gc_batch_size":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "likes.orphan_grace":
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration such as 5m", key)
		}
		return parsed.String(), nil
	case "zones.supported", "zones.default", "store.declined_types":
		return splitCSV(value), nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Likes.MaxPageSize <= 0 {
		c.Likes.MaxPageSize = DefaultLikeMaxPageSize
	}
	if c.Likes.GCBatchSize <= 0 {
		c.Likes.GCBatchSize = DefaultLikeGCBatchSize
	}
	if c.Likes.OrphanGrace.Duration <= 0 {
		c.Likes.OrphanGrace = Duration{DefaultOrphanGrace}
	}
	c.Zones.Supported = normalizeZoneList(c.Zones.Supported)
	c.Zones.Default = normalizeZoneList(c.Zones.Default)
}

func normalizeZoneList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, value := range values {
		zone := strings.ToLower(strings.TrimSpace(value))
		if zone == "" {
			continue
		}
		if _, ok := seen[zone]; ok {
			continue
		}
		seen[zone] = struct{}{}
		out = append(out, zone)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
