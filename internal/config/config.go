package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Player    PlayerConfig     `yaml:"player,omitempty"`
	Playback  PlaybackConfig   `yaml:"playback,omitempty"`
	Providers []ProviderConfig `yaml:"providers,omitempty"`
	Catalog   CatalogConfig    `yaml:"catalog,omitempty"`
	Storage   StorageConfig    `yaml:"storage,omitempty"`
	Metrics   MetricsConfig    `yaml:"metrics,omitempty"`
	Logging   LoggingConfig    `yaml:"logging,omitempty"`
}

// PlayerConfig contains media player settings
type PlayerConfig struct {
	Type string `yaml:"type,omitempty"` // "mpv"
	Path string `yaml:"path,omitempty"`
	Args string `yaml:"args,omitempty"`
}

// PlaybackConfig contains the playback engine settings
type PlaybackConfig struct {
	// Use the built-in HLS client even when the player can play manifests natively
	ForceAdaptive bool `yaml:"force_adaptive,omitempty"`
	// Quality labels, in order of preference, used to pick one of the sources of an episode
	DefaultQuality string `yaml:"default_quality,omitempty"`
	BackupQuality  string `yaml:"backup_quality,omitempty"`
	AutoQuality    string `yaml:"auto_quality,omitempty"`
	// Ceilings for automatic recovery before a session is declared fatal
	NetworkRetries int `yaml:"network_retries,omitempty"`
	MediaRetries   int `yaml:"media_retries,omitempty"`
	// Loader limits for manifests and fragments
	ManifestTimeout    time.Duration `yaml:"manifest_timeout,omitempty"`
	ManifestMaxRetries int           `yaml:"manifest_max_retries,omitempty"`
	FragmentTimeout    time.Duration `yaml:"fragment_timeout,omitempty"`
	FragmentMaxRetries int           `yaml:"fragment_max_retries,omitempty"`
	RetryDelay         time.Duration `yaml:"retry_delay,omitempty"`
	// Highest variant bandwidth, in bits per second, the HLS client will pick.  0 means no limit.
	MaxBitrate int `yaml:"max_bitrate,omitempty"`
}

// ProviderConfig describes one streaming source provider.  The order of the providers list is the fallback order.
type ProviderConfig struct {
	Tag     string `yaml:"tag"`
	BaseURL string `yaml:"base_url"`
}

// CatalogConfig contains the catalog API settings
type CatalogConfig struct {
	Source          string        `yaml:"source,omitempty"` // "jikan", "anilist"
	BaseURL         string        `yaml:"base_url,omitempty"`
	PageSize        int           `yaml:"page_size,omitempty"`
	RequestInterval time.Duration `yaml:"request_interval,omitempty"`
}

// StorageConfig contains settings for the local favorites/history store
type StorageConfig struct {
	Path string `yaml:"path,omitempty"`
	// Codec used for the file contents.  One of: obfuscated, json
	Codec string `yaml:"codec,omitempty"`
	// Key for the obfuscated codec.  This is not encryption.
	Key string `yaml:"key,omitempty"`
}

// MetricsConfig contains settings for the optional metrics endpoint
type MetricsConfig struct {
	// Address to serve /metrics on, for example 127.0.0.1:9090.  Empty disables the endpoint.
	Address string `yaml:"address,omitempty"`
}

// LoggingConfig contains log related settings
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`
	FilePath   string `yaml:"file_path,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
}

// Load builds a configuration struct from multiple sources using these steps:
// 1. Create a base config with default values
// 2. If no config file exists on disk, save the default config to that location
// 3. Apply 'dynamic' properties.  Dynamic properties are those that are determined at runtime, for example log file location which is different per OS.
// 4. Load & merge the config file, overwriting any defaults with user-specified values
// 5. Load a .env file if one is present, then apply environment variable overrides
func Load() (*Config, error) {
	// 1. Start with base defaults
	cfg := createBaseDefaultConfig()

	configPath, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("unable to determine config file path: %w", err)
	}

	// 2. If no config file exists on disk, then write a default one
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		// If there is an error saving the default config, then still let the application startup using the defaults.
		_ = save(cfg, configPath)
	}

	// 3. Apply dynamic defaults if necessary
	applyDynamicDefaults(cfg)

	// 4. Load the config from disk and merge it into the base defaults
	fileConfig, err := loadFromDisk(configPath)
	if err != nil {
		return nil, err
	}
	// Slices are replaced rather than appended, so a configured provider list fully replaces the default one
	if err = mergo.Merge(cfg, fileConfig, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("error merging config loaded from disk: %w", err)
	}

	// 5. Apply the environment variable overrides which take precedence
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	applyEnvVarOverrides(cfg)

	return cfg, nil
}

// loadDotEnv loads variables from a .env file in the working directory, or the file named by ANISTREAM_ENV_FILE.
// Variables already present in the environment are not overwritten.
func loadDotEnv() error {
	path := os.Getenv("ANISTREAM_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("unable to load env file %s: %w", path, err)
	}
	return nil
}

// applyDynamicDefaults sets runtime-determined default values for any properties that haven't been explicitly configured.
// Unlike static defaults, these values might change between runs based on the environment or system configuration.
func applyDynamicDefaults(cfg *Config) {
	cfg.Logging.FilePath = defaultLogFilePath()
	cfg.Storage.Path = defaultStoragePath()
}

// loadFromDisk loads the YAML config from disk and returns the unmarshalled Config
func loadFromDisk(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	return cfg, nil
}

func save(cfg *Config, configPath string) error {
	// Create config dir if not exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// UpdateConfig reads the existing config, applies the update function, and saves it back to disk
func UpdateConfig(updateFn func(*Config)) error {
	configPath, err := getConfigPath()
	if err != nil {
		return fmt.Errorf("unable to determine config file path: %w", err)
	}

	cfg, err := loadFromDisk(configPath)
	if err != nil {
		return fmt.Errorf("error loading config file from disk: %w", err)
	}

	// Apply the updates
	updateFn(cfg)

	return save(cfg, configPath)
}

// getConfigPath returns the path to the config file.  Uses the environment variable override if present, else tries
// to use OS config location defaults.
func getConfigPath() (string, error) {
	configPath := os.Getenv("ANISTREAM_CONFIG_PATH")
	if configPath != "" {
		return configPath, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "anistream", "config.yaml"), nil
}

// createBaseDefaultConfig creates a config with all default values
func createBaseDefaultConfig() *Config {
	return &Config{
		Player: PlayerConfig{
			Type: "mpv",
			Path: "mpv",
		},
		Playback: PlaybackConfig{
			DefaultQuality:     "default",
			BackupQuality:      "backup",
			AutoQuality:        "auto",
			NetworkRetries:     3,
			MediaRetries:       2,
			ManifestTimeout:    10 * time.Second,
			ManifestMaxRetries: 2,
			FragmentTimeout:    20 * time.Second,
			FragmentMaxRetries: 3,
			RetryDelay:         time.Second,
		},
		Providers: []ProviderConfig{
			{Tag: "primary", BaseURL: "https://api.consumet.org/anime/gogoanime"},
			{Tag: "secondary", BaseURL: "https://api.consumet.org/anime/zoro"},
			{Tag: "tertiary", BaseURL: "https://api.consumet.org/anime/animepahe"},
		},
		Catalog: CatalogConfig{
			Source:          "jikan",
			PageSize:        24,
			RequestInterval: 350 * time.Millisecond,
		},
		Storage: StorageConfig{
			Codec: "obfuscated",
			Key:   "ani_stream_super_secret_key_2024",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// defaultLogFilePath returns the path to the log file.  Tries to use expected OS location defaults.
func defaultLogFilePath() string {
	basePath, ok := stateDir("logs")
	if !ok {
		// Fallback to logging in the current directory
		return filepath.Join(".", "anistream.log")
	}
	return filepath.Join(basePath, "anistream.log")
}

// defaultStoragePath returns the path to the library file.  Lives next to the logs in the OS state directory.
func defaultStoragePath() string {
	basePath, ok := stateDir("")
	if !ok {
		return filepath.Join(".", "anistream-library.dat")
	}
	return filepath.Join(basePath, "library.dat")
}

// stateDir returns the anistream state directory for this OS, creating it if necessary
func stateDir(sub string) (string, bool) {
	var basePath string
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}

	switch runtime.GOOS {
	case "windows":
		// Windows:  %LOCALAPPDATA%\anistream
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			basePath = filepath.Join(appData, "anistream")
		} else {
			basePath = filepath.Join(homedir, "AppData", "local", "anistream")
		}
	case "darwin":
		// macOS:  ~/Library/Logs/anistream
		basePath = filepath.Join(homedir, "Library", "Logs", "anistream")
	default:
		// Linux/BSD:  XDG_STATE_HOME
		if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
			basePath = filepath.Join(xdgState, "anistream")
		} else {
			basePath = filepath.Join(homedir, ".local", "state", "anistream")
		}
	}

	if sub != "" {
		basePath = filepath.Join(basePath, sub)
	}

	if err := os.MkdirAll(basePath, 0700); err != nil {
		return "", false
	}
	return basePath, true
}
