package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestConfig(t *testing.T) string {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "anistream-config-test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}

	t.Cleanup(func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			t.Fatalf("Failed to remove temp directory: %v", err)
		}
	})

	tmpConfigPath := filepath.Join(tmpDir, "config.yaml")
	setEnv(t, "ANISTREAM_CONFIG_PATH", tmpConfigPath)
	// Point at a file that does not exist so a stray .env in the package directory is never picked up
	setEnv(t, "ANISTREAM_ENV_FILE", filepath.Join(tmpDir, "missing.env"))

	t.Cleanup(func() {
		cleanupEnvVars(t)
	})

	return tmpConfigPath
}

// TestConfigIntegration tests the config package with actual file operations
// This test uses a temporary directory to avoid interfering with real user configs
func TestConfigIntegration(t *testing.T) {
	t.Run("LoadDefaultConfig", func(t *testing.T) {
		tmpConfigPath := setupTestConfig(t)
		config := loadConfig(t)

		assert.Equal(t, "mpv", config.Player.Type)
		assert.Equal(t, "info", config.Logging.Level)
		assert.NotEmpty(t, config.Logging.FilePath)
		assert.NotEmpty(t, config.Storage.Path)
		assert.Equal(t, "obfuscated", config.Storage.Codec)
		assert.Equal(t, 3, config.Playback.NetworkRetries)
		assert.Equal(t, 2, config.Playback.MediaRetries)
		assert.Equal(t, 10*time.Second, config.Playback.ManifestTimeout)
		assert.Equal(t, "jikan", config.Catalog.Source)

		require.Len(t, config.Providers, 3)
		assert.Equal(t, "primary", config.Providers[0].Tag)
		assert.Equal(t, "secondary", config.Providers[1].Tag)
		assert.Equal(t, "tertiary", config.Providers[2].Tag)

		if _, err := os.Stat(tmpConfigPath); os.IsNotExist(err) {
			t.Errorf("Config file was not created at %s", tmpConfigPath)
		}

		// Load the file from disk to assert that the 'dynamic' configurations were not saved when the default config was written
		savedConfig, _ := loadFromDisk(tmpConfigPath)
		assert.Empty(t, savedConfig.Logging.FilePath)
		assert.Empty(t, savedConfig.Storage.Path)
	})

	t.Run("SaveAndLoadConfig", func(t *testing.T) {
		tmpConfigPath := setupTestConfig(t)
		customConfig := &Config{
			Player: PlayerConfig{
				Type: "mpv",
				Path: "/usr/local/bin/mpv",
				Args: "--fullscreen",
			},
			Playback: PlaybackConfig{
				ForceAdaptive:   true,
				NetworkRetries:  5,
				ManifestTimeout: 4 * time.Second,
			},
			Providers: []ProviderConfig{
				{Tag: "primary", BaseURL: "http://localhost:3000/anime/one"},
			},
			Catalog: CatalogConfig{
				Source: "anilist",
			},
			Logging: LoggingConfig{
				Level:    "error",
				FilePath: "/var/log/anistream.log",
			},
		}

		saveConfig(t, customConfig, tmpConfigPath)
		loadedConfig := loadConfig(t)

		assert.Equal(t, "/usr/local/bin/mpv", loadedConfig.Player.Path)
		assert.Equal(t, "--fullscreen", loadedConfig.Player.Args)
		assert.True(t, loadedConfig.Playback.ForceAdaptive)
		assert.Equal(t, 5, loadedConfig.Playback.NetworkRetries)
		// Values absent from the file keep their defaults
		assert.Equal(t, 2, loadedConfig.Playback.MediaRetries)
		assert.Equal(t, 4*time.Second, loadedConfig.Playback.ManifestTimeout)
		assert.Equal(t, "anilist", loadedConfig.Catalog.Source)
		assert.Equal(t, []ProviderConfig{{Tag: "primary", BaseURL: "http://localhost:3000/anime/one"}}, loadedConfig.Providers)
		assert.Equal(t, "error", loadedConfig.Logging.Level)
		assert.Equal(t, "/var/log/anistream.log", loadedConfig.Logging.FilePath)
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		tmpConfigPath := setupTestConfig(t)
		if err := os.WriteFile(tmpConfigPath, []byte("invalid: yaml: ["), 0600); err != nil {
			t.Fatalf("Failed to write invalid config: %v", err)
		}

		_, err := Load()
		if err == nil {
			t.Error("Expected error when loading invalid YAML, got nil")
		}
	})

	t.Run("EnvironmentVariableOverrides", func(t *testing.T) {
		setupTestConfig(t)

		setEnv(t, "ANISTREAM_CONFIG_PLAYER_PATH", "/mpv")
		setEnv(t, "ANISTREAM_CONFIG_PLAYER_ARGS", "--fullscreen")
		setEnv(t, "ANISTREAM_CONFIG_PLAYBACK_FORCE_ADAPTIVE", "true")
		setEnv(t, "ANISTREAM_CONFIG_PLAYBACK_NETWORK_RETRIES", "7")
		setEnv(t, "ANISTREAM_CONFIG_PLAYBACK_MEDIA_RETRIES", "not-a-number")
		setEnv(t, "ANISTREAM_CONFIG_PLAYBACK_MANIFEST_TIMEOUT", "3s")
		setEnv(t, "ANISTREAM_CONFIG_PROVIDERS", "primary=http://a.test, secondary=http://b.test,broken")
		setEnv(t, "ANISTREAM_CONFIG_CATALOG_SOURCE", "anilist")
		setEnv(t, "ANISTREAM_CONFIG_STORAGE_CODEC", "json")
		setEnv(t, "ANISTREAM_CONFIG_METRICS_ADDRESS", "127.0.0.1:9090")
		setEnv(t, "ANISTREAM_CONFIG_LOGGING_LEVEL", "warn")
		setEnv(t, "ANISTREAM_CONFIG_LOGGING_FILE_PATH", "/anistream.log")

		config := loadConfig(t)

		assert.Equal(t, "/mpv", config.Player.Path)
		assert.Equal(t, "--fullscreen", config.Player.Args)
		assert.True(t, config.Playback.ForceAdaptive)
		assert.Equal(t, 7, config.Playback.NetworkRetries)
		assert.Equal(t, 2, config.Playback.MediaRetries)
		assert.Equal(t, 3*time.Second, config.Playback.ManifestTimeout)
		assert.Equal(t, []ProviderConfig{
			{Tag: "primary", BaseURL: "http://a.test"},
			{Tag: "secondary", BaseURL: "http://b.test"},
		}, config.Providers)
		assert.Equal(t, "anilist", config.Catalog.Source)
		assert.Equal(t, "json", config.Storage.Codec)
		assert.Equal(t, "127.0.0.1:9090", config.Metrics.Address)
		assert.Equal(t, "warn", config.Logging.Level)
		assert.Equal(t, "/anistream.log", config.Logging.FilePath)

		// Remove an env var and reload to ensure the overrides were not persisted to disk
		unsetEnv(t, "ANISTREAM_CONFIG_LOGGING_LEVEL")

		config = loadConfig(t)

		assert.Equal(t, "info", config.Logging.Level)
	})

	t.Run("DotEnvFile", func(t *testing.T) {
		tmpConfigPath := setupTestConfig(t)
		envPath := filepath.Join(filepath.Dir(tmpConfigPath), "test.env")
		if err := os.WriteFile(envPath, []byte("ANISTREAM_CONFIG_LOGGING_LEVEL=debug\nANISTREAM_CONFIG_CATALOG_SOURCE=anilist\n"), 0600); err != nil {
			t.Fatalf("Failed to write env file: %v", err)
		}
		setEnv(t, "ANISTREAM_ENV_FILE", envPath)
		// Real environment variables win over the file
		setEnv(t, "ANISTREAM_CONFIG_CATALOG_SOURCE", "jikan")

		config := loadConfig(t)

		assert.Equal(t, "debug", config.Logging.Level)
		assert.Equal(t, "jikan", config.Catalog.Source)
	})

	t.Run("ModifyConfig", func(t *testing.T) {
		setupTestConfig(t)
		config := loadConfig(t)

		assert.Equal(t, "mpv", config.Player.Path)

		err := UpdateConfig(func(config *Config) {
			config.Player.Path = "/opt/mpv"
		})
		if err != nil {
			t.Fatalf("Failed to update config: %v", err)
		}

		config = loadConfig(t)
		assert.Equal(t, "/opt/mpv", config.Player.Path)
	})
}

func TestEnvVarHelp(t *testing.T) {
	help := EnvVarHelp()
	assert.Len(t, help, len(supportedEnvVars))
	for _, entry := range help {
		assert.True(t, strings.HasPrefix(entry[0], envPrefix), entry[0])
		assert.NotEmpty(t, entry[1])
	}
}

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	err := os.Setenv(key, value)
	if err != nil {
		t.Fatalf("Failed to set environment variable: %v", err)
	}
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	err := os.Unsetenv(key)
	if err != nil {
		t.Fatalf("Failed to unset environment variable: %v", err)
	}
}

func saveConfig(t *testing.T, config *Config, configPath string) {
	t.Helper()
	if err := save(config, configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
}

func loadConfig(t *testing.T) *Config {
	t.Helper()
	config, err := Load()
	if err != nil {
		t.Fatalf("Loading of config failed: %v", err)
	}
	return config
}

// Removes any env vars with the ANISTREAM prefix to ensure test isolation
func cleanupEnvVars(t *testing.T) {
	t.Helper()

	for _, envVar := range os.Environ() {
		if key := strings.Split(envVar, "=")[0]; strings.HasPrefix(key, "ANISTREAM_") {
			unsetEnv(t, key)
		}
	}
}
