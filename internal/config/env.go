package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "ANISTREAM_CONFIG_"

type envVar struct {
	name  string
	desc  string
	apply func(*Config, string)
}

var supportedEnvVars = []envVar{
	{
		// Only here for documentation purposes.  Does not override any values in the config as this environment variable
		// points to where the config should be loaded.  It is handled prior to loading the config.
		name:  "ANISTREAM_CONFIG_PATH",
		desc:  "Sets the path to the config file.  Default: OS-specific config directory",
		apply: func(c *Config, s string) {}, // Special case, no-op
	},
	{
		name:  "ANISTREAM_CONFIG_PLAYER_PATH",
		desc:  "Sets the path to the mpv binary.  Default: mpv",
		apply: func(c *Config, s string) { c.Player.Path = s },
	},
	{
		name:  "ANISTREAM_CONFIG_PLAYER_ARGS",
		desc:  "Sets additional arguments passed to mpv.  Default: None",
		apply: func(c *Config, s string) { c.Player.Args = s },
	},
	{
		name:  "ANISTREAM_CONFIG_PLAYBACK_FORCE_ADAPTIVE",
		desc:  "Always use the built-in HLS client for manifests.  Default: false",
		apply: func(c *Config, s string) { applyBool(&c.Playback.ForceAdaptive, s) },
	},
	{
		name:  "ANISTREAM_CONFIG_PLAYBACK_NETWORK_RETRIES",
		desc:  "Sets how many times a network failure is retried before playback fails.  Default: 3",
		apply: func(c *Config, s string) { applyInt(&c.Playback.NetworkRetries, s) },
	},
	{
		name:  "ANISTREAM_CONFIG_PLAYBACK_MEDIA_RETRIES",
		desc:  "Sets how many times a media failure is recovered before playback fails.  Default: 2",
		apply: func(c *Config, s string) { applyInt(&c.Playback.MediaRetries, s) },
	},
	{
		name:  "ANISTREAM_CONFIG_PLAYBACK_MANIFEST_TIMEOUT",
		desc:  "Sets the timeout for loading a manifest, as a Go duration.  Default: 10s",
		apply: func(c *Config, s string) { applyDuration(&c.Playback.ManifestTimeout, s) },
	},
	{
		name:  "ANISTREAM_CONFIG_PLAYBACK_MAX_BITRATE",
		desc:  "Sets the highest variant bandwidth the HLS client picks, in bits per second.  Default: unlimited",
		apply: func(c *Config, s string) { applyInt(&c.Playback.MaxBitrate, s) },
	},
	{
		name:  "ANISTREAM_CONFIG_PROVIDERS",
		desc:  "Replaces the provider list.  Comma separated tag=base_url pairs in fallback order.  Default: consumet providers",
		apply: applyProviders,
	},
	{
		name:  "ANISTREAM_CONFIG_CATALOG_SOURCE",
		desc:  "Sets the catalog API.  One of: jikan, anilist.  Default: jikan",
		apply: func(c *Config, s string) { c.Catalog.Source = s },
	},
	{
		name:  "ANISTREAM_CONFIG_CATALOG_BASE_URL",
		desc:  "Sets the base URL of the catalog API.  Default: the public endpoint of the catalog source",
		apply: func(c *Config, s string) { c.Catalog.BaseURL = s },
	},
	{
		name:  "ANISTREAM_CONFIG_STORAGE_PATH",
		desc:  "Sets the path of the favorites and history file.  Default: OS-specific",
		apply: func(c *Config, s string) { c.Storage.Path = s },
	},
	{
		name:  "ANISTREAM_CONFIG_STORAGE_CODEC",
		desc:  "Sets the codec of the favorites and history file.  One of: obfuscated, json.  Default: obfuscated",
		apply: func(c *Config, s string) { c.Storage.Codec = s },
	},
	{
		name:  "ANISTREAM_CONFIG_METRICS_ADDRESS",
		desc:  "Sets the address to serve metrics on.  Default: disabled",
		apply: func(c *Config, s string) { c.Metrics.Address = s },
	},
	{
		name:  "ANISTREAM_CONFIG_LOGGING_LEVEL",
		desc:  "Sets the logging level.  One of: trace, debug, info, warn, error.  Default: info",
		apply: func(c *Config, s string) { c.Logging.Level = s },
	},
	{
		name:  "ANISTREAM_CONFIG_LOGGING_FILE_PATH",
		desc:  "Sets the logging file path.  Default: OS-specific",
		apply: func(c *Config, s string) { c.Logging.FilePath = s },
	},
}

func applyEnvVarOverrides(c *Config) {
	for _, envVar := range supportedEnvVars {
		if value := os.Getenv(envVar.name); value != "" {
			envVar.apply(c, value)
		}
	}
}

// EnvVarHelp returns the name and description of every supported environment variable
func EnvVarHelp() [][2]string {
	help := make([][2]string, 0, len(supportedEnvVars))
	for _, envVar := range supportedEnvVars {
		help = append(help, [2]string{envVar.name, envVar.desc})
	}
	return help
}

// Invalid values are ignored so a typo never prevents startup
func applyInt(target *int, s string) {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		*target = v
	}
}

func applyBool(target *bool, s string) {
	if v, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
		*target = v
	}
}

func applyDuration(target *time.Duration, s string) {
	if v, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
		*target = v
	}
}

func applyProviders(c *Config, s string) {
	var providers []ProviderConfig
	for _, pair := range strings.Split(s, ",") {
		tag, baseURL, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || tag == "" || baseURL == "" {
			continue
		}
		providers = append(providers, ProviderConfig{Tag: tag, BaseURL: baseURL})
	}
	if len(providers) > 0 {
		c.Providers = providers
	}
}
