package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/PizzaHomicide/anistream/internal/config"
	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/hls"
	"github.com/PizzaHomicide/anistream/internal/library"
	"github.com/PizzaHomicide/anistream/internal/log"
	"github.com/PizzaHomicide/anistream/internal/metrics"
	"github.com/PizzaHomicide/anistream/internal/player"
	"github.com/PizzaHomicide/anistream/internal/player/mpv"
	"github.com/PizzaHomicide/anistream/internal/provider"
	"github.com/PizzaHomicide/anistream/internal/repository/anilist"
	"github.com/PizzaHomicide/anistream/internal/repository/jikan"
	"github.com/PizzaHomicide/anistream/internal/resolver"
	"github.com/PizzaHomicide/anistream/internal/service"
	"github.com/PizzaHomicide/anistream/internal/store"
	"github.com/PizzaHomicide/anistream/internal/ui/tui"
	"github.com/PizzaHomicide/anistream/internal/version"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// startupTimeout bounds how long the media player may take to open its IPC socket
const startupTimeout = 10 * time.Second

func main() {
	if len(os.Args) > 1 {
		os.Exit(runCommand(os.Args[1:]))
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// It is unrecoverable if we cannot produce an application config
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialise logger
	logger, err := log.New(log.Config{
		Level:      cfg.Logging.Level,
		FilePath:   cfg.Logging.FilePath,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	// Set the default global logger
	log.SetDefaultLogger(logger)

	log.Info("Starting up anistream", "version", version.GetVersion(), "build_time", version.GetBuildTime())

	if err := run(cfg); err != nil {
		log.Error("Unhandled error while running anistream", "error", err)
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		// Deferred functions do not run on exit
		logger.Close()
		os.Exit(1)
	}

	log.Info("anistream shutting down.  Goodbye!")
}

// run wires the application together and blocks until the TUI exits
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	codec, err := store.CodecByName(cfg.Storage.Codec, cfg.Storage.Key)
	if err != nil {
		return fmt.Errorf("failed to create storage codec: %w", err)
	}
	libraryStore, err := store.Open(afero.NewOsFs(), cfg.Storage.Path, codec)
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	lib := library.Load(libraryStore)

	m := metrics.New()
	if cfg.Metrics.Address != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Address, m, nil); err != nil {
				log.Error("Metrics endpoint stopped", "error", err)
			}
		}()
	}

	quality := domain.QualityPreference{
		Default: cfg.Playback.DefaultQuality,
		Backup:  cfg.Playback.BackupQuality,
		Auto:    cfg.Playback.AutoQuality,
	}

	providers := lo.Map(cfg.Providers, func(p config.ProviderConfig, _ int) domain.ProviderClient {
		return provider.NewClient(domain.ProviderTag(p.Tag), p.BaseURL)
	})
	res := resolver.New(providers, resolver.WithQualityPreference(quality), resolver.WithMetrics(m))

	startCtx, cancelStart := context.WithTimeout(ctx, startupTimeout)
	element, err := mpv.Start(startCtx, mpv.Options{
		Path: cfg.Player.Path,
		Args: mpv.ParseArgs(cfg.Player.Args),
	})
	cancelStart()
	if err != nil {
		return fmt.Errorf("failed to start the media player: %w", err)
	}
	defer element.Close()

	engine := player.NewEngine(element, hls.NewFactory(), player.EngineConfig{
		ForceAdaptive: cfg.Playback.ForceAdaptive,
		Quality:       quality,
		Limits: player.RecoveryLimits{
			Network: cfg.Playback.NetworkRetries,
			Media:   cfg.Playback.MediaRetries,
		},
		Policy: player.LoaderPolicy{
			ManifestTimeout:    cfg.Playback.ManifestTimeout,
			ManifestMaxRetries: cfg.Playback.ManifestMaxRetries,
			FragmentTimeout:    cfg.Playback.FragmentTimeout,
			FragmentMaxRetries: cfg.Playback.FragmentMaxRetries,
			RetryDelay:         cfg.Playback.RetryDelay,
			MaxBitrate:         cfg.Playback.MaxBitrate,
		},
		Metrics: m,
	})
	defer engine.Close()

	episodes := player.NewEpisodePlayer(res, engine, element, resolver.PlaceholderEpisodes)
	defer episodes.Close()

	catalog := service.NewCatalogService(newCatalogRepository(cfg.Catalog), service.SampleCatalog())

	// The user may quit mpv while the TUI keeps running
	go func() {
		select {
		case <-element.Exited():
			log.Warn("The media player exited, playback is no longer available")
		case <-ctx.Done():
		}
	}()

	return tui.Run(catalog, lib, episodes)
}

// newCatalogRepository creates the catalog backend named in the config
func newCatalogRepository(cfg config.CatalogConfig) domain.CatalogRepository {
	switch cfg.Source {
	case "anilist":
		log.Info("Using AniList catalog")
		return anilist.NewAnimeRepository(anilist.NewClient(cfg.BaseURL, nil), cfg.PageSize)
	default:
		log.Info("Using Jikan catalog", "base_url", cfg.BaseURL)
		return jikan.NewRepository(cfg.BaseURL,
			jikan.WithPageSize(cfg.PageSize),
			jikan.WithRequestInterval(cfg.RequestInterval))
	}
}

// runCommand handles the maintenance commands that run instead of the TUI.  Returns the exit code.
func runCommand(args []string) int {
	switch args[0] {
	case "version":
		fmt.Println(version.GetVersionInfo())
		return 0

	case "env":
		for _, entry := range config.EnvVarHelp() {
			fmt.Printf("%-45s %s\n", entry[0], entry[1])
		}
		return 0

	case "catalog":
		if len(args) != 2 || !lo.Contains([]string{"jikan", "anilist"}, args[1]) {
			_, _ = fmt.Fprintln(os.Stderr, "usage: anistream catalog <jikan|anilist>")
			return 2
		}
		// Load first so a default config file exists to update
		if _, err := config.Load(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			return 1
		}
		source := args[1]
		err := config.UpdateConfig(func(cfg *config.Config) {
			cfg.Catalog.Source = source
			// Each source has its own endpoint, the repository picks its default when this is empty
			cfg.Catalog.BaseURL = ""
		})
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to update config: %v\n", err)
			return 1
		}
		fmt.Printf("Catalog source set to %s\n", source)
		return 0

	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		_, _ = fmt.Fprintln(os.Stderr, "usage: anistream [version | env | catalog <jikan|anilist>]")
		return 2
	}
}
