package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/glebovdev/radio-cli/internal/api"
	"github.com/glebovdev/radio-cli/internal/cache"
	"github.com/glebovdev/radio-cli/internal/config"
	"github.com/glebovdev/radio-cli/internal/player"
	"github.com/glebovdev/radio-cli/internal/resolver"
	"github.com/glebovdev/radio-cli/internal/service"
	"github.com/glebovdev/radio-cli/internal/ui"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type app struct {
	cfg      *config.Config
	stations *service.StationService
	images   *cache.Cache
	resolver *resolver.Resolver
	debug    bool
}

type appKey struct{}

func fromContext(cmd *cobra.Command) *app {
	val := cmd.Context().Value(appKey{})
	if val == nil {
		return nil
	}
	return val.(*app)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		debug  bool
		random bool
	)

	root := &cobra.Command{
		Use:          "radio",
		Short:        config.AppName + " - " + config.AppTagline,
		Long:         config.AppDescription,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(fromContext(cmd), random)
		},
	}

	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	root.Flags().BoolVar(&random, "random", false, "start with a random station")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		images, err := cache.NewCache()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			images = cache.NewAt(os.TempDir())
		}

		setupLogging(debug, cmd == root, images.LogPath())

		cfg, err := config.Load()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load config, using defaults")
		}

		if debug {
			if configPath, err := config.GetConfigPath(); err == nil {
				log.Debug().Msgf("Config: %s", configPath)
			}
			log.Debug().Msgf("Cache: %s", images.Dir())
			log.Debug().Msgf("Directories: %s, %s", cfg.Directories.PrimaryBaseURL, cfg.Directories.LegacyBaseURL)
		}

		primary := api.NewRadioBrowserClient(cfg.Directories.PrimaryBaseURL, cfg.RequestTimeout)
		legacy := api.NewTuneInClient(cfg.Directories.LegacyBaseURL, cfg.RequestTimeout)

		cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, &app{
			cfg:      cfg,
			stations: service.NewStationService(primary, legacy, images),
			images:   images,
			resolver: resolver.New(cfg.RequestTimeout),
			debug:    debug,
		}))
		return nil
	}

	root.AddCommand(searchCommand())
	root.AddCommand(countryCommand())
	root.AddCommand(playCommand())
	root.AddCommand(cacheCommand())
	root.AddCommand(versionCommand())

	return root
}

// setupLogging routes zerolog output. The TUI owns the terminal, so it only
// ever logs to a file; the other commands log to stderr.
func setupLogging(debug, tui bool, logPath string) {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}

	if !tui {
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
		return
	}

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)

		var out io.Writer = os.Stderr
		logFile, err := openLogFile(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create log file: %v\n", err)
		} else {
			out = logFile
			fmt.Printf("Debug log: %s\n", logPath)
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"})
		log.Info().Msgf("Starting %s v%s (debug mode)", config.AppName, config.AppVersion)
		return
	}

	// Avoid TUI corruption by only logging errors to /dev/null
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	if devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0644); err == nil {
		log.Logger = log.Output(devNull)
	}
}

func runTUI(a *app, random bool) error {
	go func() {
		if err := a.images.CleanExpired(); err != nil {
			log.Debug().Err(err).Msg("Failed to clean image cache")
		}
	}()

	device := player.NewBeepDevice()
	defer device.Close()

	engine := player.NewEngine(device, a.resolver)
	radioUI := ui.NewUI(engine, device, a.stations, a.cfg, random)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		if _, ok := <-sigChan; ok {
			log.Info().Msg("Received shutdown signal, cleaning up...")
			radioUI.Shutdown()
		}
	}()

	log.Info().Msg("Starting UI...")
	if err := radioUI.Run(); err != nil {
		log.Error().Err(err).Msg("Error running UI")
		return err
	}

	log.Info().Msgf("%s stopped", config.AppName)
	return nil
}

func openLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
}
