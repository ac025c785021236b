package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/glebovdev/radio-cli/internal/config"
	"github.com/glebovdev/radio-cli/internal/player"
	"github.com/glebovdev/radio-cli/internal/service"
	"github.com/spf13/cobra"
)

const nowPlayingPollInterval = 500 * time.Millisecond

func playCommand() *cobra.Command {
	var (
		byName bool
		index  int
	)
	cmd := &cobra.Command{
		Use:   "play <country|name>",
		Short: "Play a station without the TUI",
		Long:  "Look up stations by country (or by name with --name) and play one of them. Failed streams advance to the next station.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			query := strings.Join(args, " ")

			var page service.Page
			if byName {
				page = app.stations.FetchByName(cmd.Context(), query)
			} else {
				page = app.stations.FetchByCountry(cmd.Context(), query)
			}
			if page.Status == service.StatusFailed || len(page.Stations) == 0 {
				return errors.New(page.Message)
			}
			for index > len(page.Stations) && page.HasMore {
				page = app.stations.FetchMore()
			}
			st, err := pickStation(page, index)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			device := player.NewBeepDevice()
			defer device.Close()

			engine := player.NewEngine(device, app.resolver)
			engine.SetVolume(config.VolumeFraction(app.cfg.Volume))
			out := cmd.OutOrStdout()
			engine.SetDiagnosticHandler(func(message string) {
				fmt.Fprintln(cmd.ErrOrStderr(), message)
			})
			go engine.Run(ctx)

			err = engine.PlayStation(ctx, st, page.Stations)
			if err != nil && !errors.Is(err, player.ErrSuperseded) && !errors.Is(err, player.ErrNoPlayableStream) {
				return err
			}

			watchNowPlaying(ctx, engine, out)
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&byName, "name", false, "treat the argument as a station name")
	cmd.Flags().IntVar(&index, "index", 1, "1-based position of the station in the results")
	return cmd
}

// watchNowPlaying prints station and track changes until ctx is done.
func watchNowPlaying(ctx context.Context, engine *player.Engine, w io.Writer) {
	ticker := time.NewTicker(nowPlayingPollInterval)
	defer ticker.Stop()

	var lastKey, lastTrack string
	for {
		state := engine.State()
		if state.HasStation && state.Station.Key() != lastKey {
			lastKey = state.Station.Key()
			lastTrack = ""
			fmt.Fprintf(w, "▶ %s (%s)\n", state.Station.Name, dash(state.Station.Country))
		}
		if state.NowPlaying != "" && state.NowPlaying != lastTrack {
			lastTrack = state.NowPlaying
			fmt.Fprintf(w, "  ♪ %s\n", state.NowPlaying)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
