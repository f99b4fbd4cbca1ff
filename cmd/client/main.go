package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"musicbox/client/config"
	"musicbox/client/internal/protocol"
	"musicbox/client/internal/repo"
	"musicbox/client/internal/state"
	"musicbox/client/internal/transport/ws"
	"musicbox/client/pkg/musicbox"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: client [-config FILE] COMMAND

commands:
  status [-http]                  print current server state (cached copy when unreachable)
  play | next | prev              playback control
  volume-up | volume-down         volume control
  start [-force] PLAYLIST         start a stored playlist
  reload | shutdown               server lifecycle
  update-playlist NAME TRACK...   replace a stored playlist over HTTP
  watch                           follow server events until interrupted`)
}

func main() {
	cfgPath := flag.String("config", "", "config file path")
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Str("app", "musicbox-client").Logger()

	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	os.Exit(run(logger, cfg, args))
}

func dial(cfg *config.Config, logger zerolog.Logger) *ws.Conn {
	return ws.Dial(ws.Options{
		URL:        cfg.ServerURL,
		MinBackoff: cfg.ReconnectMin,
		MaxBackoff: cfg.ReconnectMax,
		Logger:     &logger,
	})
}

var commandTags = map[string]string{
	"play":        protocol.CmdPlayPause,
	"next":        protocol.CmdNextTrack,
	"prev":        protocol.CmdPreviousTrack,
	"volume-up":   protocol.CmdVolumeUp,
	"volume-down": protocol.CmdVolumeDown,
	"reload":      protocol.CmdReload,
	"shutdown":    protocol.CmdShutdown,
}

func run(logger zerolog.Logger, cfg *config.Config, args []string) int {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	switch cmd := args[0]; cmd {
	case "status":
		fs := flag.NewFlagSet("status", flag.ExitOnError)
		overHTTP := fs.Bool("http", false, "use the one-shot HTTP endpoint")
		_ = fs.Parse(args[1:])
		return status(ctx, logger, cfg, *overHTTP)

	case "play", "next", "prev", "volume-up", "volume-down", "reload", "shutdown":
		return sendCommand(ctx, logger, cfg, protocol.Command{Type: commandTags[cmd]})

	case "start":
		fs := flag.NewFlagSet("start", flag.ExitOnError)
		force := fs.Bool("force", false, "restart even if already playing")
		_ = fs.Parse(args[1:])
		if fs.NArg() != 1 {
			usage()
			return 2
		}
		return sendCommand(ctx, logger, cfg, protocol.StartPlaylist(fs.Arg(0), *force))

	case "update-playlist":
		if len(args) < 2 {
			usage()
			return 2
		}
		return updatePlaylist(ctx, logger, cfg, args[1], args[2:])

	case "watch":
		return watch(logger, cfg)

	default:
		usage()
		return 2
	}
}

func status(ctx context.Context, logger zerolog.Logger, cfg *config.Config, overHTTP bool) int {
	st, err := fetchState(ctx, logger, cfg, overHTTP)
	if err != nil {
		logger.Warn().Err(err).Msg("server unreachable, trying cached snapshot")
		return printCached(logger, cfg)
	}
	saveSnapshot(logger, cfg, st)
	printState(st)
	return 0
}

func fetchState(ctx context.Context, logger zerolog.Logger, cfg *config.Config, overHTTP bool) (protocol.AppState, error) {
	if overHTTP {
		client := musicbox.NewHTTPClient(musicbox.HTTPOptions{BaseURL: cfg.HTTPBaseURL})
		return client.GetState(ctx)
	}
	conn := dial(cfg, logger)
	defer conn.Close()
	return musicbox.State.Get(ctx, conn)
}

func printCached(logger zerolog.Logger, cfg *config.Config) int {
	r, err := repo.NewSnapshotRepo(cfg.DBPath)
	if err != nil {
		logger.Error().Err(err).Msg("open snapshot cache")
		return 1
	}
	defer r.Close()
	st, at, err := r.Load()
	if err != nil {
		logger.Error().Err(err).Msg("no usable snapshot")
		return 1
	}
	fmt.Printf("cached state from %s\n", at.Local().Format(time.RFC3339))
	printState(st)
	return 0
}

func saveSnapshot(logger zerolog.Logger, cfg *config.Config, st protocol.AppState) {
	r, err := repo.NewSnapshotRepo(cfg.DBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("open snapshot cache")
		return
	}
	defer r.Close()
	if err := r.Save(st); err != nil {
		logger.Warn().Err(err).Msg("save snapshot")
	}
}

func printState(st protocol.AppState) {
	b, _ := json.MarshalIndent(st, "", "  ")
	fmt.Println(string(b))
}

func sendCommand(ctx context.Context, logger zerolog.Logger, cfg *config.Config, cmd protocol.Command) int {
	conn := dial(cfg, logger)
	defer conn.Close()
	if err := conn.WaitOpen(ctx); err != nil {
		logger.Error().Err(err).Msg("connect")
		return 1
	}
	if err := conn.SendCommand(cmd); err != nil {
		logger.Error().Err(err).Str("command", cmd.Type).Msg("send command")
		return 1
	}
	return 0
}

func updatePlaylist(ctx context.Context, logger zerolog.Logger, cfg *config.Config, name string, paths []string) int {
	tracks := make([]protocol.Track, 0, len(paths))
	for _, p := range paths {
		base := filepath.Base(p)
		tracks = append(tracks, protocol.Track{
			Path:  p,
			Title: strings.TrimSuffix(base, filepath.Ext(base)),
		})
	}
	client := musicbox.NewHTTPClient(musicbox.HTTPOptions{BaseURL: cfg.HTTPBaseURL})
	pl, err := client.UpdateStoredPlaylist(ctx, protocol.StoredPlaylist{Name: name, Tracks: tracks})
	if err != nil {
		logger.Error().Err(err).Str("playlist", name).Msg("update playlist")
		return 1
	}
	fmt.Printf("%s: %d tracks\n", pl.Name, len(pl.Tracks))
	return 0
}

func watch(logger zerolog.Logger, cfg *config.Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn := dial(cfg, logger)
	defer conn.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	initial, err := musicbox.State.Get(fetchCtx, conn)
	cancel()
	if err != nil {
		logger.Error().Err(err).Msg("fetch initial state")
		return 1
	}
	store := state.NewStore(initial)
	saveSnapshot(logger, cfg, initial)

	events, unsubscribe := conn.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return 0
		case ev, ok := <-events:
			if !ok {
				return 0
			}
			current := store.Dispatch(state.EventApplied{Event: ev})
			logger.Info().Str("event", ev.Type).Msg("event")

			if ev.Type == protocol.EvPlaylistUpdated {
				fetchCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				st, err := musicbox.State.Get(fetchCtx, conn)
				cancel()
				if err != nil {
					logger.Warn().Err(err).Msg("refetch state")
					continue
				}
				current = store.Dispatch(state.StateReplaced{State: st})
			}
			saveSnapshot(logger, cfg, current)
		}
	}
}
