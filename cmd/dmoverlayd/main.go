// Package main is the entry point for the dmoverlayd overlay daemon.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/neozepron/dmOverlay/internal/audio"
	"github.com/neozepron/dmOverlay/internal/bus"
	"github.com/neozepron/dmOverlay/internal/config"
	"github.com/neozepron/dmOverlay/internal/daemon"
	"github.com/neozepron/dmOverlay/internal/display"
	"github.com/neozepron/dmOverlay/internal/host"
	"github.com/neozepron/dmOverlay/internal/overlay"
	"github.com/neozepron/dmOverlay/internal/store"
)

const (
	appID   = "com.neozepron.dmoverlayd"
	appName = "dmoverlayd"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to the config file (default ~/.config/dmoverlay/dmoverlayd.toml)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		println("dmoverlayd version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting dmoverlayd", "version", version)

	cfg, err := config.LoadDaemonConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	app := adw.NewApplication(appID, 0)

	var (
		busServer     *bus.Server
		core          *daemon.Daemon
		configWatcher *daemon.ConfigWatcher
		running       atomic.Bool
	)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()

		glib.IdleAdd(func() {
			if running.Load() {
				if configWatcher != nil {
					configWatcher.Stop()
				}
				if core != nil {
					core.Shutdown()
				}
				if busServer != nil {
					_ = busServer.Stop()
				}
				app.Quit()
			}
		})
	}()

	app.ConnectActivate(func() {
		if running.Load() {
			logger.Warn("application already running")
			return
		}
		running.Store(true)

		statePath, err := store.StatePath()
		if err != nil {
			logger.Error("failed to get state path", "error", err)
			app.Quit()
			return
		}

		busServer = bus.NewServer(logger)
		backend := display.NewBackend(&app.Application, cfg, logger)
		chime := audio.NewChime(cfg.SoundPath(), cfg.Audio.Volume, cfg.Audio.Enabled, logger)

		// The D-Bus server must be started before the host proxy can
		// share its session connection.
		if err := busServer.Start(); err != nil {
			logger.Error("failed to start D-Bus server", "error", err)
			app.Quit()
			return
		}

		proxy := bus.NewHostProxy(busServer.Connection(), logger)

		core, err = daemon.New(daemon.Options{
			Config: cfg,
			Host: daemon.Capabilities{
				Messaging:   proxy,
				Friends:     proxy,
				CurrentUser: proxy,
				Channels:    proxy,
			},
			Factory:   backend.Factory(),
			StatePath: statePath,
			Logger:    logger,
			Chime:     chime,
		})
		if err != nil {
			logger.Error("failed to build daemon", "error", err)
			_ = busServer.Stop()
			app.Quit()
			return
		}

		// Overlay lifecycle flows out as D-Bus signals.
		core.SetOverlayHooks(
			func(conv overlay.Conversation) {
				if err := busServer.EmitOverlayOpened(conv.ChannelID, conv.DisplayName); err != nil {
					logger.Debug("failed to emit OverlayOpened", "error", err)
				}
			},
			func(channelID string) {
				if err := busServer.EmitOverlayClosed(channelID); err != nil {
					logger.Debug("failed to emit OverlayClosed", "error", err)
				}
			},
		)

		// Registry mutations create and touch GTK windows, so every
		// entry point from a non-GTK goroutine is marshalled onto the
		// main loop.
		busServer.SetEventHandler(func(ev host.MessageEvent) {
			glib.IdleAdd(func() {
				core.HandleEvent(ctx, ev)
			})
		})
		busServer.SetCloseHandler(func(channelID string) {
			glib.IdleAdd(func() {
				core.Close(channelID)
			})
		})
		busServer.SetCloseAllHandler(func() {
			glib.IdleAdd(func() {
				core.CloseAll()
			})
		})
		busServer.SetReplyHandler(func(channelID, text string) bool {
			return core.Reply(ctx, channelID, text)
		})
		busServer.SetListHandler(core.Snapshot)

		configWatcher, err = daemon.NewConfigWatcher(*configPath, logger)
		if err != nil {
			logger.Warn("failed to create config watcher", "error", err)
		} else {
			configWatcher.SetReloadCallback(func(newConfig *config.DaemonConfig) {
				glib.IdleAdd(func() {
					backend.UpdateConfig(newConfig)
					core.ApplyConfig(newConfig)
					cfg = newConfig
				})
			})
			configWatcher.SetErrorCallback(func(err error) {
				logger.Warn("ignoring invalid config change", "error", err)
			})
			if err := configWatcher.Start(cfg); err != nil {
				logger.Warn("failed to start config watcher", "error", err)
			}
		}

		logger.Info("dmoverlayd ready", "dbus_interface", bus.Interface)

		// Hidden window keeps the application alive while no overlays
		// are open.
		keepAliveWindow := gtk.NewWindow()
		keepAliveWindow.SetApplication(&app.Application)
		keepAliveWindow.SetDefaultSize(1, 1)
		keepAliveWindow.SetDecorated(false)
		keepAliveWindow.SetVisible(false)
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		if configWatcher != nil {
			configWatcher.Stop()
		}
		if core != nil {
			core.Shutdown()
		}
		if busServer != nil {
			_ = busServer.Stop()
		}
		running.Store(false)
	})

	status := app.Run(os.Args)

	cancel()

	if status != 0 {
		logger.Error("application exited with error", "status", status)
		os.Exit(status)
	}

	logger.Info("dmoverlayd stopped")
}
