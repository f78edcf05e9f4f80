// Package daemon wires the overlay pipeline together: inbound events are
// filtered, folded into the overlay registry, and replies flow back out
// through the dispatcher.
package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neozepron/dmOverlay/internal/audio"
	"github.com/neozepron/dmOverlay/internal/config"
	"github.com/neozepron/dmOverlay/internal/dispatch"
	"github.com/neozepron/dmOverlay/internal/event"
	"github.com/neozepron/dmOverlay/internal/host"
	"github.com/neozepron/dmOverlay/internal/model"
	"github.com/neozepron/dmOverlay/internal/overlay"
	"github.com/neozepron/dmOverlay/internal/primer"
	"github.com/neozepron/dmOverlay/internal/store"
)

// Capabilities bundles the host interfaces the daemon depends on. In
// production every field is the same D-Bus host proxy.
type Capabilities struct {
	Messaging   host.Messaging
	Friends     host.Friends
	CurrentUser host.CurrentUser
	Channels    host.Channels
}

// Options configures a Daemon.
type Options struct {
	Config    *config.DaemonConfig
	Host      Capabilities
	Factory   overlay.SurfaceFactory
	StatePath string
	Logger    *slog.Logger

	// Chime is optional; nil disables sound.
	Chime *audio.Chime
}

// Daemon is the orchestration core shared by the real binary and the
// tests.
type Daemon struct {
	cfg    *config.DaemonConfig
	logger *slog.Logger

	registry   *overlay.Registry
	filter     *event.Filter
	primer     *primer.Primer
	dispatcher *dispatch.Dispatcher
	saver      *store.DebouncedSaver
	chime      *audio.Chime

	onOpen  func(overlay.Conversation)
	onClose func(channelID string)
}

// New builds the pipeline: filter, primer, dispatcher, registry, and the
// persisted-state plumbing between them.
func New(opts Options) (*Daemon, error) {
	if opts.Config == nil {
		opts.Config = config.DefaultDaemonConfig()
	}
	if opts.Factory == nil {
		return nil, fmt.Errorf("surface factory is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config

	d := &Daemon{
		cfg:    cfg,
		logger: logger,
		chime:  opts.Chime,
	}

	d.filter = event.NewFilter(opts.Host.Friends, opts.Host.CurrentUser, logger)
	d.primer = primer.New(opts.Host.Channels, cfg.Priming.TTL.Duration(), cfg.Priming.FetchLimit, logger)
	d.dispatcher = dispatch.New(opts.Host.Messaging, d.primer, logger)

	d.registry = overlay.NewRegistry(overlay.Config{
		MaxWindows:  cfg.Display.MaxWindows,
		MaxMessages: cfg.Display.MaxMessages,
		MinHeight:   cfg.Display.MinHeight,
		MaxHeight:   cfg.Display.MaxHeight,
		Layout: overlay.LayoutParams{
			OffsetX: cfg.Display.OffsetX,
			OffsetY: cfg.Display.OffsetY,
			Gap:     cfg.Display.Gap,
		},
		Avatars: model.NewAvatarResolver(cfg.CDN.Base, cfg.CDN.DefaultAvatarCount),
	}, opts.Factory, logger)

	d.registry.SetReplyFunc(d.dispatcher.Send)
	d.registry.SetOpenHook(func(conv overlay.Conversation) {
		if d.chime != nil {
			if err := d.chime.Play(); err != nil {
				logger.Debug("chime failed", "error", err)
			}
		}
		if d.onOpen != nil {
			d.onOpen(conv)
		}
	})
	d.registry.SetCloseHook(func(channelID string) {
		if d.onClose != nil {
			d.onClose(channelID)
		}
	})

	if opts.StatePath != "" {
		state := store.Load(opts.StatePath)
		d.registry.RestoreLastDragged(state.LastDraggedPos)

		path := opts.StatePath
		d.saver = store.NewDebouncedSaver(cfg.Behavior.SaveQuietPeriod.Duration(), func(s store.State) error {
			return store.Save(path, s)
		}, logger)
		d.registry.SetPositionSaveHook(d.saver.Record)
	}

	return d, nil
}

// SetOverlayHooks installs observers for overlay lifecycle, used to emit
// D-Bus signals. Must be called before events flow.
func (d *Daemon) SetOverlayHooks(onOpen func(overlay.Conversation), onClose func(channelID string)) {
	d.onOpen = onOpen
	d.onClose = onClose
}

// HandleEvent runs one inbound message event through the filter and, when
// accepted, the registry. The conversation is warmed in the background so
// a quick reply lands in a ready channel.
func (d *Daemon) HandleEvent(ctx context.Context, ev host.MessageEvent) {
	ok, reason := d.filter.Accept(ctx, ev)
	if !ok {
		d.logger.Debug("event rejected", "reason", reason)
		return
	}

	n, err := model.NewNotification(*ev.Message)
	if err != nil {
		d.logger.Warn("failed to build notification", "error", err)
		return
	}

	go d.primer.Warm(context.WithoutCancel(ctx), n.Message.ChannelID)

	if err := d.registry.Upsert(n); err != nil {
		d.logger.Warn("failed to open overlay", "channel", n.Message.ChannelID, "error", err)
	}
}

// Reply sends a reply through the dispatcher. Exposed on the control
// interface so the companion CLI can reply without a window.
func (d *Daemon) Reply(ctx context.Context, channelID, text string) bool {
	return d.dispatcher.Send(ctx, channelID, text)
}

// Close closes one overlay.
func (d *Daemon) Close(channelID string) {
	d.registry.Close(channelID)
}

// CloseAll closes every overlay.
func (d *Daemon) CloseAll() {
	d.registry.CloseAll()
}

// Snapshot returns the active overlay summaries.
func (d *Daemon) Snapshot() []overlay.EntryInfo {
	return d.registry.Snapshot()
}

// Registry exposes the overlay registry for wiring.
func (d *Daemon) Registry() *overlay.Registry {
	return d.registry
}

// ApplyConfig applies the hot-reloadable parts of a new configuration.
// Window bounds and layout take effect for overlays opened after a
// restart.
func (d *Daemon) ApplyConfig(cfg *config.DaemonConfig) {
	d.cfg = cfg
	if d.chime != nil {
		d.chime.SetEnabled(cfg.Audio.Enabled)
		d.chime.SetVolume(cfg.Audio.Volume)
		d.chime.SetSound(cfg.SoundPath())
	}
	d.logger.Info("configuration applied")
}

// Shutdown closes all overlays and flushes pending state.
func (d *Daemon) Shutdown() {
	d.registry.CloseAll()
	if d.saver != nil {
		d.saver.Close()
	}
	d.logger.Info("daemon shut down")
}
