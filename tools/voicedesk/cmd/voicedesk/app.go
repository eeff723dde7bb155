package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/AltairaLabs/VoiceDesk/pkg/config"
	"github.com/AltairaLabs/VoiceDesk/runtime/appctx"
	"github.com/AltairaLabs/VoiceDesk/runtime/capture"
	"github.com/AltairaLabs/VoiceDesk/runtime/credentials"
	"github.com/AltairaLabs/VoiceDesk/runtime/events"
	"github.com/AltairaLabs/VoiceDesk/runtime/logger"
	prommetrics "github.com/AltairaLabs/VoiceDesk/runtime/metrics/prometheus"
	"github.com/AltairaLabs/VoiceDesk/runtime/notify"
	"github.com/AltairaLabs/VoiceDesk/runtime/session"
	"github.com/AltairaLabs/VoiceDesk/runtime/statestore"
	"github.com/AltairaLabs/VoiceDesk/runtime/telemetry"
	"github.com/AltairaLabs/VoiceDesk/runtime/transport"
	"github.com/AltairaLabs/VoiceDesk/runtime/version"
	"github.com/AltairaLabs/VoiceDesk/tools/voicedesk/render"
)

// newDevice builds the capture device for the configured backend. Tests
// replace it with an in-memory device.
var newDevice = func(cfg config.CaptureConfig) capture.Device {
	if cfg.Backend == config.CapturePortAudio {
		return capture.NewPortAudioDevice(cfg.SampleRate)
	}
	return capture.NewFFmpegDevice(cfg.FFmpegPath, cfg.FFmpegFormat, cfg.FFmpegInput, cfg.SampleRate)
}

// app is the wired application for one command invocation.
type app struct {
	cfg       *config.Config
	bus       *events.EventBus
	ctx       *appctx.Context
	client    *transport.Client
	history   statestore.Store
	out       io.Writer
	color     bool
	markdown  *render.Markdown
	formatter *render.Formatter

	closers []func(context.Context) error
}

// newApp loads the configuration and wires every collaborator.
func newApp(cmd *cobra.Command, opts *globalOptions) (*app, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.Logging.Apply(opts.verbose); err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	version.LogStartup(ctx)

	a := &app{cfg: cfg, bus: events.NewEventBus(), out: cmd.OutOrStdout()}
	a.closers = append(a.closers, func(context.Context) error {
		a.bus.Close()
		return nil
	})

	if err := a.setupObservability(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}

	tokens := credentials.Resolve(credentials.ResolverConfig{
		Token:     cfg.Auth.Token,
		TokenFile: cfg.Auth.TokenFile,
	})
	a.ctx = appctx.New(tokens, a.bus, notify.New(cfg.UI.Locale))

	a.client = transport.New(cfg.API.BaseURL, a.ctx,
		transport.WithRequestTimeout(cfg.API.Timeout),
		transport.WithUploadTimeout(cfg.API.UploadTimeout),
		transport.WithUnauthorizedHandler(a.ctx.HandleUnauthorized),
	)

	a.history = a.newHistory()

	a.color = isTerminal(a.out)
	md, err := render.NewMarkdown(terminalWidth(a.out), a.color)
	if err != nil {
		logger.Warn("Markdown rendering unavailable", "error", err)
		md = nil
	}
	a.markdown = md
	a.formatter = render.NewFormatter(a.out, md)
	return a, nil
}

func (a *app) setupObservability(ctx context.Context) error {
	shutdown, err := telemetry.Setup(ctx, a.cfg.Telemetry.Endpoint, a.cfg.Telemetry.ServiceName)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, shutdown)
	if a.cfg.Telemetry.Endpoint != "" {
		a.bus.SubscribeAll(telemetry.NewOTelEventListener(ctx, telemetry.Tracer(nil)).OnEvent)
	}

	if a.cfg.Metrics.Addr != "" {
		exporter := prommetrics.NewExporter(a.cfg.Metrics.Addr)
		a.bus.SubscribeAll(prommetrics.NewMetricsListener().Listener())
		serveCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		go exporter.Serve(serveCtx)
		a.closers = append(a.closers, func(context.Context) error {
			cancel()
			return nil
		})
		logger.Info("Serving metrics", "addr", a.cfg.Metrics.Addr)
	}
	return nil
}

func (a *app) newHistory() statestore.Store {
	h := a.cfg.History
	if h.Backend != config.HistoryRedis {
		return statestore.NewMemoryStore()
	}
	client := redis.NewClient(&redis.Options{Addr: h.RedisAddr})
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	return statestore.NewRedisStore(client, statestore.WithTTL(h.TTL), statestore.WithPrefix(h.Prefix))
}

// sessionConfig returns the collaborators shared by the session controllers.
func (a *app) sessionConfig() session.Config {
	return session.Config{App: a.ctx, History: a.history}
}

// device returns the configured capture adapter.
func (a *app) device() *capture.Adapter {
	return capture.NewAdapter(newDevice(a.cfg.Capture))
}

// listen prints toasts and segment uploads as they happen. The listener
// lives until Close, which drains the bus.
func (a *app) listen() {
	a.bus.SubscribeAll(a.formatter.Listener)
}

// Close releases everything newApp acquired, in reverse order.
func (a *app) Close(ctx context.Context) {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		logger.Warn("Shutdown incomplete", "error", err)
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return render.DefaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return render.DefaultWidth
	}
	return width
}
