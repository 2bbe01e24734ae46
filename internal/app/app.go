package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/five82/photocraft/internal/config"
	"github.com/five82/photocraft/internal/logging"
	"github.com/five82/photocraft/internal/poller"
	"github.com/five82/photocraft/internal/prefs"
	"github.com/five82/photocraft/internal/state"
	"github.com/five82/photocraft/internal/status"
	"github.com/five82/photocraft/internal/ui"
	"github.com/five82/photocraft/internal/upload"
	"github.com/five82/photocraft/internal/webhook"
)

// demoReadyAfter is the attempt on which the demo checker resolves.
const demoReadyAfter = 3

// Options configure the photocraft application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/photocraft/prefs.toml
	Overrides  config.Overrides
	// Demo resolves every selection after a few checks instead of asking
	// a status endpoint.
	Demo bool
	// LogWriter sends logs to w instead of the configured log file.
	LogWriter io.Writer
	LogLevel  string
	// OnSession observes selection session transitions in addition to the
	// shared store.
	OnSession func(poller.Snapshot)
}

// Services are the wired components shared by the TUI and the headless
// commands.
type Services struct {
	Config  config.Config
	Logger  *slog.Logger
	Webhook *webhook.Client
	Checker status.Checker
	Uploads *upload.Handler
	Poller  *poller.Poller
	Store   *state.Store

	logCloser io.Closer
}

// Build loads configuration and wires every component.
func Build(opts Options) (*Services, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Apply(opts.Overrides); err != nil {
		return nil, fmt.Errorf("apply flags: %w", err)
	}

	level := cfg.LogLevel
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, closer, err := logging.New(logging.Config{Level: level, File: cfg.LogFile, Writer: opts.LogWriter})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	client, err := webhook.NewClient(webhook.Options{
		Endpoint: cfg.WebhookURL,
		Mode:     cfg.DeliveryMode,
		Timeout:  cfg.RequestTimeout,
		UserID:   cfg.UserID,
		Platform: cfg.Platform,
		Logger:   logger.With("component", "webhook"),
	})
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("init webhook client: %w", err)
	}

	checker, err := newChecker(cfg, opts.Demo)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("init status checker: %w", err)
	}

	store := &state.Store{}
	sender := trackDelivery(client, store)

	uploads := upload.NewHandler(sender, upload.Options{
		MaxBytes: cfg.MaxUploadBytes,
		Logger:   logger.With("component", "upload"),
		OnChange: store.SetPreview,
	})

	sessions := poller.New(sender, checker, poller.Options{
		Interval:           cfg.PollInterval,
		MaxAttempts:        cfg.PollMaxAttempts,
		AbortOnNotifyError: cfg.AbortOnNotifyError,
		OnUpdate:           reportSession(store, opts.OnSession),
		Logger:             logger.With("component", "poller"),
	})

	logger.Info("photocraft configured",
		"webhook", client.Endpoint(),
		"mode", client.Mode().String(),
		"poll_interval", cfg.PollInterval,
		"poll_max_attempts", cfg.PollMaxAttempts,
		"status_url", cfg.StatusURL,
		"demo", opts.Demo,
	)

	return &Services{
		Config:    cfg,
		Logger:    logger,
		Webhook:   client,
		Checker:   checker,
		Uploads:   uploads,
		Poller:    sessions,
		Store:     store,
		logCloser: closer,
	}, nil
}

// Close stops any running selection session and releases the log file.
func (s *Services) Close() error {
	if s == nil {
		return nil
	}
	s.Poller.Stop()
	if s.logCloser != nil {
		return s.logCloser.Close()
	}
	return nil
}

func newChecker(cfg config.Config, demo bool) (status.Checker, error) {
	switch {
	case demo:
		return &status.ReadyAfter{N: demoReadyAfter}, nil
	case strings.TrimSpace(cfg.StatusURL) != "":
		return status.NewClient(cfg.StatusURL)
	default:
		return status.Stub{}, nil
	}
}

// Run boots the photocraft TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) (err error) {
	svc, err := Build(opts)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, svc.Close())
	}()

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	return ui.Run(ui.Options{
		Context:      ctx,
		Store:        svc.Store,
		Uploads:      svc.Uploads,
		Sessions:     svc.Poller,
		ThemeName:    userPrefs.Theme,
		LastTemplate: userPrefs.LastTemplate,
		StartDir:     userPrefs.LastDir,
		PrefsPath:    opts.PrefsPath,
		LogPath:      svc.Config.LogFile,
		Endpoint:     svc.Webhook.Endpoint(),
		Mode:         svc.Webhook.Mode().String(),
	})
}
