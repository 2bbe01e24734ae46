// Package cli defines the photocraft command tree.
package cli

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/five82/photocraft/internal/app"
	"github.com/five82/photocraft/internal/config"
)

// headlessLogLevel keeps one-shot commands quiet unless something goes wrong.
const headlessLogLevel = "warn"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type rootOptions struct {
	configPath string
	prefsPath  string
	webhookURL string
	mode       string
	poll       time.Duration
	demo       bool
	envFiles   []string
}

func (o *rootOptions) appOptions() app.Options {
	return app.Options{
		ConfigPath: o.configPath,
		PrefsPath:  o.prefsPath,
		Demo:       o.demo,
		Overrides: config.Overrides{
			WebhookURL:   o.webhookURL,
			DeliveryMode: o.mode,
			PollInterval: o.poll,
		},
	}
}

// headless returns app options that log to the command's stderr.
func (o *rootOptions) headless(cmd *cobra.Command) app.Options {
	opts := o.appOptions()
	opts.LogWriter = cmd.ErrOrStderr()
	opts.LogLevel = headlessLogLevel
	return opts
}

// NewRootCommand builds the photocraft command tree. Without a subcommand it
// starts the terminal UI.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "photocraft",
		Short: "Upload photos and pick design templates over a webhook",
		Long: titleStyle.Render("photocraft") + " - photo upload and template gallery\n\n" +
			"Uploads send an image_uploaded event with the photo as a data URI.\n" +
			"Selecting a template sends template_selected and then checks for the\n" +
			"finished design every few seconds.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.LoadDotEnv(opts.envFiles...)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), opts.appOptions())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.config/photocraft/config.toml)")
	flags.StringVar(&opts.prefsPath, "prefs", "", "UI preferences file (default ~/.config/photocraft/prefs.toml)")
	flags.StringVar(&opts.webhookURL, "webhook-url", "", "webhook endpoint, overrides config and environment")
	flags.StringVar(&opts.mode, "mode", "", "delivery mode: strict or opaque")
	flags.DurationVar(&opts.poll, "poll", 0, "interval between readiness checks (default 2s)")
	flags.BoolVar(&opts.demo, "demo", false, "resolve selections after a few checks without a status endpoint")
	flags.StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	root.AddCommand(
		&cobra.Command{
			Use:   "tui",
			Short: "Start the terminal interface (default)",
			Args:  cobra.NoArgs,
			RunE:  root.RunE,
		},
		newUploadCommand(opts),
		newSelectCommand(opts),
		newTemplatesCommand(),
		newWatchCommand(opts),
	)
	return root
}
