package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/five82/photocraft/internal/app"
	"github.com/five82/photocraft/internal/fault"
	"github.com/five82/photocraft/internal/gallery"
	"github.com/five82/photocraft/internal/poller"
)

func newSelectCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "select [template]",
		Short: "Select a template by id or name and wait for the design",
		Long: "Sends template_selected, then checks until the design is ready or\n" +
			"the attempts run out. Exits non-zero unless the design is ready.\n" +
			"Without an argument the template is picked interactively.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var tpl gallery.Template
			if len(args) == 0 {
				tpl, err = pickTemplate()
				if errors.Is(err, fuzzyfinder.ErrAbort) {
					return nil
				}
			} else {
				tpl, err = resolveTemplate(args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			opts := root.headless(cmd)
			opts.OnSession = printTransition(out)

			svc, err := app.Build(opts)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, svc.Close()) }()

			fmt.Fprintf(out, "%s %s (%s)\n", titleStyle.Render("Selecting"), tpl.Name, tpl.Dimensions)
			snap, err := svc.Poller.Select(cmd.Context(), tpl).Wait(cmd.Context())
			if err != nil {
				return err
			}
			return sessionOutcome(out, snap)
		},
	}
}

// resolveTemplate accepts a gallery id or a case-insensitive name.
func resolveTemplate(arg string) (gallery.Template, error) {
	arg = strings.TrimSpace(arg)
	if id, err := strconv.Atoi(arg); err == nil {
		return gallery.Lookup(id)
	}
	for _, tpl := range gallery.All() {
		if strings.EqualFold(tpl.Name, arg) {
			return tpl, nil
		}
	}
	return gallery.Template{}, fault.New(fault.KindInvalid, "cli.select", fmt.Sprintf("unknown template %q", arg))
}

// pickTemplate lets the user choose from the gallery in a fuzzy finder.
func pickTemplate() (gallery.Template, error) {
	templates := gallery.All()
	idx, err := fuzzyfinder.Find(
		templates,
		func(i int) string { return templates[i].Name },
		fuzzyfinder.WithPromptString("template> "),
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return ""
			}
			t := templates[i]
			return fmt.Sprintf("Template #%d\n\nName: %s\nSize: %s", t.ID, t.Name, t.Dimensions)
		}),
	)
	if err != nil {
		return gallery.Template{}, err
	}
	return templates[idx], nil
}

// printTransition writes one line per state change.
func printTransition(w io.Writer) func(poller.Snapshot) {
	var last poller.State
	lastAttempt := -1
	return func(snap poller.Snapshot) {
		if snap.State == last && snap.Attempt == lastAttempt {
			return
		}
		last, lastAttempt = snap.State, snap.Attempt
		switch snap.State {
		case poller.StatePolling:
			if snap.Attempt == 0 {
				if snap.NotifyErr != nil {
					fmt.Fprintln(w, "  "+errorStyle.Render("not delivered:")+" "+snap.NotifyErr.Error())
				}
				return
			}
			fmt.Fprintf(w, "  %s %d/%d\n", mutedStyle.Render("check"), snap.Attempt, snap.MaxAttempts)
		case poller.StateNotifying:
			fmt.Fprintln(w, mutedStyle.Render("  sending template_selected"))
		}
	}
}

func sessionOutcome(w io.Writer, snap poller.Snapshot) error {
	switch snap.State {
	case poller.StateResolved:
		fmt.Fprintln(w, successStyle.Render("✓ Ready")+" "+snap.Artifact)
		return nil
	case poller.StateTimedOut:
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("✗ Not ready after %d checks", snap.Attempt)))
	case poller.StateCancelled:
		fmt.Fprintln(w, mutedStyle.Render("Stopped"))
	default:
		fmt.Fprintln(w, errorStyle.Render("✗ Failed"))
	}
	if snap.Err != nil {
		return snap.Err
	}
	return fmt.Errorf("selection ended %s", snap.State)
}
