package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/photocraft/internal/app"
	"github.com/five82/photocraft/internal/upload"
	"github.com/five82/photocraft/internal/watch"
)

func newWatchCommand(root *rootOptions) *cobra.Command {
	var debounce = watch.DefaultDebounce

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Upload every photo dropped into a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			svc, err := app.Build(root.headless(cmd))
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, svc.Close()) }()

			out := cmd.OutOrStdout()
			w, err := watch.New(args[0], svc.Uploads, watch.Options{
				Debounce: debounce,
				Logger:   svc.Logger.With("component", "watch"),
				OnResult: func(path string, img upload.Image, err error) {
					if err != nil {
						fmt.Fprintln(out, errorStyle.Render("✗ "+path+":")+" "+err.Error())
						return
					}
					fmt.Fprintf(out, "%s %s (%d bytes)\n", successStyle.Render("✓ Uploaded"), img.FileName, img.Size)
				},
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(out, titleStyle.Render("Watching ")+w.Dir())
			fmt.Fprintln(out, mutedStyle.Render("Press Ctrl+C to stop"))
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before a changed file is uploaded")
	return cmd
}
