package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/photocraft/internal/app"
)

func newUploadCommand(root *rootOptions) *cobra.Command {
	var printDataURI bool

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a png or jpeg and send image_uploaded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			svc, err := app.Build(root.headless(cmd))
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, svc.Close()) }()

			img, err := svc.Uploads.Select(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("upload %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, successStyle.Render("✓ Uploaded "+img.FileName))
			fmt.Fprintf(out, "  %s %d bytes\n", mutedStyle.Render("size"), img.Size)
			fmt.Fprintf(out, "  %s %s\n", mutedStyle.Render("type"), img.MIMEType)
			if printDataURI {
				fmt.Fprintln(out, img.DataURI)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&printDataURI, "data-uri", false, "print the full data URI")
	return cmd
}
