package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/five82/photocraft/internal/gallery"
)

func newTemplatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the template gallery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), renderTemplates(gallery.All()))
			return nil
		},
	}
}

func renderTemplates(templates []gallery.Template) string {
	rows := make([][]string, 0, len(templates))
	for _, tpl := range templates {
		rows = append(rows, []string{fmt.Sprintf("%d", tpl.ID), tpl.Name, tpl.Dimensions})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return titleStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("ID", "NAME", "SIZE").
		Rows(rows...).
		String()
}
