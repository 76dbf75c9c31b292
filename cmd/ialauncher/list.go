package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rtts/ialauncher/game"
)

type listStyles struct {
	header lipgloss.Style
	ready  lipgloss.Style
	absent lipgloss.Style
	hidden lipgloss.Style
	year   lipgloss.Style
}

func newListStyles() listStyles {
	return listStyles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(4)),
		ready:  lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(2)),
		absent: lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(8)),
		hidden: lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(3)),
		year:   lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(6)),
	}
}

func newListCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closer, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			cat, err := loadCatalog(cfg, all)
			if err != nil {
				return err
			}
			writeList(cmd.OutOrStdout(), cat.Entries(), newListStyles())
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include hidden titles")
	return cmd
}

// writeList prints one aligned row per entry
func writeList(w io.Writer, entries []*game.Entry, st listStyles) {
	idWidth, titleWidth := len("IDENTIFIER"), len("TITLE")
	for _, e := range entries {
		idWidth = max(idWidth, lipgloss.Width(e.Identifier))
		titleWidth = max(titleWidth, lipgloss.Width(e.Title()))
	}
	col := func(s string, width int, style lipgloss.Style) string {
		return style.Width(width + 2).Render(s)
	}

	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top,
		col("IDENTIFIER", idWidth, st.header),
		col("TITLE", titleWidth, st.header),
		col("YEAR", 4, st.header),
		st.header.Render("STATUS"),
	))
	for _, e := range entries {
		year, _ := e.Year()
		var status []string
		if e.IsReady() {
			status = append(status, st.ready.Render("ready"))
		} else {
			status = append(status, st.absent.Render("not downloaded"))
		}
		if e.Hidden {
			status = append(status, st.hidden.Render("hidden"))
		}
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top,
			col(e.Identifier, idWidth, lipgloss.NewStyle()),
			col(e.Title(), titleWidth, lipgloss.NewStyle()),
			col(year, 4, st.year),
			strings.Join(status, ", "),
		))
	}
	fmt.Fprintf(w, "%d titles\n", len(entries))
}
