package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tripmate/internal/mapsync"
	"tripmate/internal/ui"
)

func newMapCmd(app *App) *cobra.Command {
	var out string
	var ascii bool
	var width, height int
	cmd := &cobra.Command{
		Use:   "map PLAN_ID",
		Short: "Fetch a trip's map as a self-contained HTML page, or draw it in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planID, err := parseID(args[0], "trip")
			if err != nil {
				return err
			}
			client, err := app.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			doc := app.bridge(client).Fetch(ctx, planID)
			if doc.Fallback {
				app.log.Printf("map plan=%d: %s", planID, doc.Reason)
			}

			switch {
			case ascii:
				fmt.Fprintln(cmd.OutOrStdout(), ui.RenderMiniMap(doc.Markers, ui.DetectTerminalCapabilities(), width, height))
			case out != "":
				if err := os.WriteFile(out, []byte(doc.HTML), 0644); err != nil {
					return fmt.Errorf("failed to write map: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			default:
				fmt.Fprint(cmd.OutOrStdout(), doc.HTML)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "map: %s\n", mapsync.Status(doc, time.Now()))
			if doc.Stripped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "map: removed %d external resources\n", doc.Stripped)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&out, "out", "o", "", "Write the HTML page to this file")
	flags.BoolVar(&ascii, "ascii", false, "Draw the stops as ASCII art")
	flags.IntVar(&width, "width", 60, "ASCII width in cells")
	flags.IntVar(&height, "height", 20, "ASCII height in cells")
	return cmd
}
