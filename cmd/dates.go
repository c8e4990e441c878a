package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tripmate/internal/itinerary"
	"tripmate/internal/util"
)

func newDatesCmd(app *App) *cobra.Command {
	var start, end string
	var yes bool
	cmd := &cobra.Command{
		Use:   "dates PLAN_ID",
		Short: "Change a trip's dates; every stop keeps its day within the trip",
		Example: strings.TrimSpace(`
  # Push a three day trip back a week
  tripmate dates 3 --start 2025-05-08 --end 2025-05-10`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planID, err := parseID(args[0], "trip")
			if err != nil {
				return err
			}
			newStart, err := util.ParseDateInput(start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			newEnd, err := util.ParseDateInput(end)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}

			client, err := app.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			plan, err := client.GetTrip(ctx, planID)
			if err != nil {
				return fmt.Errorf("failed to load trip: %w", err)
			}
			stops, err := client.ListStops(ctx, planID)
			if err != nil {
				return fmt.Errorf("failed to load stops: %w", err)
			}

			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())
			confirm := func(w itinerary.RemapWarning) bool {
				if yes {
					return true
				}
				printWarning(out, w)
				return askYesNo(out, in, "Move the dates anyway?")
			}

			remapper := app.remapper(client, app.bridge(client))
			res, err := remapper.Remap(ctx, plan, newStart, newEnd, stops, confirm)
			if errors.Is(err, itinerary.ErrRemapCancelled) {
				fmt.Fprintln(out, "Dates unchanged.")
				return nil
			}
			// Stops already moved stay moved, so a partial change is finished by
			// retrying what is left rather than by running the command again.
			for retries := 0; itinerary.Resumable(err); retries++ {
				question := printRemapFailure(cmd.ErrOrStderr(), err)
				if yes && retries >= maxAutoRetries || !yes && !askYesNo(out, in, question) {
					return err
				}
				res, err = remapper.Resume(ctx, err)
			}
			if err != nil {
				return err
			}

			how := "one at a time"
			if res.Batched {
				how = "in one request"
			}
			fmt.Fprintf(out, "%s now runs %s; %s moved %s.\n",
				res.Plan.Place,
				util.FormatDateRange(res.Plan.StartDate, res.Plan.EndDate),
				util.Pluralize(len(res.Updated), "stop", "stops"),
				how)
			if n := len(res.Outside); n > 0 {
				color.New(color.FgYellow).Fprintf(out, "%s now outside the trip dates.\n", util.Pluralize(n, "stop", "stops"))
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&start, "start", "", "New first day (YYYY-MM-DD)")
	flags.StringVar(&end, "end", "", "New last day, inclusive (YYYY-MM-DD)")
	flags.BoolVarP(&yes, "yes", "y", false, "Move the dates even when stops would fall outside them")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

const maxAutoRetries = 2

func printWarning(out io.Writer, w itinerary.RemapWarning) {
	warn := color.New(color.FgYellow, color.Bold)
	faint := color.New(color.Faint)
	warn.Fprintln(out, w.Message())
	for _, s := range w.Outside {
		faint.Fprintf(out, "  %s  %s %s\n", s.Date, s.Time, s.Location.Name)
	}
}

// askYesNo reads a y/N answer; anything but y or yes is a no.
func askYesNo(out io.Writer, in *bufio.Reader, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, err := in.ReadString('\n')
	if err != nil && answer == "" {
		fmt.Fprintln(out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// printRemapFailure explains a remap that stopped part way and returns the
// retry question that fits it.
func printRemapFailure(w io.Writer, err error) string {
	var terr *itinerary.TripDatesError
	if errors.As(err, &terr) {
		color.New(color.FgRed, color.Bold).Fprintln(w, terr.Error())
		fmt.Fprintf(w, "  %s already on their new dates (%s).\n",
			util.Pluralize(len(terr.Updated), "stop is", "stops are"), util.FormatDateRange(terr.NewStart, terr.NewEnd))
		fmt.Fprintln(w, "Do not run this command again; retrying saves only the trip dates.")
		return "Retry saving the trip dates?"
	}
	var perr *itinerary.PartialRemapError
	if errors.As(err, &perr) {
		printPartial(w, perr)
	}
	return "Retry the remaining stops?"
}

func printPartial(w io.Writer, perr *itinerary.PartialRemapError) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintln(w, perr.Error())
	for _, c := range perr.Succeeded {
		fmt.Fprintf(w, "  moved    %-24s %s -> %s\n", c.Stop.Location.Name, c.From, c.To)
	}
	fmt.Fprintf(w, "  failed   %-24s %s -> %s\n", perr.Failed.Stop.Location.Name, perr.Failed.From, perr.Failed.To)
	for _, c := range perr.NotAttempted {
		fmt.Fprintf(w, "  pending  %-24s %s -> %s\n", c.Stop.Location.Name, c.From, c.To)
	}
	fmt.Fprintln(w, "The trip keeps its old dates until every stop has moved.")
}
