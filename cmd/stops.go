package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tripmate/internal/api"
	"tripmate/internal/itinerary"
	"tripmate/internal/mapsync"
	"tripmate/internal/model"
	"tripmate/internal/util"
)

type stopFlags struct {
	plan    int64
	place   string
	address string
	lat     float64
	lon     float64
	date    string
	time    string
}

func (f *stopFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Int64Var(&f.plan, "plan", 0, "Trip id")
	flags.StringVar(&f.place, "place", "", "Place name")
	flags.StringVar(&f.address, "address", "", "Street address")
	flags.Float64Var(&f.lat, "lat", 0, "Latitude")
	flags.Float64Var(&f.lon, "lon", 0, "Longitude")
	flags.StringVar(&f.date, "date", "", "Day of the stop (YYYY-MM-DD)")
	flags.StringVar(&f.time, "time", "", "Time of day (HH:MM, 9am, ...)")
	_ = cmd.MarkFlagRequired("plan")
}

func newStopsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stops",
		Aliases: []string{"stop"},
		Short:   "Add, edit and remove stops; the trip's map is refreshed after each change",
	}
	cmd.AddCommand(newStopsAddCmd(app))
	cmd.AddCommand(newStopsEditCmd(app))
	cmd.AddCommand(newStopsRmCmd(app))
	return cmd
}

func newStopsAddCmd(app *App) *cobra.Command {
	var f stopFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a stop to a trip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			plan, err := client.GetTrip(ctx, f.plan)
			if err != nil {
				return fmt.Errorf("failed to load trip: %w", err)
			}

			ns := model.NewStop{Location: model.Location{Name: f.place, Address: f.address, Latitude: f.lat, Longitude: f.lon}}
			if ns.Location.Name == "" {
				return fmt.Errorf("--place is required")
			}
			if err := util.ValidateCoordinates(f.lat, f.lon); err != nil {
				return err
			}
			if ns.Date, err = stopDate(plan, f.date); err != nil {
				return err
			}
			if ns.Time, err = util.ParseTimeInput(f.time); err != nil {
				return fmt.Errorf("--time: %w", err)
			}

			stop, err := client.CreateStop(ctx, plan.ID, ns)
			if err != nil {
				return fmt.Errorf("failed to add stop: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added stop %d: %s on %s at %s\n", stop.ID, stop.Location.Name, stop.Date, stop.Time)
			refreshMap(cmd, app, client, plan.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newStopsEditCmd(app *App) *cobra.Command {
	var f stopFlags
	cmd := &cobra.Command{
		Use:   "edit STOP_ID",
		Short: "Change a stop; only the flags given are updated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stopID, err := parseID(args[0], "stop")
			if err != nil {
				return err
			}
			client, err := app.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			plan, err := client.GetTrip(ctx, f.plan)
			if err != nil {
				return fmt.Errorf("failed to load trip: %w", err)
			}
			stops, err := client.ListStops(ctx, plan.ID)
			if err != nil {
				return fmt.Errorf("failed to load stops: %w", err)
			}
			var current *model.Stop
			for i := range stops {
				if stops[i].ID == stopID {
					current = &stops[i]
					break
				}
			}
			if current == nil {
				return fmt.Errorf("stop %d is not part of trip %d", stopID, plan.ID)
			}

			changed := cmd.Flags().Changed
			var upd model.StopUpdate
			if changed("place") || changed("address") || changed("lat") || changed("lon") {
				loc := current.Location
				if changed("place") {
					loc.Name = f.place
				}
				if changed("address") {
					loc.Address = f.address
				}
				if changed("lat") {
					loc.Latitude = f.lat
				}
				if changed("lon") {
					loc.Longitude = f.lon
				}
				if err := util.ValidateCoordinates(loc.Latitude, loc.Longitude); err != nil {
					return err
				}
				upd.Location = &loc
			}
			if changed("date") {
				date, err := stopDate(plan, f.date)
				if err != nil {
					return err
				}
				upd.Date = &date
			}
			if changed("time") {
				t, err := util.ParseTimeInput(f.time)
				if err != nil {
					return fmt.Errorf("--time: %w", err)
				}
				upd.Time = &t
			}
			if upd == (model.StopUpdate{}) {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to change")
				return nil
			}

			stop, err := client.UpdateStop(ctx, plan.ID, stopID, upd)
			if err != nil {
				return fmt.Errorf("failed to update stop: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated stop %d: %s on %s at %s\n", stop.ID, stop.Location.Name, stop.Date, stop.Time)
			refreshMap(cmd, app, client, plan.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newStopsRmCmd(app *App) *cobra.Command {
	var planID int64
	cmd := &cobra.Command{
		Use:   "rm STOP_ID",
		Short: "Remove a stop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stopID, err := parseID(args[0], "stop")
			if err != nil {
				return err
			}
			client, err := app.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if _, err := client.DeleteStop(ctx, planID, stopID); err != nil {
				return fmt.Errorf("failed to remove stop: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed stop %d\n", stopID)
			refreshMap(cmd, app, client, planID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&planID, "plan", 0, "Trip id")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

// stopDate parses a stop date and requires it to fall within the trip.
func stopDate(plan model.Plan, input string) (string, error) {
	date, err := util.ParseDateInput(input)
	if err != nil {
		return "", fmt.Errorf("--date: %w", err)
	}
	if date == "" {
		return "", fmt.Errorf("--date is required")
	}
	if !itinerary.InRange(date, plan.StartDate, plan.EndDate) {
		return "", fmt.Errorf("date must be within the trip (%s)", util.FormatDateRange(plan.StartDate, plan.EndDate))
	}
	return date, nil
}

// refreshMap refetches the trip's map after a change and reports its state.
// A failed refresh leaves the change in place and is only reported.
func refreshMap(cmd *cobra.Command, app *App, client *api.Client, planID int64) {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	doc := app.bridge(client).RefreshPlan(ctx, planID)
	fmt.Fprintf(cmd.ErrOrStderr(), "map: %s\n", mapsync.Status(doc, time.Now()))
}
