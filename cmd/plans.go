package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"tripmate/internal/itinerary"
	"tripmate/internal/model"
	"tripmate/internal/util"
)

const commandTimeout = 60 * time.Second

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), commandTimeout)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

func newPlansCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "plans",
		Aliases: []string{"plan", "trips"},
		Short:   "List, show and create trips",
	}
	cmd.PersistentFlags().BoolVar(&app.JSON, "json", false, "Print JSON instead of tables")

	cmd.AddCommand(newPlansListCmd(app))
	cmd.AddCommand(newPlansShowCmd(app))
	cmd.AddCommand(newPlansCreateCmd(app))
	cmd.AddCommand(newPlansRmCmd(app))
	return cmd
}

func newPlansListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List trips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			plans, err := client.ListPlans(ctx)
			if err != nil {
				return fmt.Errorf("failed to list trips: %w", err)
			}
			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), plans)
			}
			fmt.Fprintln(cmd.OutOrStdout(), plansTable(plans))
			return nil
		},
	}
}

func plansTable(plans []model.Plan) *uitable.Table {
	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 40
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("PLACE"), bold.Sprint("DATES"), bold.Sprint("DAYS"), bold.Sprint("PARTNER"), bold.Sprint("STYLE"))
	for _, p := range plans {
		tbl.AddRow(p.ID, p.Place, util.FormatDateRange(p.StartDate, p.EndDate), itinerary.RangeLength(p.StartDate, p.EndDate), p.Partner, p.Style)
	}
	tbl.RightAlign(0)
	return tbl
}

// planView is the JSON shape of one itinerary.
type planView struct {
	Plan    model.Plan        `json:"plan"`
	Days    []model.DayBucket `json:"days"`
	Outside []model.Stop      `json:"outside,omitempty"`
}

func newPlansShowCmd(app *App) *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "show PLAN_ID",
		Short: "Show a trip day by day",
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
			plan, err := client.GetTrip(ctx, planID)
			if err != nil {
				return fmt.Errorf("failed to load trip: %w", err)
			}
			stops, err := client.ListStops(ctx, planID)
			if err != nil {
				return fmt.Errorf("failed to load stops: %w", err)
			}

			view := planView{
				Plan:    plan,
				Days:    itinerary.BuildDayBuckets(plan, stops),
				Outside: itinerary.Dropped(plan, stops),
			}
			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), view)
			}

			r, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(width),
			)
			if err != nil {
				return err
			}
			out, err := r.Render(itineraryMarkdown(view))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width")
	return cmd
}

// itineraryMarkdown renders a trip as a markdown document.
func itineraryMarkdown(v planView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", v.Plan.Place)
	days := len(v.Days)
	fmt.Fprintf(&b, "_%s · %s_", util.FormatDateRange(v.Plan.StartDate, v.Plan.EndDate), util.Pluralize(days, "day", "days"))
	if v.Plan.Partner != "" {
		fmt.Fprintf(&b, " · with %s", v.Plan.Partner)
	}
	if v.Plan.Style != "" {
		fmt.Fprintf(&b, " · %s", v.Plan.Style)
	}
	b.WriteString("\n\n")

	for _, day := range v.Days {
		fmt.Fprintf(&b, "## %s\n\n", util.FormatDayHeading(day.Date, day.Index))
		if len(day.Stops) == 0 {
			b.WriteString("_Nothing planned._\n\n")
			continue
		}
		for _, s := range day.Stops {
			fmt.Fprintf(&b, "- **%s** %s", s.Time, s.Location.Name)
			if s.Location.Address != "" {
				fmt.Fprintf(&b, " (%s)", s.Location.Address)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if n := len(v.Outside); n > 0 {
		fmt.Fprintf(&b, "> %s outside these dates: ", util.Pluralize(n, "stop", "stops"))
		names := make([]string, 0, n)
		for _, s := range v.Outside {
			names = append(names, fmt.Sprintf("%s (%s)", s.Location.Name, s.Date))
		}
		b.WriteString(strings.Join(names, ", "))
		b.WriteString("\n")
	}
	return b.String()
}

func newPlansCreateCmd(app *App) *cobra.Command {
	var np model.NewPlan
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a trip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			np.Place = strings.TrimSpace(np.Place)
			if np.Place == "" {
				return fmt.Errorf("--place is required")
			}
			start, err := util.ParseDateInput(np.StartDate)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			end, err := util.ParseDateInput(np.EndDate)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			if err := itinerary.ValidateRange(start, end); err != nil {
				return err
			}
			np.StartDate, np.EndDate = start, end

			client, err := app.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			plan, err := client.CreatePlan(ctx, np)
			if err != nil {
				return fmt.Errorf("failed to create trip: %w", err)
			}
			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), plan)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created trip %d: %s, %s\n", plan.ID, plan.Place, util.FormatDateRange(plan.StartDate, plan.EndDate))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&np.Place, "place", "", "Destination")
	flags.StringVar(&np.StartDate, "start", "", "First day (YYYY-MM-DD)")
	flags.StringVar(&np.EndDate, "end", "", "Last day, inclusive (YYYY-MM-DD)")
	flags.StringVar(&np.Partner, "partner", "", "Travel partner")
	flags.StringVar(&np.Style, "style", "", "Travel style")
	return cmd
}

func newPlansRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm PLAN_ID",
		Short: "Delete a trip and its stops",
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
			if err := client.DeletePlan(ctx, planID); err != nil {
				return fmt.Errorf("failed to delete trip: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted trip %d\n", planID)
			return nil
		},
	}
}
