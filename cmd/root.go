package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tripmate/internal/api"
	"tripmate/internal/itinerary"
	"tripmate/internal/logging"
	"tripmate/internal/mapsync"
	"tripmate/internal/search"
	"tripmate/internal/ui"
)

const (
	defaultAPIURL = "http://localhost:8080"
	// geocoderOff in geocoder_url disables place search.
	geocoderOff = "off"
)

// App holds state shared by every command.
type App struct {
	ConfigDir string
	JSON      bool

	version string
	v       *viper.Viper
	log     *logging.Logger
}

// NewRootCmd builds the tripmate command tree.
func NewRootCmd(version string) *cobra.Command {
	app := &App{version: version, v: viper.New()}

	cmd := &cobra.Command{
		Use:          "tripmate",
		Short:        "Plan trips day by day, with a map that follows along",
		Version:      version,
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive itinerary
  tripmate

  # Run the backend the client talks to
  tripmate serve --driver sqlite

  # Move a trip and everything planned in it
  tripmate dates 3 --start 2025-05-01 --end 2025-05-04
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.init()
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.log.Close()
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&app.ConfigDir, "config-dir", "", "Directory holding config.yaml, the token and logs (default ~/.tripmate)")
	flags.String("api-url", "", "Backend URL (config: api_url)")
	flags.String("token", "", "Backend bearer token (config: api_token)")
	flags.String("log-file", "", "Log file (config: log_file)")
	_ = app.v.BindPFlag("api_url", flags.Lookup("api-url"))
	_ = app.v.BindPFlag("api_token", flags.Lookup("token"))
	_ = app.v.BindPFlag("log_file", flags.Lookup("log-file"))

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newPlansCmd(app))
	cmd.AddCommand(newStopsCmd(app))
	cmd.AddCommand(newDatesCmd(app))
	cmd.AddCommand(newMapCmd(app))

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute(version string) int {
	if err := NewRootCmd(version).Execute(); err != nil {
		return 1
	}
	return 0
}

// init resolves the config dir, reads config.yaml and the environment, and opens the log.
func (a *App) init() error {
	if a.ConfigDir == "" {
		dir, err := ui.DefaultConfigDir()
		if err != nil {
			return err
		}
		a.ConfigDir = dir
	}
	if err := os.MkdirAll(a.ConfigDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := a.v
	v.SetDefault("geocoder_url", search.DefaultGeocoderURL)
	v.SetDefault("row_height", 1)
	v.SetDefault("hold_ms", 350)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.driver", "sqlite")
	v.SetDefault("log_file", filepath.Join(a.ConfigDir, "tripmate.log"))

	v.SetConfigName("config") // .yaml is implicit
	v.SetConfigType("yaml")
	v.AddConfigPath(a.ConfigDir)
	v.SetEnvPrefix("TRIPMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	log, err := logging.Open(v.GetString("log_file"))
	if err != nil {
		return err
	}
	a.log = log
	a.log.Printf("tripmate %s starting", a.version)
	return nil
}

// client builds a backend client from config, falling back to what onboarding stored.
func (a *App) client() (*api.Client, error) {
	url := strings.TrimSpace(a.v.GetString("api_url"))
	token := strings.TrimSpace(a.v.GetString("api_token"))

	settings, err := loadOnboardingSettings(a.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load onboarding settings: %w", err)
	}
	if url == "" {
		url = settings.APIURL
	}
	if url == "" {
		url = defaultAPIURL
	}
	if token == "" {
		token, err = loadToken(a.ConfigDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load token: %w", err)
		}
	}
	return api.NewClient(url, token), nil
}

func (a *App) bridge(c *api.Client) *mapsync.Bridge {
	return mapsync.NewBridge(c, a.log)
}

func (a *App) remapper(c *api.Client, bridge *mapsync.Bridge) *itinerary.Remapper {
	return &itinerary.Remapper{
		Stops: c,
		Trips: c,
		Log:   a.log,
		Refresh: func(ctx context.Context, planID int64) {
			bridge.RefreshPlan(ctx, planID)
		},
	}
}

func runTUI(cmd *cobra.Command, app *App) error {
	settings, err := loadOnboardingSettings(app.ConfigDir)
	if err != nil {
		return fmt.Errorf("failed to load onboarding settings: %w", err)
	}
	if shouldRunOnboarding(settings) {
		if _, err := runOnboarding(app.ConfigDir, app.v.GetString("api_url")); err != nil {
			return fmt.Errorf("failed to run onboarding: %w", err)
		}
	}

	client, err := app.client()
	if err != nil {
		return err
	}

	opts := ui.Options{
		Backend:       client,
		Log:           app.log,
		RowHeight:     app.v.GetInt("row_height"),
		HoldThreshold: time.Duration(app.v.GetInt("hold_ms")) * time.Millisecond,
		Caps:          ui.DetectTerminalCapabilities(),
		ConfigDir:     app.ConfigDir,
	}
	if geo := strings.TrimSpace(app.v.GetString("geocoder_url")); geo != "" && geo != geocoderOff {
		opts.Search = search.NewGeocoder(geo, "tripmate/"+app.version)
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), "ℹ  Place search disabled; enter stops by coordinates")
	}

	p := tea.NewProgram(ui.New(opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run app: %w", err)
	}
	return nil
}
