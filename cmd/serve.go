package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"tripmate/internal/db"
	"tripmate/internal/logging"
	"tripmate/internal/server"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tripmate backend",
		Long: `Serve the plan and stop API and the map documents the client displays.

SQLite (the default) keeps everything in one file under the config directory.
With --driver postgres and no --dsn, the connection is built from DB_HOST,
DB_PORT, DB_USER, DB_PASS and DB_NAME.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := app.v
			driver := v.GetString("server.driver")
			dsn := v.GetString("server.dsn")
			if dsn == "" {
				switch driver {
				case db.DriverSQLite:
					dsn = filepath.Join(app.ConfigDir, "tripmate.db")
				case db.DriverPostgres:
					dsn = db.PostgresDSNFromEnv()
				}
			}

			database, err := db.Open(driver, dsn)
			if err != nil {
				return err
			}
			defer database.Close()

			// Unlike the TUI, the server owns the terminal and logs to stderr.
			log := logging.New(cmd.ErrOrStderr())
			srv, err := server.New(database, log, server.Config{Token: v.GetString("server.token")})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			addr := v.GetString("server.addr")
			fmt.Fprintf(cmd.OutOrStdout(), "tripmate backend on %s (%s)\n", addr, driver)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", "", "Listen address (config: server.addr)")
	flags.String("driver", "", "Database driver: sqlite or postgres (config: server.driver)")
	flags.String("dsn", "", "Database file or connection string (config: server.dsn)")
	flags.String("server-token", "", "Require this bearer token (config: server.token)")
	_ = app.v.BindPFlag("server.addr", flags.Lookup("addr"))
	_ = app.v.BindPFlag("server.driver", flags.Lookup("driver"))
	_ = app.v.BindPFlag("server.dsn", flags.Lookup("dsn"))
	_ = app.v.BindPFlag("server.token", flags.Lookup("server-token"))

	return cmd
}
