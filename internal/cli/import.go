package cli

import (
	"github.com/AdamBeresnev/bracket-sim/internal/db"
	"github.com/AdamBeresnev/bracket-sim/internal/service"
	"github.com/AdamBeresnev/bracket-sim/internal/store"
	"github.com/spf13/cobra"
)

// DatabaseOptions are shared by the commands that touch the fixture database.
type DatabaseOptions struct {
	*RootOptions
	Database   string
	Migrations string
}

func (o *DatabaseOptions) bindFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&o.Migrations, "migrations", "file://migrations", "migrations source URL")
	_ = cmd.MarkFlagRequired("db")
}

func (o *DatabaseOptions) openService() (*service.SimService, func(), error) {
	database, err := db.InitDB(o.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	if err := db.RunMigrations(database.DB, o.Migrations); err != nil {
		database.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to migrate database", err)
	}
	svc := service.NewSimService(database, store.NewFixtureStore(database))
	return svc, func() { database.Close() }, nil
}

func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DatabaseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <config>",
		Short: "Store a bracket config as a fixture for the web server",
		Long: `Store a bracket config in the fixture database. A fixture with the same
event id is replaced.

Example:
  bracketsim import ./weekly.yaml --db ./bracket_sim.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

			cfg, err := LoadConfig(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}

			svc, closeDB, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := svc.ImportFixture(cmd.Context(), cfg); err != nil {
				return WrapExitError(ExitFailure, "failed to import fixture", err)
			}
			return formatter.Success(map[string]string{"imported": cfg.Event.ID})
		},
	}
	opts.bindFlags(cmd)

	return cmd
}
