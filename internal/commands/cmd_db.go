package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/taskdeck/internal/deck"
	"github.com/colonyops/taskdeck/pkg/iojson"
	"github.com/urfave/cli/v3"
)

// DBCmd implements the taskdeck db command group.
type DBCmd struct {
	flags *Flags
	app   *deck.App

	// rollback flags
	steps int
}

// NewDBCmd creates a new db command.
func NewDBCmd(flags *Flags, app *deck.App) *DBCmd {
	return &DBCmd{flags: flags, app: app}
}

type migrationRow struct {
	Version   int        `json:"version"`
	Name      string     `json:"name"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// Register adds the db command to the application.
func (cmd *DBCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "db",
		Usage: "Inspect and manage the local database",
		Commands: []*cli.Command{
			{
				Name:      "status",
				Usage:     "Show migration status",
				UsageText: "taskdeck db status",
				Action:    cmd.runStatus,
			},
			{
				Name:      "rollback",
				Usage:     "Revert the most recent migrations",
				UsageText: "taskdeck db rollback [--steps <n>]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:        "steps",
						Aliases:     []string{"n"},
						Usage:       "number of migrations to revert",
						Value:       1,
						Destination: &cmd.steps,
					},
				},
				Action: cmd.runRollback,
			},
		},
	})

	return app
}

func (cmd *DBCmd) runStatus(ctx context.Context, c *cli.Command) error {
	statuses, err := cmd.app.DB.Migrator().Status(ctx)
	if err != nil {
		return fmt.Errorf("migration status: %w", err)
	}

	for _, s := range statuses {
		row := migrationRow{Version: s.Version, Name: s.Name, Applied: s.Applied}
		if s.Applied {
			at := s.AppliedAt
			row.AppliedAt = &at
		}
		if err := iojson.WriteLine(c.Root().Writer, row); err != nil {
			return err
		}
	}
	return nil
}

func (cmd *DBCmd) runRollback(ctx context.Context, c *cli.Command) error {
	reverted, err := cmd.app.DB.Migrator().Down(ctx, cmd.steps)
	for _, m := range reverted {
		_, _ = fmt.Fprintf(c.Root().Writer, "reverted %04d_%s\n", m.Version, m.Name)
	}
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
