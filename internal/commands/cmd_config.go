package commands

import (
	"context"
	"fmt"

	"github.com/colonyops/taskdeck/internal/deck"
	"github.com/colonyops/taskdeck/pkg/iojson"
	"github.com/urfave/cli/v3"
)

// ConfigCmd implements the taskdeck config command group.
type ConfigCmd struct {
	flags *Flags
	app   *deck.App
}

// NewConfigCmd creates a new config command.
func NewConfigCmd(flags *Flags, app *deck.App) *ConfigCmd {
	return &ConfigCmd{flags: flags, app: app}
}

// Register adds the config command to the application.
func (cmd *ConfigCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Inspect the loaded configuration",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print the effective configuration",
				UsageText: "taskdeck config show",
				Action:    cmd.runShow,
			},
			{
				Name:        "validate",
				Usage:       "Validate the configuration",
				UsageText:   "taskdeck config validate",
				Description: "Runs every configuration check and prints non-fatal warnings as JSON lines.",
				Action:      cmd.runValidate,
			},
		},
	})

	return app
}

func (cmd *ConfigCmd) runShow(_ context.Context, c *cli.Command) error {
	return iojson.WriteLine(c.Root().Writer, cmd.app.Config)
}

func (cmd *ConfigCmd) runValidate(_ context.Context, c *cli.Command) error {
	cfg := cmd.app.Config
	if err := cfg.ValidateDeep(cmd.flags.ConfigPath); err != nil {
		return fmt.Errorf("config is invalid: %w", err)
	}

	for _, w := range cfg.Warnings() {
		if err := iojson.WriteLine(c.Root().Writer, w); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintln(c.Root().Writer, "config is valid")
	return nil
}
