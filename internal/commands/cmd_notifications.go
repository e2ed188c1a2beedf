package commands

import (
	"context"
	"fmt"

	"github.com/colonyops/taskdeck/internal/deck"
	"github.com/colonyops/taskdeck/pkg/iojson"
	"github.com/urfave/cli/v3"
)

// NotificationsCmd implements the taskdeck notifications command group.
type NotificationsCmd struct {
	flags *Flags
	app   *deck.App
}

// NewNotificationsCmd creates a new notifications command.
func NewNotificationsCmd(flags *Flags, app *deck.App) *NotificationsCmd {
	return &NotificationsCmd{flags: flags, app: app}
}

// Register adds the notifications command to the application.
func (cmd *NotificationsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:    "notifications",
		Aliases: []string{"notif"},
		Usage:   "Review background notifications",
		Description: `Notifications are raised when a reorder is rolled back, a task is rejected
by a full queue, or deleted tasks are pruned from the queue.`,
		Commands: []*cli.Command{
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List notifications, newest first",
				UsageText: "taskdeck notifications list [--limit N]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "show at most N notifications (0 for all)",
						Value: 20,
					},
				},
				Action: cmd.runList,
			},
			{
				Name:      "clear",
				Usage:     "Delete all notifications",
				UsageText: "taskdeck notifications clear",
				Action:    cmd.runClear,
			},
		},
	})

	return app
}

func (cmd *NotificationsCmd) runList(ctx context.Context, c *cli.Command) error {
	notifications, err := cmd.app.Notifications.List(ctx, c.Int("limit"))
	if err != nil {
		return err
	}

	for _, n := range notifications {
		if err := iojson.WriteLine(c.Root().Writer, n); err != nil {
			return err
		}
	}
	return nil
}

func (cmd *NotificationsCmd) runClear(ctx context.Context, c *cli.Command) error {
	count, err := cmd.app.Notifications.Clear(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "cleared %d notifications\n", count)
	return nil
}
