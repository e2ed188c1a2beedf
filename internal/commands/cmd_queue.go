package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/colonyops/taskdeck/internal/core/queue"
	"github.com/colonyops/taskdeck/internal/deck"
	"github.com/colonyops/taskdeck/pkg/iojson"
	"github.com/urfave/cli/v3"
)

// QueueCmd implements the taskdeck queue command group.
type QueueCmd struct {
	flags *Flags
	app   *deck.App
}

// NewQueueCmd creates a new queue command.
func NewQueueCmd(flags *Flags, app *deck.App) *QueueCmd {
	return &QueueCmd{flags: flags, app: app}
}

// Register adds the queue command to the application.
func (cmd *QueueCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "queue",
		Usage: "Manage the focus queue",
		Description: `The focus queue holds a handful of tasks in priority order. It has a fixed
capacity; adding a task to a full queue is rejected.

Examples:
  taskdeck queue list
  taskdeck queue add <task-id>
  taskdeck queue mv <task-id> 0
  taskdeck queue rm <task-id>`,
		Commands: []*cli.Command{
			{
				Name:        "list",
				Aliases:     []string{"ls"},
				Usage:       "List queued tasks in priority order",
				UsageText:   "taskdeck queue list",
				Description: "Prints one JSON line per queued task, highest priority first.",
				Action:      cmd.runList,
			},
			{
				Name:      "add",
				Usage:     "Queue a task at the lowest priority",
				UsageText: "taskdeck queue add <task-id>",
				Action:    cmd.runAdd,
			},
			{
				Name:      "rm",
				Aliases:   []string{"remove"},
				Usage:     "Remove a task from the queue",
				UsageText: "taskdeck queue rm <task-id>",
				Action:    cmd.runRemove,
			},
			{
				Name:      "mv",
				Aliases:   []string{"move"},
				Usage:     "Move a queued task to a new position",
				UsageText: "taskdeck queue mv <task-id> <position>",
				Action:    cmd.runMove,
			},
		},
	})

	return app
}

func (cmd *QueueCmd) runList(ctx context.Context, c *cli.Command) error {
	refs, err := cmd.app.Queue.Items(ctx)
	if err != nil {
		return fmt.Errorf("list queue: %w", err)
	}
	return cmd.write(c, refs)
}

func (cmd *QueueCmd) runAdd(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: taskdeck queue add <task-id>")
	}
	refs, err := cmd.app.Queue.Add(ctx, c.Args().Get(0))
	if err != nil {
		return err
	}
	return cmd.write(c, refs)
}

func (cmd *QueueCmd) runRemove(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: taskdeck queue rm <task-id>")
	}
	refs, err := cmd.app.Queue.Remove(ctx, c.Args().Get(0))
	if err != nil {
		return err
	}
	return cmd.write(c, refs)
}

func (cmd *QueueCmd) runMove(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: taskdeck queue mv <task-id> <position>")
	}
	position, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("invalid position %q", c.Args().Get(1))
	}
	refs, err := cmd.app.Queue.Move(ctx, c.Args().Get(0), position)
	if err != nil {
		return err
	}
	return cmd.write(c, refs)
}

func (cmd *QueueCmd) write(c *cli.Command, refs []queue.TaskRef) error {
	for _, r := range refs {
		if err := iojson.WriteLine(c.Root().Writer, r); err != nil {
			return err
		}
	}
	return nil
}
