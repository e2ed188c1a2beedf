package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/colonyops/taskdeck/internal/deck"
	"github.com/colonyops/taskdeck/pkg/iojson"
	"github.com/urfave/cli/v3"
)

// ChecklistCmd implements the taskdeck checklist command group.
type ChecklistCmd struct {
	flags *Flags
	app   *deck.App

	// show flags
	cached bool

	// add flags
	position int
}

// NewChecklistCmd creates a new checklist command.
func NewChecklistCmd(flags *Flags, app *deck.App) *ChecklistCmd {
	return &ChecklistCmd{flags: flags, app: app}
}

// Register adds the checklist command to the application.
func (cmd *ChecklistCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:    "checklist",
		Aliases: []string{"cl"},
		Usage:   "Edit the checklist of a task",
		Description: `Checklist commands edit the ordered items of a task's checklist. Every
edit is a conditional write; when another client changed the checklist first,
the edit is replayed on the fresh copy.

Examples:
  taskdeck checklist show <task-id>
  taskdeck checklist add <task-id> "buy milk"
  taskdeck checklist toggle <task-id> <item-id>
  taskdeck checklist mv <task-id> <item-id> 0`,
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show a checklist",
				UsageText: "taskdeck checklist show [--cached] <task-id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "cached",
						Usage:       "print the last committed view without reading the store",
						Destination: &cmd.cached,
					},
				},
				Action: cmd.runShow,
			},
			{
				Name:      "add",
				Usage:     "Add an item",
				UsageText: "taskdeck checklist add [--position <n>] <task-id> <title>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:        "position",
						Aliases:     []string{"p"},
						Usage:       "insert position (appends when negative)",
						Value:       -1,
						Destination: &cmd.position,
					},
				},
				Action: cmd.runAdd,
			},
			{
				Name:      "toggle",
				Usage:     "Check or uncheck an item",
				UsageText: "taskdeck checklist toggle <task-id> <item-id>",
				Action:    cmd.runToggle,
			},
			{
				Name:      "check",
				Usage:     "Mark an item done",
				UsageText: "taskdeck checklist check <task-id> <item-id>",
				Action:    cmd.setChecked(true),
			},
			{
				Name:      "uncheck",
				Usage:     "Mark an item not done",
				UsageText: "taskdeck checklist uncheck <task-id> <item-id>",
				Action:    cmd.setChecked(false),
			},
			{
				Name:      "rename",
				Usage:     "Rename an item",
				UsageText: "taskdeck checklist rename <task-id> <item-id> <title>",
				Action:    cmd.runRename,
			},
			{
				Name:      "mv",
				Aliases:   []string{"move"},
				Usage:     "Move an item to a new position",
				UsageText: "taskdeck checklist mv <task-id> <item-id> <position>",
				Action:    cmd.runMove,
			},
			{
				Name:      "rm",
				Aliases:   []string{"remove"},
				Usage:     "Remove an item",
				UsageText: "taskdeck checklist rm <task-id> <item-id>",
				Action:    cmd.runRemove,
			},
			{
				Name:        "reload",
				Usage:       "Discard local state and read the stored checklist",
				UsageText:   "taskdeck checklist reload <task-id>",
				Description: "Use after a failed edit to pick up the authoritative order.",
				Action:      cmd.runReload,
			},
			{
				Name:        "preload",
				Usage:       "Warm the view cache for every stored checklist",
				UsageText:   "taskdeck checklist preload",
				Description: "Loads every stored checklist so its cached view is current.",
				Action:      cmd.runPreload,
			},
		},
	})

	return app
}

func (cmd *ChecklistCmd) runShow(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: taskdeck checklist show <task-id>")
	}
	taskID := c.Args().Get(0)

	if cmd.cached {
		view, ok := cmd.app.Checklists.Cached(ctx, taskID)
		if !ok {
			return fmt.Errorf("no cached checklist for task %s", taskID)
		}
		return iojson.WriteLine(c.Root().Writer, view)
	}

	view, err := cmd.app.Checklists.View(ctx, taskID)
	if err != nil {
		return err
	}
	return iojson.WriteLine(c.Root().Writer, view)
}

func (cmd *ChecklistCmd) runAdd(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: taskdeck checklist add <task-id> <title>")
	}
	item, err := cmd.app.Checklists.Add(ctx, c.Args().Get(0), c.Args().Get(1), cmd.position)
	if err != nil {
		return err
	}
	return iojson.WriteLine(c.Root().Writer, item)
}

func (cmd *ChecklistCmd) runToggle(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: taskdeck checklist toggle <task-id> <item-id>")
	}
	item, err := cmd.app.Checklists.Toggle(ctx, c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}
	return iojson.WriteLine(c.Root().Writer, item)
}

// setChecked returns an action that sets the checked flag instead of
// flipping it, so repeating it is harmless.
func (cmd *ChecklistCmd) setChecked(checked bool) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.NArg() < 2 {
			return fmt.Errorf("usage: taskdeck checklist %s <task-id> <item-id>", c.Name)
		}
		item, err := cmd.app.Checklists.SetChecked(ctx, c.Args().Get(0), c.Args().Get(1), checked)
		if err != nil {
			return err
		}
		return iojson.WriteLine(c.Root().Writer, item)
	}
}

func (cmd *ChecklistCmd) runRename(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 3 {
		return fmt.Errorf("usage: taskdeck checklist rename <task-id> <item-id> <title>")
	}
	item, err := cmd.app.Checklists.Rename(ctx, c.Args().Get(0), c.Args().Get(1), c.Args().Get(2))
	if err != nil {
		return err
	}
	return iojson.WriteLine(c.Root().Writer, item)
}

func (cmd *ChecklistCmd) runMove(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 3 {
		return fmt.Errorf("usage: taskdeck checklist mv <task-id> <item-id> <position>")
	}
	position, err := strconv.Atoi(c.Args().Get(2))
	if err != nil {
		return fmt.Errorf("invalid position %q", c.Args().Get(2))
	}
	item, err := cmd.app.Checklists.Move(ctx, c.Args().Get(0), c.Args().Get(1), position)
	if err != nil {
		return err
	}
	return iojson.WriteLine(c.Root().Writer, item)
}

func (cmd *ChecklistCmd) runRemove(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: taskdeck checklist rm <task-id> <item-id>")
	}
	taskID := c.Args().Get(0)
	if err := cmd.app.Checklists.Remove(ctx, taskID, c.Args().Get(1)); err != nil {
		return err
	}
	view, err := cmd.app.Checklists.View(ctx, taskID)
	if err != nil {
		return err
	}
	return iojson.WriteLine(c.Root().Writer, view)
}

func (cmd *ChecklistCmd) runReload(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: taskdeck checklist reload <task-id>")
	}
	view, err := cmd.app.Checklists.Reload(ctx, c.Args().Get(0))
	if err != nil {
		return err
	}
	return iojson.WriteLine(c.Root().Writer, view)
}

func (cmd *ChecklistCmd) runPreload(ctx context.Context, c *cli.Command) error {
	n, err := cmd.app.Checklists.PreloadStored(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "preloaded %d checklists\n", n)
	return nil
}
