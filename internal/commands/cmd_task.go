package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/colonyops/taskdeck/internal/deck"
	"github.com/colonyops/taskdeck/pkg/iojson"
	"github.com/urfave/cli/v3"
)

// TaskCmd implements the taskdeck task command group.
type TaskCmd struct {
	flags *Flags
	app   *deck.App

	// add flags
	addTitle  string
	addBucket string
	addDue    string

	// list flags
	listWhere string

	// import flags
	importReader iojson.FileReader[[]task.Task]
}

// NewTaskCmd creates a new task command.
func NewTaskCmd(flags *Flags, app *deck.App) *TaskCmd {
	return &TaskCmd{flags: flags, app: app}
}

// Register adds the task command to the application.
func (cmd *TaskCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "task",
		Usage: "Manage the local task set",
		Description: `Task commands manage the tasks that checklists and the focus queue refer to.

Examples:
  taskdeck task add --title "Write report" --due 2026-11-01
  taskdeck task list --where 'bucket == "work" && !completed'
  taskdeck task progress <id> 50
  taskdeck task rm <id>
  taskdeck task import -f tasks.json`,
		Commands: []*cli.Command{
			cmd.addCmd(),
			cmd.listCmd(),
			cmd.progressCmd(),
			cmd.removeCmd(),
			cmd.importCmd(),
		},
	})

	return app
}

func (cmd *TaskCmd) addCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Create a task",
		UsageText: "taskdeck task add --title <title> [--bucket <bucket>] [--due <YYYY-MM-DD>]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "title",
				Aliases:     []string{"t"},
				Usage:       "task title",
				Required:    true,
				Destination: &cmd.addTitle,
			},
			&cli.StringFlag{
				Name:        "bucket",
				Aliases:     []string{"b"},
				Usage:       "bucket the task belongs to",
				Destination: &cmd.addBucket,
			},
			&cli.StringFlag{
				Name:        "due",
				Usage:       "due date (YYYY-MM-DD)",
				Destination: &cmd.addDue,
			},
		},
		Action: cmd.runAdd,
	}
}

func (cmd *TaskCmd) listCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List tasks",
		UsageText: "taskdeck task list [--where <expr>]",
		Description: `Lists tasks as JSON lines, oldest first.

--where takes a boolean expression over id, title, bucket, percent,
completed, has_due, overdue and due_in_days, for example:

  taskdeck task ls --where 'overdue || due_in_days <= 1'`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "where",
				Aliases:     []string{"w"},
				Usage:       "only list tasks matching this expression",
				Destination: &cmd.listWhere,
			},
		},
		Action: cmd.runList,
	}
}

func (cmd *TaskCmd) progressCmd() *cli.Command {
	return &cli.Command{
		Name:      "progress",
		Usage:     "Set the percent complete of a task",
		UsageText: "taskdeck task progress <id> <percent>",
		Action:    cmd.runProgress,
	}
}

func (cmd *TaskCmd) removeCmd() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Aliases:   []string{"delete"},
		Usage:     "Delete a task",
		UsageText: "taskdeck task rm <id>",
		Description: `Deletes a task. The task is dropped from the focus queue and its
checklist is deleted.`,
		Action: cmd.runRemove,
	}
}

func (cmd *TaskCmd) importCmd() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import tasks from JSON or YAML",
		UsageText: "taskdeck task import [-f <file>]",
		Description: `Imports an array of tasks from a file or stdin. Files ending in .yaml or
.yml are read as YAML, anything else as JSON. Ids are kept when present.
Nothing is stored if any task is invalid.

Examples:
  taskdeck task import -f tasks.yaml
  cat tasks.json | taskdeck task import`,
		Flags:  []cli.Flag{cmd.importReader.Flag()},
		Action: cmd.runImport,
	}
}

func (cmd *TaskCmd) runAdd(ctx context.Context, c *cli.Command) error {
	t := task.Task{Title: cmd.addTitle, Bucket: cmd.addBucket}
	if cmd.addDue != "" {
		due, err := time.ParseInLocation(time.DateOnly, cmd.addDue, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --due %q: want YYYY-MM-DD", cmd.addDue)
		}
		t.DueAt = &due
	}

	created, err := cmd.app.Tasks.Create(ctx, t)
	if err != nil {
		return err
	}
	return iojson.WriteLine(c.Root().Writer, created)
}

func (cmd *TaskCmd) runList(ctx context.Context, c *cli.Command) error {
	tasks, err := cmd.app.Tasks.Find(ctx, cmd.listWhere)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	for _, t := range tasks {
		if err := iojson.WriteLine(c.Root().Writer, t); err != nil {
			return err
		}
	}
	return nil
}

func (cmd *TaskCmd) runProgress(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: taskdeck task progress <id> <percent>")
	}

	percent, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("invalid percent %q", c.Args().Get(1))
	}

	t, err := cmd.app.Tasks.SetProgress(ctx, c.Args().Get(0), percent)
	if err != nil {
		return err
	}
	return iojson.WriteLine(c.Root().Writer, t)
}

func (cmd *TaskCmd) runRemove(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: taskdeck task rm <id>")
	}

	if err := cmd.app.Tasks.Delete(ctx, c.Args().Get(0)); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(c.Root().Writer, "deleted")
	return nil
}

func (cmd *TaskCmd) runImport(ctx context.Context, c *cli.Command) error {
	tasks, err := cmd.importReader.Read()
	if err != nil {
		return err
	}

	imported, err := cmd.app.Tasks.Import(ctx, tasks)
	if err != nil {
		return err
	}

	for _, t := range imported {
		if err := iojson.WriteLine(c.Root().Writer, t); err != nil {
			return err
		}
	}
	return nil
}
