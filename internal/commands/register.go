package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskdeck/internal/deck"
)

// RegisterAll adds every command group to root. app is typically an empty
// pointer filled in by root's Before hook.
func RegisterAll(root *cli.Command, flags *Flags, app *deck.App) *cli.Command {
	root = NewTaskCmd(flags, app).Register(root)
	root = NewQueueCmd(flags, app).Register(root)
	root = NewChecklistCmd(flags, app).Register(root)
	root = NewNotificationsCmd(flags, app).Register(root)
	root = NewDBCmd(flags, app).Register(root)
	root = NewConfigCmd(flags, app).Register(root)
	return root
}
