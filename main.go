package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskdeck/internal/commands"
	"github.com/colonyops/taskdeck/internal/core/config"
	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/colonyops/taskdeck/internal/core/logging"
	"github.com/colonyops/taskdeck/internal/data/db"
	"github.com/colonyops/taskdeck/internal/data/stores"
	"github.com/colonyops/taskdeck/internal/deck"
	"github.com/colonyops/taskdeck/internal/deck/sweep"
	"github.com/colonyops/taskdeck/pkg/iojson"
	"github.com/colonyops/taskdeck/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

// eventBuffer bounds events queued for dispatch before they are dropped.
const eventBuffer = 64

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		deckApp   = &deck.App{}
		database  *db.DB
		bgCancel  context.CancelFunc
		bus       *eventbus.EventBus
		busDone   = make(chan struct{})
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "taskdeck",
		Usage:     "Reorder checklists and a focus queue over a shared task store",
		UsageText: "taskdeck [global options] command [command options]",
		Description: `Taskdeck keeps per-task checklists and a small focus queue in priority order.

Every reorder is applied locally first and then written with a conditional
write. When another client changed the list in the meantime, the edit is
replayed against the fresh copy or discarded, depending on the configured
reconcile policy.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("TASKDECK_LOG_LEVEL"),
				Value:       "warn",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to stderr)",
				Sources:     cli.EnvVars("TASKDECK_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.BoolFlag{
				Name:        "log-pretty",
				Usage:       "human-readable logs when stderr is a terminal",
				Sources:     cli.EnvVars("TASKDECK_LOG_PRETTY"),
				Destination: &flags.LogPretty,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("TASKDECK_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("TASKDECK_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.BoolFlag{
				Name:        "recover-db",
				Usage:       "move a corrupt database aside and start a new one",
				Destination: &flags.RecoverDB,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogOptions())
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			logging.Install(logger)
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return ctx, fmt.Errorf("create data dir: %w", err)
			}

			// Open database connection
			dbOpts := db.DefaultOpenOptions()
			dbOpts.MaxOpenConns = cfg.Database.MaxOpenConns
			dbOpts.MaxIdleConns = cfg.Database.MaxIdleConns
			dbOpts.BusyTimeout = cfg.Database.BusyTimeout
			dbOpts.PingRetries = cfg.Database.PingRetries
			database, err = db.Open(cfg.DataDir, dbOpts)
			if err != nil && flags.RecoverDB && stores.IsCorruptionError(err) {
				backup, rerr := stores.RecoverFromCorruption(cfg.DataDir)
				if rerr != nil {
					return ctx, fmt.Errorf("recover database: %w", rerr)
				}
				log.Warn().Str("backup", backup).Msg("moved corrupt database aside")
				database, err = db.Open(cfg.DataDir, dbOpts)
			}
			if err != nil {
				if stores.IsCorruptionError(err) {
					return ctx, fmt.Errorf("open database: %w (rerun with --recover-db to move it aside)", err)
				}
				return ctx, fmt.Errorf("open database: %w", err)
			}

			bgCtx, cancel := context.WithCancel(context.Background())
			bgCancel = cancel

			bus = eventbus.New(eventBuffer)
			eventbus.NewNotificationRouter(bus).Register()
			eventbus.RegisterDebugLogger(bus, logging.Component("eventbus"))
			go func() {
				defer close(busDone)
				bus.Start(bgCtx)
			}()

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*deckApp = *deck.NewApp(cfg, database, bus, logging.Component("deck"))

			// Start background KV sweep goroutine
			go sweep.Start(bgCtx, deckApp.KV, cfg.SweepInterval, logging.Component("sweep"))

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			// Stop the event bus and background sweep, then record any
			// notifications still buffered before the database closes.
			if bgCancel != nil {
				bgCancel()
				<-busDone
				bus.Drain()
			}

			// Close database connection
			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			// Close log file
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.RegisterAll(app, flags, deckApp)

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		kind := deck.KindOf(runErr)
		_ = iojson.WriteError(os.Stderr, runErr.Error(), kind.String(), nil)
		exitCode = 1
	}

	os.Exit(exitCode)
}
