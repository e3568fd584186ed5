package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/slipbox/internal"
	"github.com/starford/slipbox/internal/apperr"
)

var version = "dev"

// exitCheckFailed is the exit code of check when it finds errors, or warnings in strict mode.
const exitCheckFailed = 65

func withApp(fn func(ctx context.Context, cmd *cli.Command, app *internal.App) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		var level slog.Level
		if err := level.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return fmt.Errorf("invalid log level %q", cmd.String("log-level"))
		}
		app, err := internal.Open(ctx, internal.WithLogLevel(level))
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, cmd, app)
	}
}

func build(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	opts := internal.BuildOptions{NoOutput: cmd.Bool("no-output")}
	if !cmd.Bool("watch") {
		return app.Build(ctx, opts)
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Watch(ctx, opts)
}

func check(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	return app.Check(ctx, internal.CheckOptions{
		Enable:  cmd.StringSlice("enable"),
		Disable: cmd.StringSlice("disable"),
		Strict:  cmd.Bool("strict"),
	})
}

func info(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	if cmd.Args().Len() != 1 {
		return errors.New("info requires exactly one note id")
	}
	id, err := strconv.Atoi(cmd.Args().First())
	if err != nil || id < 0 {
		return fmt.Errorf("invalid note id %q", cmd.Args().First())
	}
	return app.Info(ctx, id)
}

func newIDs(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	return app.New(ctx, int(cmd.Int("n")))
}

func serveMCP(_ context.Context, _ *cli.Command, app *internal.App) error {
	return app.ServeMCP(version)
}

func initRoot(_ context.Context, cmd *cli.Command) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	return internal.Init(wd, internal.InitOptions{
		Config: cmd.Args().First(),
		Quiet:  cmd.Bool("quiet"),
	}, os.Stdout)
}

func formats(_ context.Context, _ *cli.Command) error {
	return internal.Formats(os.Stdout)
}

func main() {
	logger, _ := internal.NewLogger("", slog.LevelInfo)
	slog.SetDefault(logger)

	cmd := &cli.Command{
		Name:    "slipbox",
		Usage:   "Zettelkasten note index and static site generator",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Minimum level written to .slipbox/slipbox.log",
				Value:   "info",
				Sources: cli.EnvVars("SLIPBOX_LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Index new and changed notes, run checks and generate the site",
				Action: withApp(build),
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "no-output", Usage: "Update the index without generating the site"},
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Rebuild whenever a note changes"},
				},
			},
			{
				Name:   "check",
				Usage:  "Run consistency checks against the index",
				Action: withApp(check),
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "enable", Usage: "Enable a check, or all of them with \"all\""},
					&cli.StringSliceFlag{Name: "disable", Usage: "Disable a check, or all of them with \"all\""},
					&cli.BoolFlag{Name: "strict", Usage: "Treat warnings as errors"},
				},
			},
			{
				Name:      "init",
				Usage:     "Initialize a notes root in the current directory",
				ArgsUsage: "[config]",
				Action:    initRoot,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Do not print anything"},
				},
			},
			{
				Name:      "info",
				Usage:     "Show a note with its tags, links and citations",
				ArgsUsage: "<note-id>",
				Action:    withApp(info),
			},
			{
				Name:   "new",
				Usage:  "Print unused note ids",
				Action: withApp(newIDs),
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "n", Value: 1, Usage: "Number of ids"},
				},
			},
			{
				Name:   "formats",
				Usage:  "List supported note file patterns",
				Action: formats,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the index to MCP clients over stdio",
				Action: withApp(serveMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, apperr.ErrCheckFailed) {
			os.Exit(exitCheckFailed)
		}
		fmt.Fprintf(os.Stderr, "slipbox: %s\n", err)
		os.Exit(1)
	}
}
