package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/weberc2/fsck/pkg/logger"
	"github.com/weberc2/fsck/pkg/types"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

// run is the only place that decides the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	config, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: loading config: %v\n", err)
		return 1
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(stderr, "ERROR: validating config: %v\n", err)
		return 1
	}
	log, err := logger.New(config.LogLevel, config.LogFormat, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: building logger: %v\n", err)
		return 1
	}

	r := runner{config: config, stdout: stdout, stderr: stderr, now: time.Now}
	return r.run(logger.Set(ctx, log), args)
}

func (r *runner) run(ctx context.Context, args []string) int {
	if err := r.app().RunContext(ctx, args); err != nil {
		logger.Get(ctx).Debug("run failed", "err", err.Error())
		printErr(r.stderr, err)
		return 1
	}
	return 0
}

func (r *runner) app() *cli.App {
	return &cli.App{
		Name:      appName,
		Usage:     "check and repair xv6 file system images",
		ArgsUsage: "<image>",
		Writer:    r.stdout,
		ErrWriter: r.stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "repair",
				Aliases: []string{"r"},
				Usage: "relink allocated but unreachable inodes under " +
					"lost+found",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "report every violation rather than the first",
			},
		},
		Action: r.checkAction,
		Commands: []*cli.Command{{
			Name:      "inspect",
			Usage:     "print the superblock, geometry and inode census",
			ArgsUsage: "<image>",
			Action:    r.inspectAction,
		}, {
			Name:      "mkfs",
			Usage:     "write a fresh image with a root and lost+found",
			ArgsUsage: "<image>",
			Flags: []cli.Flag{
				&cli.Int64Flag{
					Name:  "size",
					Usage: "total blocks in the image",
					Value: 1024,
				},
				&cli.Int64Flag{
					Name:  "ninodes",
					Usage: "number of inodes in the inode table",
					Value: 200,
				},
				&cli.StringFlag{
					Name: "lost-found",
					Usage: "name of the lost+found directory (defaults to " +
						"the configured name; `-` for none)",
				},
			},
			Action: r.mkfsAction,
		}, {
			Name:  "reports",
			Usage: "commands for the configured run report store",
			Subcommands: []*cli.Command{{
				Name:      "list",
				Usage:     "print the stored reports for an image as JSON",
				ArgsUsage: "<image>",
				Action:    r.listReportsAction,
			}, {
				Name:  "table",
				Usage: "commands for the postgres report table",
				Subcommands: []*cli.Command{{
					Name:    "ensure",
					Aliases: []string{"make", "create"},
					Usage:   "create the table if it doesn't already exist",
					Action: r.withPG(func(store *pgStore) error {
						return store.EnsureTable()
					}),
				}, {
					Name:    "drop",
					Aliases: []string{"delete", "destroy"},
					Usage:   "drop the postgres table",
					Action: r.withPG(func(store *pgStore) error {
						return store.DropTable()
					}),
				}, {
					Name:  "reset",
					Usage: "delete and recreate the postgres table",
					Action: r.withPG(func(store *pgStore) error {
						return store.ResetTable()
					}),
				}},
			}},
		}},
	}
}

// printErr writes one diagnostic line per violation and falls back to the
// raw error for everything else.
func printErr(w io.Writer, err error) {
	for _, err := range flatten(err) {
		var e *types.Error
		if errors.As(err, &e) {
			fmt.Fprintln(w, e.Kind.Message())
			continue
		}
		fmt.Fprintf(w, "ERROR: %v\n", err)
	}
}

func flatten(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
