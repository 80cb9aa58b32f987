// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// configFlag is shared by every command that reads configuration.
func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// routingFlags select which identities a run may spend budget from.
func routingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "group",
			Usage: "Restrict identity selection to this group",
		},
		&cli.StringFlag{
			Name:  "env",
			Usage: "Restrict identity selection to this environment",
		},
		&cli.StringFlag{
			Name:  "identity",
			Usage: "Force a specific identity, bypassing group filters",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Delete target videos absent from the source when amending",
		},
	}
}

// planFlags control batch creation and output for the copy/merge/split
// subcommands.
func planFlags() []cli.Flag {
	flags := []cli.Flag{
		configFlag(),
		&cli.StringFlag{
			Name:  "name",
			Usage: "Batch name shown in listings",
		},
		&cli.BoolFlag{
			Name:  "plan",
			Usage: "Journal the batch without running it",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Classify every task but perform no remote writes",
		},
		&cli.BoolFlag{
			Name:  "no-dedup",
			Usage: "Always create fresh targets, skipping overlap detection",
		},
		&cli.StringFlag{
			Name:  "summary-file",
			Usage: "Write the run summary JSON to this path",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output the run summary as JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		},
	}
	return append(flags, routingFlags()...)
}

// batchCommand handles journaled batch operations
func batchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "batch",
		Aliases: []string{"b"},
		Usage:   "Journal and run playlist batches",
		Commands: []*cli.Command{
			{
				Name:      "copy",
				Usage:     "Copy each source playlist to a fresh or matching target",
				ArgsUsage: "<source>...",
				Flags:     planFlags(),
				Action:    r.BatchCopy,
			},
			{
				Name:      "merge",
				Usage:     "Concatenate several source playlists into one target",
				ArgsUsage: "<source> <source>...",
				Flags: append(planFlags(),
					&cli.StringFlag{
						Name:  "title",
						Usage: "Title for the merged target playlist",
					},
				),
				Action: r.BatchMerge,
			},
			{
				Name:  "split",
				Usage: "Split one source playlist into fixed-size chunks",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "source",
					},
				},
				Flags: append(planFlags(),
					&cli.IntFlag{
						Name:     "chunk-size",
						Usage:    "Maximum videos per chunk",
						Required: true,
					},
				),
				Action: r.BatchSplit,
			},
			{
				Name:  "resume",
				Usage: "Clear a pause marker and drain a batch's remaining tasks",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: append([]cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "summary-file",
						Usage: "Write the run summary JSON to this path",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the run summary as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				}, routingFlags()...),
				Action: r.BatchResume,
			},
			{
				Name:  "status",
				Usage: "Show a batch's counters and per-task journal entries",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.BatchStatus,
			},
			{
				Name:  "list",
				Usage: "List journaled batches, newest first",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.BatchList,
			},
			{
				Name:  "cleanup",
				Usage: "Delete finished batches past the retention window",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "days",
						Usage: "Retention window in days (default from config)",
					},
				},
				Action: r.BatchCleanup,
			},
		},
	}
}

// quotaCommand reports the unit ledger state
func quotaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "quota",
		Usage: "Daily unit budget accounting",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show per-identity consumption and time until reset",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.QuotaStatus,
			},
		},
	}
}

// identityCommand inspects the configured credential pool
func identityCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "identity",
		Aliases: []string{"id"},
		Usage:   "Configured identity pool",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List identities with group, environment and remaining budget",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.IdentityList,
			},
		},
	}
}

// exportCommand handles bulk playlist exports through the extractor
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export playlist JSON through the zero-cost extractor",
		ArgsUsage: "<source>...",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: playlist_export_{timestamp})",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent export workers",
				Value: 5,
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Bypass the local playlist cache",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the manifest as JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Export,
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a starter config.toml from the embedded template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive batch runs.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for journaled batches",
		Flags:   append([]cli.Flag{configFlag()}, routingFlags()...),
		Action:  r.TUI,
	}
}
