package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"wikisync/internal/synccmd"
)

func main() {
	// Secrets (REDIS_PASSWORD, AWS credentials) come from the environment;
	// a missing .env is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "wikisync",
		Usage: "sync wiki content from upstream sources into the article store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to the YAML config file",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "only log errors",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "run a sync strategy against one source",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source",
						Aliases:  []string{"s"},
						Usage:    "source name from the config file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "strategy",
						Value: "full",
						Usage: "full | category | incremental | search | refresh",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "category name (strategy category)",
					},
					&cli.StringFlag{
						Name:  "query",
						Usage: "search query (strategy search)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "cap the number of candidate pages (0 = all)",
					},
					&cli.StringFlag{
						Name:  "since",
						Usage: "incremental watermark override (RFC 3339 or YYYY-MM-DD)",
					},
				},
				Action: synccmd.SyncAction,
			},
			{
				Name:      "page",
				Usage:     "sync a single page and print the stored article",
				ArgsUsage: "<source> <slug>",
				Action:    synccmd.PageAction,
			},
			{
				Name:  "runs",
				Usage: "list recent sync runs for a source",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source",
						Aliases:  []string{"s"},
						Usage:    "source name from the config file",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "number of runs to show",
					},
				},
				Action: synccmd.RunsAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
