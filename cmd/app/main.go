package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/gts/internal"
	"github.com/starford/gts/internal/gtsops"
	pkgconfig "github.com/starford/gts/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	configPath := cmd.String("config")

	if cmd.IsSet("config") {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if paths := cmd.StringSlice("path"); len(paths) > 0 {
		cfg.Sources.Paths = paths
	}
	return cfg, nil
}

// cliLogger keeps stdout clean for JSON results.
func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func newOps(cmd *cli.Command) (*gtsops.Ops, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return gtsops.NewFromPaths(cfg.Sources.Paths, cfg.Entity, cfg.Compat, cliLogger())
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func requireArgs(cmd *cli.Command, n int, usage string) error {
	if cmd.Args().Len() != n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func pathFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "path",
		Aliases: []string{"p"},
		Usage:   "Artifact root to load (repeatable, overrides config)",
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "gts",
		Usage: "Global Type System registry: identifiers, schemas, instances, and the operations over them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "validate-id",
				Usage:     "Check one or more identifiers against the grammar",
				ArgsUsage: "<id> [<id> ...]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() == 0 {
						return fmt.Errorf("usage: validate-id <id> [<id> ...]")
					}
					reports := make([]gtsops.IDReport, 0, cmd.Args().Len())
					allValid := true
					for _, raw := range cmd.Args().Slice() {
						rep := gtsops.ValidateID(raw)
						allValid = allValid && rep.Valid
						reports = append(reports, rep)
					}
					if err := printJSON(reports); err != nil {
						return err
					}
					if !allValid {
						return cli.Exit("", 1)
					}
					return nil
				},
			},
			{
				Name:      "parse",
				Usage:     "Decompose an identifier into its named segments",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := requireArgs(cmd, 1, "parse <id>"); err != nil {
						return err
					}
					rep, err := gtsops.ParseID(cmd.Args().First())
					if err != nil {
						return err
					}
					return printJSON(rep)
				},
			},
			{
				Name:      "uuid",
				Usage:     "Derive the deterministic UUID of an identifier",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := requireArgs(cmd, 1, "uuid <id>"); err != nil {
						return err
					}
					u, err := gtsops.UUID(cmd.Args().First())
					if err != nil {
						return err
					}
					fmt.Println(u)
					return nil
				},
			},
			{
				Name:      "wildcard-match",
				Usage:     "Match an identifier against a wildcard pattern",
				ArgsUsage: "<id> <pattern>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := requireArgs(cmd, 2, "wildcard-match <id> <pattern>"); err != nil {
						return err
					}
					rep, err := gtsops.WildcardMatch(cmd.Args().Get(0), cmd.Args().Get(1))
					if err != nil {
						return err
					}
					if err := printJSON(rep); err != nil {
						return err
					}
					if !rep.Match {
						return cli.Exit("", 1)
					}
					return nil
				},
			},
			{
				Name:      "find",
				Usage:     "List loaded entities matching a pattern",
				ArgsUsage: "<pattern>",
				Flags:     []cli.Flag{pathFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := requireArgs(cmd, 1, "find <pattern>"); err != nil {
						return err
					}
					ops, err := newOps(cmd)
					if err != nil {
						return err
					}
					matches, err := ops.Find(cmd.Args().First())
					if err != nil {
						return err
					}
					ids := make([]string, 0, len(matches))
					for _, e := range matches {
						ids = append(ids, e.ID.String())
					}
					return printJSON(ids)
				},
			},
			{
				Name:      "validate-instance",
				Usage:     "Validate a loaded instance against its declared schema",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{pathFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := requireArgs(cmd, 1, "validate-instance <id>"); err != nil {
						return err
					}
					ops, err := newOps(cmd)
					if err != nil {
						return err
					}
					rep, err := ops.ValidateInstance(cmd.Args().First())
					if err != nil {
						return err
					}
					if err := printJSON(rep); err != nil {
						return err
					}
					if !rep.Valid {
						return cli.Exit("", 1)
					}
					return nil
				},
			},
			{
				Name:      "schema-graph",
				Usage:     "Build the reference graph rooted at an identifier",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{pathFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := requireArgs(cmd, 1, "schema-graph <id>"); err != nil {
						return err
					}
					ops, err := newOps(cmd)
					if err != nil {
						return err
					}
					g, err := ops.SchemaGraph(cmd.Args().First())
					if err != nil {
						return err
					}
					return printJSON(g)
				},
			},
			{
				Name:      "compatibility",
				Usage:     "Compare two minor versions of a schema",
				ArgsUsage: "<old-id> <new-id>",
				Flags:     []cli.Flag{pathFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := requireArgs(cmd, 2, "compatibility <old-id> <new-id>"); err != nil {
						return err
					}
					ops, err := newOps(cmd)
					if err != nil {
						return err
					}
					res, err := ops.Compatibility(cmd.Args().Get(0), cmd.Args().Get(1))
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
			{
				Name:      "cast",
				Usage:     "Convert an instance to another minor version of its schema",
				ArgsUsage: "<instance-id> <target-schema-id>",
				Flags:     []cli.Flag{pathFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := requireArgs(cmd, 2, "cast <instance-id> <target-schema-id>"); err != nil {
						return err
					}
					ops, err := newOps(cmd)
					if err != nil {
						return err
					}
					res, err := ops.Cast(cmd.Args().Get(0), cmd.Args().Get(1))
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
			{
				Name:      "query",
				Usage:     "Filter entities with a pattern plus attribute predicates",
				ArgsUsage: "'<pattern>[<path><op><value>, ...]'",
				Flags:     []cli.Flag{pathFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := requireArgs(cmd, 1, "query '<pattern>[<predicates>]'"); err != nil {
						return err
					}
					ops, err := newOps(cmd)
					if err != nil {
						return err
					}
					res, err := ops.Query(cmd.Args().First())
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
			{
				Name:      "attr",
				Usage:     "Resolve an '<id>@<path>' reference inside an entity's content",
				ArgsUsage: "<id>@<path>",
				Flags:     []cli.Flag{pathFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := requireArgs(cmd, 1, "attr <id>@<path>"); err != nil {
						return err
					}
					ops, err := newOps(cmd)
					if err != nil {
						return err
					}
					res := ops.Attr(cmd.Args().First())
					if err := printJSON(res); err != nil {
						return err
					}
					if !res.Resolved {
						return cli.Exit("", 1)
					}
					return nil
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the registry tools over the Model Context Protocol on stdio",
				Flags:  []cli.Flag{pathFlag()},
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
