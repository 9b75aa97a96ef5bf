package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/critter/internal/engine"
	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/ops"
	"github.com/hpungsan/critter/internal/report"
	"github.com/hpungsan/critter/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(eng *engine.Engine, logger *log.Logger) *cli.App {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	app := &cli.App{
		Name:    "critter",
		Usage:   "Collect, hatch, breed and evolve creatures",
		Version: Version,
		Commands: []*cli.Command{
			statusCmd(eng),
			listCmd(eng),
			seenCmd(eng),
			photoCmd(eng),
			openCmd(eng),
			eggsCmd(eng),
			hatchCmd(eng),
			warmCmd(eng),
			evolveCmd(eng),
			breedCmd(eng),
			cooldownsCmd(eng),
			recycleCmd(eng),
			buyCmd(eng),
			exportCmd(eng),
			importCmd(eng),
			serveCmd(eng, logger),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// statusCmd creates the status command.
func statusCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show balances and collection counts",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "markdown", Aliases: []string{"m"}, Usage: "Print the full markdown report instead of JSON"},
			&cli.StringFlag{Name: "section", Aliases: []string{"s"}, Usage: "Only this report section (implies --markdown)"},
		},
		Action: func(c *cli.Context) error {
			p := eng.Presenter()
			if !c.Bool("markdown") && !c.IsSet("section") {
				output, err := p.Status(c.Context)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(output)
			}

			rep, err := report.Build(c.Context, p)
			if err != nil {
				return outputError(err)
			}
			md := rep.Markdown()
			if section := c.String("section"); section != "" {
				var ok bool
				if md, ok = report.Extract(md, section); !ok {
					return outputError(errors.NewNotFound("section", section))
				}
			}
			_, err = io.WriteString(os.Stdout, md)
			return err
		},
	}
}

// listCmd creates the list command.
func listCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List collected creatures",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "species", Usage: "Filter by species ID"},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Filter by type (e.g. fire)"},
			&cli.BoolFlag{Name: "unseen", Usage: "Only creatures not opened yet"},
			&cli.BoolFlag{Name: "rare", Usage: "Only rare variants"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum results"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			output, err := eng.Presenter().ListCreatures(c.Context, ops.ListCreaturesInput{
				SpeciesID:  c.Int("species"),
				Type:       c.String("type"),
				UnseenOnly: c.Bool("unseen"),
				RareOnly:   c.Bool("rare"),
				Limit:      c.Int("limit"),
				Offset:     c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// seenCmd creates the seen command.
func seenCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "seen",
		Usage:     "Mark a creature as seen",
		ArgsUsage: "<instance-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidInput("exactly one instance id is required"))
			}
			output, err := eng.Presenter().MarkSeen(c.Context, ops.MarkSeenInput{InstanceID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// photoCmd creates the photo command.
func photoCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "photo",
		Usage:     "Record a photo of a creature",
		ArgsUsage: "<instance-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "image", Aliases: []string{"i"}, Required: true, Usage: "Image URL or path"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidInput("exactly one instance id is required"))
			}
			output, err := eng.Presenter().CapturePhoto(c.Context, ops.CapturePhotoInput{
				InstanceID: c.Args().First(),
				ImageRef:   c.String("image"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// openCmd creates the open command.
func openCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:  "open",
		Usage: "Open a capsule",
		Action: func(c *cli.Context) error {
			output, err := eng.Presenter().OpenCapsule(c.Context, ops.OpenCapsuleInput{})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// eggsCmd creates the eggs command.
func eggsCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:  "eggs",
		Usage: "List eggs and their incubation progress",
		Action: func(c *cli.Context) error {
			output, err := eng.Presenter().ListEggs(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// hatchCmd creates the hatch command.
func hatchCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "hatch",
		Usage:     "Hatch a ready egg",
		ArgsUsage: "<index|egg-id>",
		Action: func(c *cli.Context) error {
			index, id, err := parseEggRef(c.Args().First())
			if err != nil {
				return outputError(err)
			}
			output, err := eng.Presenter().HatchEgg(c.Context, ops.HatchEggInput{Index: index, EggID: id})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// warmCmd creates the warm command.
func warmCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "warm",
		Usage:     "Warm an egg up to shorten its hatch time",
		ArgsUsage: "<index|egg-id>",
		Action: func(c *cli.Context) error {
			index, id, err := parseEggRef(c.Args().First())
			if err != nil {
				return outputError(err)
			}
			output, err := eng.Presenter().WarmEgg(c.Context, ops.WarmEggInput{Index: index, EggID: id})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// evolveCmd creates the evolve command.
func evolveCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "evolve",
		Usage:     "Consume creatures of one species to evolve them",
		ArgsUsage: "<instance-id> <instance-id>...",
		Action: func(c *cli.Context) error {
			output, err := eng.Presenter().RequestEvolution(c.Context, ops.RequestEvolutionInput{InstanceIDs: c.Args().Slice()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// breedCmd creates the breed command.
func breedCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "breed",
		Usage:     "Breed two creatures of the same species into an egg",
		ArgsUsage: "<instance-id> <instance-id>",
		Action: func(c *cli.Context) error {
			output, err := eng.Presenter().RequestBreeding(c.Context, ops.RequestBreedingInput{InstanceIDs: c.Args().Slice()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// cooldownsCmd creates the cooldowns command.
func cooldownsCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "cooldowns",
		Usage:     "Show breeding cooldowns (all active ones when no IDs are given)",
		ArgsUsage: "[instance-id...]",
		Action: func(c *cli.Context) error {
			output, err := eng.Presenter().BreedingStatus(c.Context, ops.BreedingStatusInput{InstanceIDs: c.Args().Slice()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// recycleCmd creates the recycle command.
func recycleCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "recycle",
		Usage:     "Trade creatures for tokens",
		ArgsUsage: "<instance-id>...",
		Action: func(c *cli.Context) error {
			output, err := eng.Presenter().RecycleCreatures(c.Context, ops.RecycleCreaturesInput{InstanceIDs: c.Args().Slice()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// buyCmd creates the buy command and its shop items.
func buyCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:  "buy",
		Usage: "Spend tokens in the shop",
		Subcommands: []*cli.Command{
			{
				Name:  "capsule",
				Usage: "Buy one capsule",
				Action: func(c *cli.Context) error {
					output, err := eng.Presenter().BuyCapsule(c.Context, ops.BuyCapsuleInput{})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "rare",
				Usage: "Buy a random rare variant",
				Action: func(c *cli.Context) error {
					output, err := eng.Presenter().BuyRareVariant(c.Context, ops.BuyRareVariantInput{})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// exportCmd creates the export command.
func exportCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the game to a JSON file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file path (default: ~/.critter/exports/critter-<timestamp>.json)"},
		},
		Action: func(c *cli.Context) error {
			output, err := eng.Presenter().Export(c.Context, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a game from a JSON export",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Input file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "replace", Usage: "Import mode: replace|merge"},
		},
		Action: func(c *cli.Context) error {
			output, err := eng.Presenter().Import(c.Context, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(eng *engine.Engine, logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the game with the web UI until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Address to bind (default from config)"},
			&cli.IntFlag{Name: "port", Usage: "Port to listen on (default from config)"},
		},
		Action: func(c *cli.Context) error {
			cfg := eng.Config()
			bind := cfg.WebBind
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			port := cfg.WebPort
			if c.IsSet("port") {
				port = c.Int("port")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, eng, bind, port, logger)
		},
	}
}

// serve runs the timers, the websocket hub and the HTTP server until ctx ends.
func serve(ctx context.Context, eng *engine.Engine, bind string, port int, logger *log.Logger) error {
	hub := web.NewHub(logger)
	eng.State().AddObserver(hub)
	eng.OnProgress(hub.Progress)
	go hub.Run(ctx)

	if err := eng.Start(ctx); err != nil {
		return err
	}

	srv := web.NewServer(web.Options{
		Presenter: eng.Presenter(),
		Hub:       hub,
		Version:   Version,
		Bind:      bind,
		Port:      port,
		Logger:    logger,
	})
	return web.Run(ctx, srv, logger)
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if gameErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", gameErr.Code, gameErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseEggRef reads an egg argument as an index, or as an egg ID when it is
// not a number.
func parseEggRef(arg string) (int, string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return 0, "", errors.NewInvalidInput("an egg index or egg id is required")
	}
	if i, err := strconv.Atoi(arg); err == nil {
		return i, "", nil
	}
	return 0, arg, nil
}
