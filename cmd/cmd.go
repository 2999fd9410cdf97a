// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes configuration and the credential database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config file and initialize the credential database",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// serveCommand runs the conversion HTTP service
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the conversion HTTP service",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to bind",
			},
		},
		Action: r.Serve,
	}
}

// convertCommand drives a full conversion from the terminal
func convertCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "Convert a library selection between platforms",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "source",
				Aliases:  []string{"s"},
				Usage:    "Source platform (spotify or ytmusic)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "target",
				Aliases:  []string{"t"},
				Usage:    "Target platform (spotify or ytmusic)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "tracks",
				Usage: "Comma-separated track ids to convert (defaults to every fetched track)",
			},
			&cli.BoolFlag{
				Name:  "review",
				Usage: "Review matches interactively before creating the playlist",
			},
			&cli.StringFlag{
				Name:    "report",
				Aliases: []string{"o"},
				Usage:   "Write a match report (.csv, .md, or .txt)",
			},
			&cli.StringFlag{
				Name:  "save",
				Usage: "Save the raw match report JSON to this path",
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print auth URLs instead of opening a browser",
			},
		},
		Action: r.Convert,
	}
}

// matchCommand runs a one-off match query
func matchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "match",
		Usage: "Match a single track against a target platform",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "title",
				Usage:    "Track title",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "artist",
				Usage:    "Track artist",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "target",
				Aliases:  []string{"t"},
				Usage:    "Target platform (spotify or ytmusic)",
				Required: true,
			},
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
		Action: r.MatchTrack,
	}
}

// reportCommand renders a saved match report
func reportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Render a saved match report JSON as CSV, Markdown, or text",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Path to the saved match report JSON",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output path; format is chosen from the extension",
			},
		},
		Action: r.Report,
	}
}
