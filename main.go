package main

import (
	"context"
	"log"
	"os"

	"github.com/rubiojr/edstream/cmd"
	"github.com/rubiojr/edstream/pkg/config"
	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "edstream",
		Usage: "Live events from Ed discussion forums",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file path",
				Value: getDefaultConfigPathOrExit(),
			},
		},
		Commands: []*cli.Command{
			cmd.InitCommand(),
			cmd.ListenCommand(),
			cmd.WhoamiCommand(),
			cmd.CourseCommand(),
			cmd.ThreadCommand(),
			cmd.ThreadsCommand(),
			cmd.RenewCommand(),
			cmd.VersionCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func getDefaultConfigPathOrExit() string {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		log.Fatalf("Failed to get default config path: %v", err)
	}
	return path
}
