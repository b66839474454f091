package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// WhoamiCommand creates the whoami command
func WhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the authenticated user and enrolled courses",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			apiClient, _, cleanup, err := newAPI(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			info, err := apiClient.GetUser(ctx)
			if err != nil {
				return fmt.Errorf("fetching user: %w", err)
			}
			fmt.Println(renderUser(info))
			return nil
		},
	}
}
