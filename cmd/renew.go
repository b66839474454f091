package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// RenewCommand creates the renew command
func RenewCommand() *cli.Command {
	return &cli.Command{
		Name:  "renew",
		Usage: "Renew the stream token and store it in the token cache",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			apiClient, store, cleanup, err := newAPI(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			token, err := apiClient.RenewToken(ctx)
			if err != nil {
				return err
			}
			if err := store.SetStreamToken(token); err != nil {
				return fmt.Errorf("storing stream token: %w", err)
			}
			if cfg.TokenCacheEnabled() {
				fmt.Printf("Stream token renewed and cached in %s\n", cfg.TokenCache.Path)
			} else {
				fmt.Println("Stream token renewed (token cache disabled)")
			}
			return nil
		},
	}
}
