package cmd

import (
	"fmt"
	"net/url"

	"github.com/rubiojr/edstream/pkg/api"
	"github.com/rubiojr/edstream/pkg/client"
	"github.com/rubiojr/edstream/pkg/config"
	"github.com/rubiojr/edstream/pkg/log"
	"github.com/rubiojr/edstream/pkg/tokenstore"
	"github.com/urfave/cli/v3"
)

// loadConfig reads the configuration named by --config and applies the
// debug settings from the flag and the file.
func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.Bool("debug") || cfg.Debug {
		log.SetGlobalDebug(true)
	}
	return cfg, nil
}

// openTokenStore returns the persistent token cache when enabled, falling
// back to an in-memory store.
func openTokenStore(cfg *config.Config) (tokenstore.Store, func(), error) {
	if !cfg.TokenCacheEnabled() {
		return tokenstore.NewMemory(cfg.Token), func() {}, nil
	}

	host := cfg.Host
	if u, err := url.Parse(cfg.APIBaseURL()); err == nil && u.Host != "" {
		host = u.Host
	}
	store, err := tokenstore.OpenSQLite(cfg.TokenCache.Path, host, cfg.Token)
	if err != nil {
		return nil, nil, fmt.Errorf("opening token cache: %w", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.ForService("cmd").Warnf("closing token cache: %v", err)
		}
	}, nil
}

// newClient builds a streaming client from the configuration.
func newClient(cfg *config.Config) (*client.Client, func(), error) {
	store, cleanup, err := openTokenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts := cfg.ClientOptions()
	opts.Tokens = store

	cl, err := client.New(opts)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("creating client: %w", err)
	}
	return cl, func() {
		_ = cl.Close()
		cleanup()
	}, nil
}

// newAPI builds a REST-only client for the one-shot commands.
func newAPI(cfg *config.Config) (*api.Client, tokenstore.Store, func(), error) {
	store, cleanup, err := openTokenStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return api.New(api.Options{
		BaseURL:     cfg.APIBaseURL(),
		TokenSource: store,
	}), store, cleanup, nil
}
