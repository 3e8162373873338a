// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package cloud provides the connection plumbing shared by every
// command that talks to the Quandela Cloud API: the --url/--platform
// flag block, token resolution, and client construction.
package cloud

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/pflag"

	"github.com/Quandela/Perceval-Interop/lib/config"
	"github.com/Quandela/Perceval-Interop/lib/ledger"
	"github.com/Quandela/Perceval-Interop/lib/remote"
	"github.com/Quandela/Perceval-Interop/lib/token"
)

// Connection is the embeddable parameter block for cloud commands. It
// implements cli.FlagBinder, so embedding it in a command's params
// struct contributes the --url and --platform flags.
type Connection struct {
	URL      string
	Platform string
}

// AddFlags registers the connection flags. Empty values fall back to
// the configuration at connect time.
func (c *Connection) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.URL, "url", "", "platform API base URL (default: configured URL)")
	flagSet.StringVar(&c.Platform, "platform", "", "target platform name (default: configured platform)")
}

// Session is an established cloud connection: the loaded config, the
// API client, and the job ledger.
type Session struct {
	Config      *config.Config
	Client      *remote.Client
	Ledger      *ledger.Ledger
	TokenSource string
}

// PlatformName resolves the target platform: the --platform flag when
// given, the configured default otherwise.
func (s *Session) PlatformName(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return s.Config.Cloud.Platform
}

// Connect loads the configuration, resolves the platform token, and
// builds the API client. A missing token is an error; commands that
// can work unauthenticated use [Connection.ConnectPublic].
func (c *Connection) Connect(logger *slog.Logger) (*Session, error) {
	return c.connect(logger, true)
}

// ConnectPublic is Connect for commands that can run without a token
// (platform details are public). A resolvable token is still attached;
// only its absence is tolerated.
func (c *Connection) ConnectPublic(logger *slog.Logger) (*Session, error) {
	return c.connect(logger, false)
}

func (c *Connection) connect(logger *slog.Logger, tokenRequired bool) (*Session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}

	accessToken, source, err := TokenStore(cfg).Resolve()
	if err != nil {
		if tokenRequired || !errors.Is(err, token.ErrNotFound) {
			return nil, err
		}
		accessToken, source = "", ""
	}

	baseURL := c.URL
	if baseURL == "" {
		baseURL = cfg.Cloud.URL
	}
	client, err := remote.NewClient(remote.ClientConfig{
		BaseURL:      baseURL,
		Token:        accessToken,
		HTTPClient:   &http.Client{Timeout: cfg.RequestTimeout()},
		PollInterval: cfg.PollInterval(),
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		Config:      cfg,
		Client:      client,
		Ledger:      ledger.Open(cfg.LedgerPath()),
		TokenSource: source,
	}, nil
}

// TokenStore returns the token store for the given configuration.
func TokenStore(cfg *config.Config) *token.Store {
	return &token.Store{
		SealedPath:   cfg.TokenPath(),
		IdentityPath: cfg.IdentityPath(),
		PlainPath:    cfg.Cloud.TokenFile,
	}
}
