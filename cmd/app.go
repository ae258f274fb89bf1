package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"castline/cli/internal/config"
	"castline/cli/internal/dataclient"
	"castline/cli/internal/identity"
	"castline/cli/internal/keychain"
	"castline/cli/internal/logging"
)

// app is what a data command needs: configuration, a logger and the
// assembled data layer.
type app struct {
	cfg  config.Config
	log  *pterm.Logger
	data *dataclient.Client
}

func (a *app) Close() {
	if a.data != nil {
		_ = a.data.Close()
	}
}

// newApp loads config, builds the logger and opens the data layer. The
// keychain identity is used when available; otherwise calls are anonymous.
// Overrides adjust the loaded config before anything is opened.
func newApp(cmd *cobra.Command, overrides ...func(*config.Config)) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(&cfg)
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	log := logging.New(level)

	var provider identity.Provider = identity.Static{}
	if km, err := keychain.GetManager(); err == nil {
		provider = identity.NewKeychainStore(km)
	} else {
		log.Debug("keychain unavailable, continuing without identity", log.Args("error", err))
	}

	data, err := dataclient.New(cmd.Context(), cfg, dataclient.Deps{
		Identity:  provider,
		Logger:    log,
		UserAgent: userAgent(),
	})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, data: data}, nil
}
