// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the Castline data layer.
// Each subcommand drives one library operation against the configured backends:
// table reads and writes through the query composer, backend calls through the
// request router, and streamed generations through the SSE decoder.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"castline/cli/internal/backend"
	"castline/cli/internal/config"
	cerrors "castline/cli/internal/errors"
	"castline/cli/internal/identity"
	"castline/cli/internal/logging"
)

var (
	showVersion bool
	logLevel    string
	configPath  string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "castline",
	Short:         "Castline data-access CLI",
	Long:          `Castline reads and writes chat data through the cached query layer and calls the Castline backend API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !showVersion {
			return cmd.Help()
		}
		fmt.Printf("castline %s\n", Version)

		// Backend version is best effort; an unreachable service is not an error here.
		cfg, err := loadConfig()
		if err != nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
		defer cancel()
		be := backend.New(backend.Options{
			DefaultURL:    cfg.API.DefaultURL,
			PrivilegedURL: cfg.API.PrivilegedURL,
			Identity:      identity.Static{},
			Timeout:       2 * time.Second,
			UserAgent:     userAgent(),
		})
		backendVersion := "unknown"
		if res, err := be.Do(ctx, backend.Descriptor{Endpoint: "/version"}); err == nil {
			var out struct {
				Version string `json:"version"`
			}
			if res.Decode(&out) == nil && out.Version != "" {
				backendVersion = out.Version
			}
		}
		fmt.Printf("backend %s\n", backendVersion)
		return nil
	},
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Println(logging.PresentError("", err))
		if cerrors.KindOf(err) == cerrors.Config {
			pterm.Println("   Run 'castline config show' to inspect the effective configuration.")
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI and backend version information")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: XDG config dir)")
}

// loadConfig reads the config file named by --config, or the default one.
func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

func userAgent() string { return "castline-cli/" + Version }
