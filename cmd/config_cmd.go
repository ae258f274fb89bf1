package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"castline/cli/internal/config"
	"castline/cli/internal/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect CLI configuration",
}

// configShowCmd prints the effective configuration with secrets masked.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p := configPath
		if p == "" {
			if p, err = config.Path(); err != nil {
				p = "(unavailable)"
			}
		}
		if cfg.Tables.DSN != "" {
			cfg.Tables.DSN = logging.Mask(cfg.Tables.DSN)
		}
		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint("# " + p))
		fmt.Println(string(b))
		if cfg.Tables.RESTKey != "" {
			pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint("# REST key set via CASTLINE_REST_KEY"))
		}
		if err := cfg.Validate(); err != nil {
			pterm.Warning.Println(err.Error())
		}
		return nil
	},
}

// configInitCmd writes the effective configuration to the config file so it
// can be edited. An existing file is left alone unless --force is given.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p := configPath
		if p == "" {
			if p, err = config.Path(); err != nil {
				return err
			}
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(p); err == nil && !force {
			pterm.Warning.Printfln("%s already exists; use --force to overwrite", p)
			return nil
		}
		if err := config.SaveFile(p, cfg); err != nil {
			return err
		}
		pterm.Success.Printfln("Wrote %s", p)
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
