// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"castline/cli/internal/identity"
	"castline/cli/internal/keychain"
	"castline/cli/internal/logging"
	"castline/cli/internal/terminal"
)

var identityOpts struct {
	user     string
	purchase string
}

// identityCmd manages the identifiers that select the backend tier.
var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Manage the stored user and purchase identifiers",
	Long: `Identifiers are kept in the OS keychain. With both a user UUID and a purchase
ID stored, backend calls go to the privileged service and carry identity headers.`,
}

func keychainStore() (*identity.KeychainStore, error) {
	km, err := keychain.GetManager()
	if err != nil {
		pterm.Println("❌ Secure storage is not available on this system")
		return nil, err
	}
	return identity.NewKeychainStore(km), nil
}

var identitySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store identifiers in the keychain",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := keychainStore()
		if err != nil {
			return err
		}
		id := identity.Identity{
			UserUUID:   strings.TrimSpace(identityOpts.user),
			PurchaseID: strings.TrimSpace(identityOpts.purchase),
		}
		if id.PurchaseID == "" && !cmd.Flags().Changed("purchase-id") {
			prompt := "Purchase ID (leave empty for none): "
			id.PurchaseID, err = terminal.ReadSecret(os.Stdin, os.Stdout, prompt)
			if err != nil {
				return err
			}
			if terminal.IsInteractive(os.Stdout) {
				terminal.ClearPreviousLines(os.Stdout, terminal.LinesFor(len(prompt), terminal.Width(os.Stdout)))
			}
		}
		if err := store.Save(cmd.Context(), id); err != nil {
			return err
		}
		printIdentity(id)
		return nil
	},
}

var identityShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show stored identifiers (masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := keychainStore()
		if err != nil {
			return err
		}
		id, err := store.Identity(cmd.Context())
		if err != nil {
			return err
		}
		printIdentity(id)
		return nil
	},
}

var identityClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove stored identifiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := keychainStore()
		if err != nil {
			return err
		}
		if err := store.Clear(cmd.Context()); err != nil {
			return err
		}
		pterm.Println("✅ Stored identifiers have been removed")
		return nil
	},
}

func printIdentity(id identity.Identity) {
	show := func(v string) string {
		if v == "" {
			return pterm.NewStyle(pterm.FgGray).Sprint("(not set)")
		}
		return logging.MaskID(v)
	}
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ User UUID:   ") + show(id.UserUUID))
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Purchase ID: ") + show(id.PurchaseID))
	tier := "default"
	if id.Entitled() {
		tier = "privileged"
	}
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Backend:     ") + tier)
}

func init() {
	identitySetCmd.Flags().StringVar(&identityOpts.user, "user-uuid", "", "User UUID")
	identitySetCmd.Flags().StringVar(&identityOpts.purchase, "purchase-id", "", "Purchase ID (prompted without echo when omitted)")
	identityCmd.AddCommand(identitySetCmd, identityShowCmd, identityClearCmd)
	rootCmd.AddCommand(identityCmd)
}
