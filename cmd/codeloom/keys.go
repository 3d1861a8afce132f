package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"codeloom/internal/config"
)

var keyProviders = []string{"openai", "anthropic", "gemini"}

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage provider API keys in the OS keyring",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <provider>",
		Short: "Store an API key (prompted, not echoed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := strings.ToLower(args[0])
			if !validProvider(provider) {
				return fmt.Errorf("unknown provider %q (one of %s)", provider, strings.Join(keyProviders, ", "))
			}

			fmt.Printf("API key for %s: ", provider)
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return err
			}
			key := strings.TrimSpace(string(raw))
			if key == "" {
				return fmt.Errorf("empty key")
			}
			if err := config.StoreKey(provider, key); err != nil {
				return fmt.Errorf("failed to store key: %w", err)
			}
			fmt.Printf("Stored key for %s.\n", provider)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <provider>",
		Short: "Remove a stored API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := strings.ToLower(args[0])
			if !validProvider(provider) {
				return fmt.Errorf("unknown provider %q (one of %s)", provider, strings.Join(keyProviders, ", "))
			}
			if err := config.DeleteKey(provider); err != nil {
				return fmt.Errorf("failed to delete key: %w", err)
			}
			fmt.Printf("Deleted key for %s.\n", provider)
			return nil
		},
	})

	return cmd
}

func validProvider(p string) bool {
	for _, known := range keyProviders {
		if p == known {
			return true
		}
	}
	return false
}
