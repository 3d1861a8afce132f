package main

import (
	"github.com/spf13/cobra"

	"codeloom/internal/engine"
	"codeloom/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP agent endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg, flagProject)
			if err != nil {
				return err
			}
			defer closeStore()

			eng := engine.New(store)
			eng.SetKeyResolver(cfg.ResolveKey)

			if addr == "" {
				addr = cfg.Server.Addr
			}
			return server.New(eng).ListenAndServe(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides the configured one)")
	return cmd
}
