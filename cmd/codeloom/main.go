package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codeloom/internal/config"
	"codeloom/internal/logging"
	"codeloom/internal/workspace"
)

var (
	version = "0.1.0"

	flagModel   string
	flagProject string
	flagVerbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "codeloom",
		Short: "Agent orchestration engine for AI-assisted coding",
		Long: `Codeloom runs coding-agent requests against a project workspace.
Models propose file changes through tools; the changes are staged in a
virtual overlay and reviewed before anything touches the tree.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "model to use (overrides the configured default)")
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "local", "project id")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newReviewCmd())
	rootCmd.AddCommand(newCheckpointsCmd())
	rootCmd.AddCommand(newKeysCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("codeloom version %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the configuration and sets up logging for a command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level := logging.ParseLevel(cfg.Logging.Level)
	if flagVerbose {
		logging.Configure(level, os.Stderr)
	} else if cfg.Logging.File {
		stateDir, err := config.StateDir()
		if err == nil {
			_ = logging.EnableFileLogging(stateDir, level)
		}
	}
	if flagModel != "" {
		cfg.Engine.DefaultModel = flagModel
	}
	return cfg, nil
}

// openStore opens the workspace backend selected by the config.
func openStore(cfg *config.Config, projectID string) (workspace.Store, func(), error) {
	switch cfg.Workspace.Backend {
	case "", "dir":
		root := cfg.Workspace.Root
		if root == "" {
			root = "."
		}
		s, err := workspace.OpenDir(root, projectID)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	case "sqlite":
		if cfg.Workspace.DBPath == "" {
			return nil, nil, fmt.Errorf("workspace.db_path is required for the sqlite backend")
		}
		s, err := workspace.OpenSQLite(cfg.Workspace.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	case "sftp":
		sc := workspace.DefaultSFTPConfig()
		sc.Host = cfg.Workspace.SFTP.Host
		if cfg.Workspace.SFTP.Port != 0 {
			sc.Port = cfg.Workspace.SFTP.Port
		}
		sc.User = cfg.Workspace.SFTP.User
		if cfg.Workspace.SFTP.KeyFile != "" {
			sc.KeyPath = cfg.Workspace.SFTP.KeyFile
		}
		sc.Password = cfg.Workspace.SFTP.Password
		sc.Root = cfg.Workspace.SFTP.Root
		s := workspace.OpenSFTP(sc, projectID)
		return s, func() { s.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown workspace backend %q", cfg.Workspace.Backend)
}
