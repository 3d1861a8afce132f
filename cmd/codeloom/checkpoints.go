package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCheckpointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoints",
		Short: "Inspect and prune applied-changeset checkpoints",
	}
	cmd.AddCommand(newCheckpointsListCmd())
	cmd.AddCommand(newCheckpointsShowCmd())
	cmd.AddCommand(newCheckpointsPruneCmd())
	return cmd
}

func newCheckpointsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List retained checkpoints, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openCheckpointStore(cfg)
			if err != nil {
				return err
			}
			cps, err := store.List()
			if err != nil {
				return err
			}
			if len(cps) == 0 {
				fmt.Println("No checkpoints.")
				return nil
			}

			head, hasHead, err := store.Head()
			if err != nil {
				return err
			}
			for _, cp := range cps {
				marker := " "
				if hasHead && cp.ID == head.ID {
					marker = "*"
				}
				desc := cp.Description
				if desc == "" {
					desc = "(no description)"
				}
				fmt.Printf("%s %s  %s  %d op(s)  %s\n",
					marker, cp.ID[:8], cp.CreatedAt.Local().Format("2006-01-02 15:04"), len(cp.Ops), desc)
			}
			return nil
		},
	}
}

func newCheckpointsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the files touched by a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openCheckpointStore(cfg)
			if err != nil {
				return err
			}
			cps, err := store.List()
			if err != nil {
				return err
			}

			// Accept id prefixes, the way list prints them.
			var found bool
			for _, cp := range cps {
				if !strings.HasPrefix(cp.ID, args[0]) {
					continue
				}
				found = true
				fmt.Printf("checkpoint %s\ncreated  %s\n", cp.ID, cp.CreatedAt.Local().Format("2006-01-02 15:04:05"))
				if cp.Description != "" {
					fmt.Printf("message  %s\n", cp.Description)
				}
				fmt.Println()
				for _, op := range cp.Ops {
					fmt.Printf("  %s\n", op.Path)
					if op.Patch != "" {
						fmt.Println(indent(op.Patch, "    "))
					}
				}
			}
			if !found {
				return fmt.Errorf("no checkpoint matching %q", args[0])
			}
			return nil
		},
	}
}

func newCheckpointsPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Apply the retention ceilings now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openCheckpointStore(cfg)
			if err != nil {
				return err
			}
			if err := store.Prune(); err != nil {
				return err
			}
			cps, err := store.List()
			if err != nil {
				return err
			}
			fmt.Printf("%d checkpoint(s) retained.\n", len(cps))
			return nil
		},
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
