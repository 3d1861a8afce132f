package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"codeloom/internal/engine"
	"codeloom/internal/fileutil"
)

const defaultChangesetFile = ".codeloom-changes.json"

func newRunCmd() *cobra.Command {
	var (
		mode       string
		noReview   bool
		copyOutput bool
		outFile    string
	)

	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run a one-shot agent request against the workspace",
		Long: `Run sends a single prompt to the configured model. File mutations are
staged and written to a changeset file for 'codeloom review'; pass
--no-review to let tools write straight through to the workspace.`,
		Args: cobra.MinimumNArgs(1),
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

			if mode == "" {
				mode = cfg.Engine.DefaultMode
			}
			resp, err := eng.Run(cmd.Context(), engine.Request{
				ProjectID:  flagProject,
				Prompt:     strings.Join(args, " "),
				Model:      cfg.Engine.DefaultModel,
				Mode:       mode,
				ReviewMode: !noReview,
			})
			if err != nil {
				return err
			}

			if err := printMarkdown(resp.Content); err != nil {
				fmt.Println(resp.Content)
			}
			if copyOutput {
				if err := clipboard.WriteAll(resp.Content); err != nil {
					fmt.Fprintf(os.Stderr, "failed to copy to clipboard: %v\n", err)
				}
			}

			if len(resp.ProposedChanges) > 0 {
				data, err := json.MarshalIndent(resp.ProposedChanges, "", "  ")
				if err != nil {
					return err
				}
				if err := fileutil.AtomicWrite(outFile, data, 0o644); err != nil {
					return fmt.Errorf("failed to write changeset: %w", err)
				}
				fmt.Printf("\n%d staged change(s) written to %s — run 'codeloom review' to apply.\n",
					len(resp.ProposedChanges), outFile)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "tool mode: agent, plan or ask")
	cmd.Flags().BoolVar(&noReview, "no-review", false, "apply file changes directly instead of staging")
	cmd.Flags().BoolVar(&copyOutput, "copy", false, "copy the response to the clipboard")
	cmd.Flags().StringVar(&outFile, "out", defaultChangesetFile, "changeset output file")
	return cmd
}

func printMarkdown(content string) error {
	if content == "" {
		return nil
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return err
	}
	out, err := r.Render(content)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
