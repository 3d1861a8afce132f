package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"codeloom/internal/checkpoint"
	"codeloom/internal/config"
	"codeloom/internal/fileutil"
	"codeloom/internal/overlay"
	"codeloom/internal/review"
)

func newReviewCmd() *cobra.Command {
	var (
		inFile      string
		description string
	)

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review staged changes and apply the accepted ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(inFile)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("no changeset at %s — run 'codeloom run' first", inFile)
				}
				return err
			}
			var changes []overlay.PendingChange
			if err := json.Unmarshal(data, &changes); err != nil {
				return fmt.Errorf("failed to parse changeset %s: %w", inFile, err)
			}
			if len(changes) == 0 {
				fmt.Println("Nothing to review.")
				return nil
			}

			decided, confirmed, err := review.Run(changes)
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Println("Review cancelled, nothing applied.")
				return nil
			}

			// Record the decisions before touching the tree, so a failed
			// apply can be retried from the decided changeset.
			if decidedJSON, err := json.MarshalIndent(decided, "", "  "); err == nil {
				_ = fileutil.AtomicWrite(inFile, decidedJSON, 0o644)
			}

			store, closeStore, err := openStore(cfg, flagProject)
			if err != nil {
				return err
			}
			defer closeStore()

			res, err := review.Apply(cmd.Context(), store, flagProject, decided)
			if err != nil {
				return err
			}
			fmt.Printf("Applied %d, rejected %d, skipped %d.\n", res.Applied, res.Rejected, res.Skipped)

			if res.Applied > 0 {
				if err := recordCheckpoint(cfg, description, decided); err != nil {
					fmt.Fprintf(os.Stderr, "failed to record checkpoint: %v\n", err)
				}
			}
			return os.Remove(inFile)
		},
	}

	cmd.Flags().StringVar(&inFile, "in", defaultChangesetFile, "changeset file to review")
	cmd.Flags().StringVarP(&description, "message", "m", "", "checkpoint description")
	return cmd
}

// recordCheckpoint appends the applied changes to the checkpoint store
// so they can be inspected (and reverted) later.
func recordCheckpoint(cfg *config.Config, description string, changes []overlay.PendingChange) error {
	accepted := make([]overlay.PendingChange, 0, len(changes))
	for _, c := range changes {
		if c.Status == overlay.ChangeAccepted {
			accepted = append(accepted, c)
		}
	}
	if len(accepted) == 0 {
		return nil
	}
	if description == "" {
		description = fmt.Sprintf("applied %d change(s)", len(accepted))
	}

	store, err := openCheckpointStore(cfg)
	if err != nil {
		return err
	}
	cp := checkpoint.FromChanges("", description, accepted)
	return store.Append(cp, "")
}

func openCheckpointStore(cfg *config.Config) (*checkpoint.Store, error) {
	stateDir, err := config.StateDir()
	if err != nil {
		return nil, err
	}
	storage := checkpoint.NewFileStorage(filepath.Join(stateDir, "checkpoints.json"))
	return checkpoint.NewStore(storage, cfg.Checkpoint.MaxAge, cfg.Checkpoint.MaxCount), nil
}
