// Package fuse implements the backlog fusion command.
package fuse

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aquasentinel/aquasentinel/internal/classifier"
	"github.com/aquasentinel/aquasentinel/internal/conf"
	"github.com/aquasentinel/aquasentinel/internal/datastore"
	"github.com/aquasentinel/aquasentinel/internal/fusion"
	"github.com/aquasentinel/aquasentinel/internal/identity"
	"github.com/aquasentinel/aquasentinel/internal/logging"
)

// Command creates the fuse command. It processes unclassified symptom
// reports against each district's latest water report and exits.
func Command(settings *conf.Settings) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "fuse",
		Short: "Classify the backlog of unprocessed symptom reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum reports to process, 0 for all")

	return cmd
}

func run(cmd *cobra.Command, settings *conf.Settings, limit int) error {
	logger := logging.ForService("fuse")

	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close datastore", "error", err)
		}
	}()

	cls, err := classifier.New(settings)
	if err != nil {
		return fmt.Errorf("failed to initialize classifier: %w", err)
	}
	pool := classifier.NewPool(cls, settings.Classifier.Workers,
		time.Duration(settings.Classifier.Timeout)*time.Second)

	pipeline := fusion.New(store, pool, identity.NewResolver(store), nil)
	defer pipeline.Drain()

	result, err := pipeline.FuseBacklog(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("backlog fusion failed: %w", err)
	}

	fmt.Printf("Fused %d reports, skipped %d, failed %d\n",
		result.Fused, result.Skipped, result.Failed)
	return nil
}
