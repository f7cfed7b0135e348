package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fredrikaaa/chronoidx/internal/config"
	"github.com/fredrikaaa/chronoidx/internal/kvstore"
	"github.com/fredrikaaa/chronoidx/internal/manifest"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a built index directory's manifest against its KVStore contents",
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	if indexDir == "" {
		return fmt.Errorf("--index-dir is required")
	}

	var failed []string
	for _, t := range config.All {
		runDir := filepath.Join(indexDir, string(t))
		if !manifest.Exists(runDir) {
			continue
		}
		if err := verifyOne(runDir, string(t)); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", t, err))
		}
	}

	if len(failed) > 0 {
		for _, f := range failed {
			fmt.Fprintln(cmd.OutOrStderr(), "FAIL", f)
		}
		return fmt.Errorf("%d index(es) failed verification", len(failed))
	}
	fmt.Fprintln(cmd.OutOrStdout(), "all index variants verified OK")
	return nil
}

// verifyOne re-opens a single index type's manifest and KVStore, confirming
// the manifest's record_count matches what the store actually holds.
func verifyOne(runDir, indexType string) error {
	m, err := manifest.Read(runDir)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	store, err := kvstore.Open(filepath.Join(runDir, "kv", "data.db"), kvstore.Options{})
	if err != nil {
		return fmt.Errorf("open kvstore: %w", err)
	}
	defer store.Close()

	count, err := store.RecordCount(indexType)
	if err != nil {
		return fmt.Errorf("count records: %w", err)
	}
	if count != m.RecordCount {
		return fmt.Errorf("manifest record_count=%d but kvstore holds %d", m.RecordCount, count)
	}
	return nil
}
