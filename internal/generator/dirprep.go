package generator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/fredrikaaa/chronoidx/internal/xerr"
)

// ConfirmDeleteFunc is asked for permission before an existing index
// directory larger than the configured threshold is deleted. Returning
// false aborts the build with a ConfigError, leaving the directory
// untouched (spec §6 "size_threshold_for_delete_confirmation").
type ConfirmDeleteFunc func(dir string, sizeBytes uint64) bool

// PrepareDir realizes spec §4.6's step 1 ("prepare a clean index
// directory, honoring preserve_existing"). It returns the acquired
// advisory lock, which the caller must Unlock once the build (success or
// failure) is complete.
func PrepareDir(dir string, preserveExisting bool, sizeThreshold uint64, confirm ConfirmDeleteFunc) (*flock.Flock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, xerr.New(xerr.KindConfig, "generator.PrepareDir", fmt.Errorf("create %s: %w", dir, err))
	}

	lock := flock.New(filepath.Join(dir, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, xerr.New(xerr.KindConfig, "generator.PrepareDir", fmt.Errorf("acquire lock: %w", err))
	}
	if !locked {
		return nil, xerr.New(xerr.KindConfig, "generator.PrepareDir", fmt.Errorf("index directory %s is locked by another process", dir))
	}

	if preserveExisting {
		if err := os.MkdirAll(filepath.Join(dir, "kv"), 0o755); err != nil {
			lock.Unlock()
			return nil, xerr.New(xerr.KindConfig, "generator.PrepareDir", err)
		}
		return lock, nil
	}

	size, err := dirSize(dir)
	if err != nil {
		lock.Unlock()
		return nil, xerr.New(xerr.KindConfig, "generator.PrepareDir", err)
	}
	if size > sizeThreshold {
		if confirm == nil || !confirm(dir, size) {
			lock.Unlock()
			return nil, xerr.New(xerr.KindConfig, "generator.PrepareDir", fmt.Errorf("refusing to delete %s (%d bytes) without confirmation", dir, size))
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		lock.Unlock()
		return nil, xerr.New(xerr.KindConfig, "generator.PrepareDir", err)
	}
	for _, e := range entries {
		if e.Name() == ".lock" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			lock.Unlock()
			return nil, xerr.New(xerr.KindConfig, "generator.PrepareDir", fmt.Errorf("remove %s: %w", e.Name(), err))
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "kv"), 0o755); err != nil {
		lock.Unlock()
		return nil, xerr.New(xerr.KindConfig, "generator.PrepareDir", err)
	}
	return lock, nil
}

func dirSize(dir string) (uint64, error) {
	var total uint64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += uint64(info.Size())
		}
		return nil
	})
	return total, err
}
