// Package manifest implements the index directory's manifest.json (spec
// §6: "manifest.json { type, created_at_unix, record_count, checksum }"),
// supplemented with the build's KV engine/compression choice and run id
// for cross-version debugging.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Manifest is the on-disk record written once an index build completes.
type Manifest struct {
	Type          string `json:"type"`
	CreatedAtUnix int64  `json:"created_at_unix"`
	RecordCount   int    `json:"record_count"`
	Checksum      string `json:"checksum"`
	KVEngine      string `json:"kv_engine"`
	Compression   string `json:"compression"`
	RunID         string `json:"run_id"`
}

// FileName is manifest.json's name within an index type's directory.
const FileName = "manifest.json"

// Write marshals m and writes it to dir/manifest.json.
func Write(dir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0o644); err != nil {
		return fmt.Errorf("manifest: write: %w", err)
	}
	return nil
}

// Read loads dir/manifest.json.
func Read(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: read: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest: unmarshal: %w", err)
	}
	return m, nil
}

// Exists reports whether dir already has a manifest.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}
