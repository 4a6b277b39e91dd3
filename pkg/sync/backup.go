package sync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const backupPrefix = ".sync_backup_"

// Backup is a timestamped directory holding verbatim copies of the files
// a sync run is about to modify, plus a manifest mapping copies back to
// their origins.
type Backup struct {
	Dir     string
	entries map[string]string // base name -> original path
}

// CreateBackup copies the given files into a fresh backup directory next
// to the declarative source.
func CreateBackup(configDir string, now time.Time, files ...string) (*Backup, error) {
	dir := filepath.Join(configDir, backupPrefix+now.Format("20060102_150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sync: create backup dir: %w", err)
	}
	b := &Backup{Dir: dir, entries: map[string]string{}}
	for _, file := range files {
		if file == "" {
			continue
		}
		payload, err := os.ReadFile(file)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("sync: back up %s: %w", file, err)
		}
		base := filepath.Base(file)
		if err := os.WriteFile(filepath.Join(dir, base), payload, 0o644); err != nil {
			return nil, fmt.Errorf("sync: back up %s: %w", file, err)
		}
		b.entries[base] = file
	}
	manifest, err := json.MarshalIndent(b.entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("sync: write backup manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), manifest, 0o644); err != nil {
		return nil, fmt.Errorf("sync: write backup manifest: %w", err)
	}
	return b, nil
}

// Restore copies every backed-up file back to its original location.
func (b *Backup) Restore() error {
	for base, target := range b.entries {
		payload, err := os.ReadFile(filepath.Join(b.Dir, base))
		if err != nil {
			return fmt.Errorf("sync: restore %s: %w", target, err)
		}
		if err := os.WriteFile(target, payload, 0o644); err != nil {
			return fmt.Errorf("sync: restore %s: %w", target, err)
		}
	}
	return nil
}

// OpenBackup loads a backup directory through its manifest, for restoring
// a previous run.
func OpenBackup(dir string) (*Backup, error) {
	payload, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("sync: read backup manifest: %w", err)
	}
	entries := map[string]string{}
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("sync: parse backup manifest: %w", err)
	}
	return &Backup{Dir: dir, entries: entries}, nil
}
