package snapshot

import (
	"bufio"
	"fmt"
	"os"
)

// Write serializes st to path. The file is written to a temporary
// sibling, synced, and renamed into place so readers never observe a
// partial snapshot.
func Write(path string, st *State) error {
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	w := bufio.NewWriter(file)
	if err := Encode(w, st); err != nil {
		file.Close()
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("snapshot: flush: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("snapshot: close: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	return nil
}

// Read loads the snapshot at path.
func Read(path string) (*State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("snapshot: %s: %w", path, err)
	}
	return st, nil
}
