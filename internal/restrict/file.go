package restrict

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReadFile loads restrictions from a JSON file.
func ReadFile(path string) (Restrictions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Restrictions{}, fmt.Errorf("failed to read function pointer restrictions file %s: %w", path, err)
	}
	r, err := FromJSON(data)
	if err != nil {
		return Restrictions{}, fmt.Errorf("failed to parse function pointer restrictions file %s: %w", path, err)
	}
	return r, nil
}

// ReadFiles loads and merges the restrictions of every file in paths.
func ReadFiles(paths []string) (Restrictions, error) {
	var merged Restrictions
	for _, path := range paths {
		r, err := ReadFile(path)
		if err != nil {
			return Restrictions{}, err
		}
		merged = merged.Merge(r)
	}
	return merged, nil
}

// WriteFile stores r as JSON at path. The file is written to a temporary
// file in the same directory first and renamed into place, so readers never
// observe a partial file.
func WriteFile(path string, r Restrictions) (err error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode function pointer restrictions: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
