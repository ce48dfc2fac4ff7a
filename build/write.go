package build

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// writeFile replaces file content as a whole: data goes to temporary file in
// the same directory which is renamed over destination, readers never see
// partially written stylesheet.
func writeFile(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, os.Remove(f.Name()))
		}
	}()

	if _, err = f.Write(data); err != nil {
		return multierr.Append(fmt.Errorf("unable to write '%s': %w", path, err), f.Close())
	}
	if err = f.Sync(); err != nil {
		return multierr.Append(fmt.Errorf("unable to write '%s': %w", path, err), f.Close())
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("unable to write '%s': %w", path, err)
	}
	if err = os.Chmod(f.Name(), 0644); err != nil {
		return fmt.Errorf("unable to write '%s': %w", path, err)
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("unable to write '%s': %w", path, err)
	}
	return nil
}
