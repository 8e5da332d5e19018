package tablefile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/roach88/laborsync/internal/timeseries"
)

// FileMode is the permission of a saved table file.
const FileMode fs.FileMode = 0o644

// Gateway loads and saves the canonical table at Path.
type Gateway struct {
	Path string
}

// New returns a gateway for path.
func New(path string) *Gateway {
	return &Gateway{Path: path}
}

// Load reads the table. It returns (nil, nil) when the file does not exist,
// which callers treat as a cold start.
func (g *Gateway) Load() (*timeseries.Table, error) {
	f, err := os.Open(g.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	t, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", g.Path, err)
	}
	return t, nil
}

// Save replaces the table file atomically. On error the previous file, if
// any, is untouched and no temp file is left behind.
func (g *Gateway) Save(t *timeseries.Table) error {
	data, err := Marshal(t)
	if err != nil {
		return fmt.Errorf("encode table: %w", err)
	}
	if err := writeFileAtomic(g.Path, data, FileMode); err != nil {
		return fmt.Errorf("save %s: %w", g.Path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := bytes.NewReader(data).WriteTo(tmp); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
