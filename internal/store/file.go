package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// FileBackend keeps each document as <dir>/<key>.json.
type FileBackend struct {
	dir string
}

// NewFileBackend returns a backend rooted at dir.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, eris.New("file store: empty directory")
	}
	return &FileBackend{dir: dir}, nil
}

func (f *FileBackend) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileBackend) Migrate(_ context.Context) error {
	return eris.Wrap(os.MkdirAll(f.dir, 0o755), "file store: create dir")
}

func (f *FileBackend) Close() error { return nil }

func (f *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "file store: read %s", key)
	}
	return data, nil
}

// PutMany stages every document in a temp file, syncs them, then renames
// them into place. A failure before the first rename leaves all documents
// untouched.
func (f *FileBackend) PutMany(ctx context.Context, docs map[string][]byte) error {
	keys := sortedKeys(docs)
	staged := make(map[string]string, len(keys))
	cleanup := func() {
		for _, tmp := range staged {
			os.Remove(tmp) //nolint:errcheck
		}
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			cleanup()
			return eris.Wrap(err, "file store: put")
		}
		tmp, err := writeTemp(f.dir, key, docs[key])
		if err != nil {
			cleanup()
			return eris.Wrapf(err, "file store: stage %s", key)
		}
		staged[key] = tmp
	}

	for _, key := range keys {
		if err := os.Rename(staged[key], f.path(key)); err != nil {
			cleanup()
			return eris.Wrapf(err, "file store: commit %s", key)
		}
		delete(staged, key)
	}
	return syncDir(f.dir)
}

func writeTemp(dir, key string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, "."+key+"-*.tmp")
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()     //nolint:errcheck
		os.Remove(name) //nolint:errcheck
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()     //nolint:errcheck
		os.Remove(name) //nolint:errcheck
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name) //nolint:errcheck
		return "", err
	}
	return name, nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return eris.Wrap(err, "file store: open dir")
	}
	defer d.Close() //nolint:errcheck
	// Some filesystems refuse fsync on directories; the renames are done.
	_ = d.Sync()
	return nil
}

func mkdirAll(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
