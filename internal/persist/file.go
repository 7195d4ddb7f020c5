package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/agency1/hippocampus/internal/model"
)

// FileStore keeps the durable map in a single JSON file:
//
//	{ "<key>": { "payload": ..., "created_at": <epoch>, "access_weight": n, "embedding": [...] } }
//
// Saves go to a temp file in the same directory which is then renamed over
// the target, so readers and crashes never see a partial file.
type FileStore struct {
	path   string
	ids    *idSource
	logger *slog.Logger
}

// NewFileStore creates a file store at path, creating its directory.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("persist: file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("persist: create dir: %w", err)
	}
	return &FileStore{path: path, ids: newIDSource(), logger: loggerOr(logger)}, nil
}

// Path returns the durable file path.
func (fs *FileStore) Path() string { return fs.path }

func (fs *FileStore) Load(_ context.Context) (*Snapshot, error) {
	fs.removeStaleTemps()

	b, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return emptySnapshot(StateMissing), nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: read %s: %w", fs.path, err)
	}

	entries, err := decodeFile(b)
	if err != nil {
		fs.quarantine(err)
		return emptySnapshot(StateCorrupt), nil
	}
	return &Snapshot{Entries: entries, State: StateLoaded}, nil
}

func decodeFile(b []byte) (map[string]*model.Entry, error) {
	var records map[string]*model.Record
	if err := decodeJSON(b, &records); err != nil {
		return nil, err
	}
	if records == nil {
		return nil, fmt.Errorf("top-level value is not an object")
	}
	entries := make(map[string]*model.Entry, len(records))
	for key, r := range records {
		if key == "" || r == nil {
			return nil, fmt.Errorf("invalid record %q", key)
		}
		entries[key] = model.FromRecord(key, *r)
	}
	return entries, nil
}

func (fs *FileStore) Save(_ context.Context, entries map[string]*model.Entry) error {
	records := make(map[string]model.Record, len(entries))
	for key, e := range entries {
		records[key] = e.ToRecord()
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: encode: %w", err)
	}

	dir := filepath.Dir(fs.path)
	tmp := filepath.Join(dir, fs.tempPrefix()+fs.ids.next()+".tmp")
	if err := writeSynced(tmp, b); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("persist: write temp file: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("persist: atomic rename %s: %w", fs.path, err)
	}
	syncDir(dir)
	return nil
}

func (fs *FileStore) Close() error { return nil }

func (fs *FileStore) tempPrefix() string {
	return "." + filepath.Base(fs.path) + "."
}

// removeStaleTemps deletes temp files left behind by an interrupted save.
func (fs *FileStore) removeStaleTemps() {
	dir := filepath.Dir(fs.path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	prefix := fs.tempPrefix()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".tmp") {
			continue
		}
		p := filepath.Join(dir, name)
		if err := os.Remove(p); err != nil {
			fs.logger.Debug("could not remove stale temp file", "path", p, "err", err)
			continue
		}
		fs.logger.Info("removed stale temp file from interrupted save", "path", p)
	}
}

// quarantine moves an undecodable durable file aside so the next save does
// not destroy it.
func (fs *FileStore) quarantine(cause error) {
	dst := fs.path + ".corrupt-" + fs.ids.next()
	if err := os.Rename(fs.path, dst); err != nil {
		fs.logger.Warn("durable file is corrupt; starting cold", "path", fs.path, "err", cause, "quarantine_err", err)
		return
	}
	fs.logger.Warn("durable file is corrupt; moved aside and starting cold", "path", fs.path, "moved_to", dst, "err", cause)
}

func writeSynced(path string, b []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	d.Close()
}
