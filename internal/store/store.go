// Package store persists named JSON documents on disk.
//
// Each document is a whole file under the store's data directory, rewritten
// in full on every save. The bot's event loop serializes every
// load→mutate→save cycle, so no file locking is used.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/atelier/internal/logging"
)

// backup filename timestamp, e.g. ledger.json.20260829153000.bak
const backupTimeLayout = "20060102150405"

type Store struct {
	dir    string
	logger logging.Logger

	// now is a test seam for deterministic backup names.
	now func() time.Time
}

func New(dir string, logger logging.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logger.With("module", "store"),
		now:    time.Now,
	}
}

// Load reads and parses the named document. An absent or empty file yields
// the zero value of T. An unparsable file is renamed to a timestamped
// backup (best-effort) and also yields the zero value, so the caller can
// always make progress; recovering the backed-up content is a manual
// operation.
//
// Load is a package function because Go methods cannot carry their own type
// parameters.
func Load[T any](ctx context.Context, s *Store, name string) (T, error) {
	var doc T

	path := filepath.Join(s.dir, name)

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return doc, err
	}

	if len(b) == 0 {
		return doc, nil
	}

	if err := json.Unmarshal(b, &doc); err != nil {
		s.logger.Warn(ctx, "document is not valid JSON, resetting", "name", name, "error", err)
		s.backup(ctx, path)
		var empty T
		return empty, nil
	}

	return doc, nil
}

// Save overwrites the named document with the JSON encoding of doc. It must
// be the last step of a logical transaction: load, mutate the returned
// value, then save it.
func (s *Store) Save(ctx context.Context, name string, doc any) error {
	b, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, name), b, 0o660)
}

// backup moves an unreadable document aside so the original bytes survive
// the reset. Rename failure is logged, not fatal.
func (s *Store) backup(ctx context.Context, path string) {
	bak := path + "." + s.now().Format(backupTimeLayout) + ".bak"
	if err := os.Rename(path, bak); err != nil {
		s.logger.Warn(ctx, "could not back up corrupt document", "path", path, "error", err)
		return
	}
	s.logger.Info(ctx, "backed up corrupt document", "path", path, "backup", bak)
}
