package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/onnwee/anitrack/db"
)

// DocStore reads and writes the persisted account document as an opaque blob.
// Load reports false when no document exists yet (an empty store is valid).
type DocStore interface {
	Load(ctx context.Context) ([]byte, bool, error)
	Save(ctx context.Context, doc []byte) error
}

// FileDocStore keeps the document in a single JSON file on disk.
type FileDocStore struct {
	Path string
}

func (f *FileDocStore) Load(_ context.Context) ([]byte, bool, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", f.Path, err)
	}
	return data, true, nil
}

// Save writes atomically (tmp file + rename) so a crash mid-write leaves the
// previous document intact.
func (f *FileDocStore) Save(_ context.Context, doc []byte) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, doc, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", f.Path, err)
	}
	return nil
}

// accountsKey is the kv row holding the document in Postgres.
const accountsKey = "accounts"

// PGDocStore keeps the document in the kv table of a Postgres database.
type PGDocStore struct {
	DB *sql.DB
}

func (p *PGDocStore) Load(ctx context.Context) ([]byte, bool, error) {
	v, ok, err := db.GetKV(ctx, p.DB, accountsKey)
	if err != nil || !ok {
		return nil, false, err
	}
	return []byte(v), true, nil
}

func (p *PGDocStore) Save(ctx context.Context, doc []byte) error {
	return db.SetKV(ctx, p.DB, accountsKey, string(doc))
}
