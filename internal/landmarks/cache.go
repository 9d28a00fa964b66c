package landmarks

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Cache wraps a Source and remembers its answers in a SQLite file, keyed by
// image path and source name. An entry is reused only while the image keeps
// the size and modification time it had when it was detected. Detector
// errors are never cached.
type Cache struct {
	db  *sql.DB
	src Source
}

// OpenCache opens (creating if needed) the cache database at path.
func OpenCache(path string, src Source) (*Cache, error) {
	if src == nil {
		return nil, fmt.Errorf("cache needs a source")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY
	// under the acquisition worker pool.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS detections (
			path TEXT NOT NULL,
			source TEXT NOT NULL,
			size INTEGER NOT NULL,
			mtime INTEGER NOT NULL,
			doc BLOB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (path, source)
		);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cannot initialise cache %s: %w", path, err)
	}
	return &Cache{db: db, src: src}, nil
}

func (c *Cache) Name() string {
	return c.src.Name()
}

func (c *Cache) Detect(ctx context.Context, imagePath string) (Detection, error) {
	fi, err := os.Stat(imagePath)
	if err != nil {
		return Detection{}, fmt.Errorf("cannot stat image %s: %w", imagePath, err)
	}
	size, mtime := fi.Size(), fi.ModTime().UnixNano()

	det, ok, err := c.lookup(ctx, imagePath, size, mtime)
	if err != nil {
		return Detection{}, err
	}
	if ok {
		return det, nil
	}

	det, err = c.src.Detect(ctx, imagePath)
	if err != nil {
		return Detection{}, err
	}
	if err := c.store(ctx, imagePath, size, mtime, det); err != nil {
		return Detection{}, err
	}
	return det, nil
}

func (c *Cache) lookup(ctx context.Context, imagePath string, size, mtime int64) (Detection, bool, error) {
	var (
		gotSize, gotMtime int64
		doc               []byte
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT size, mtime, doc FROM detections WHERE path = ? AND source = ?",
		imagePath, c.src.Name(),
	).Scan(&gotSize, &gotMtime, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return Detection{}, false, nil
	}
	if err != nil {
		return Detection{}, false, fmt.Errorf("cache lookup failed: %w", err)
	}
	if gotSize != size || gotMtime != mtime {
		return Detection{}, false, nil
	}
	det, err := decodeDocument(bytes.NewReader(doc))
	if err != nil {
		// Unreadable rows are treated as misses and overwritten.
		return Detection{}, false, nil
	}
	return det, true, nil
}

func (c *Cache) store(ctx context.Context, imagePath string, size, mtime int64, det Detection) error {
	doc, err := encodeDocument(det)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO detections (path, source, size, mtime, doc) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path, source) DO UPDATE SET
			size = excluded.size,
			mtime = excluded.mtime,
			doc = excluded.doc,
			created_at = CURRENT_TIMESTAMP`,
		imagePath, c.src.Name(), size, mtime, doc,
	)
	if err != nil {
		return fmt.Errorf("cache store failed: %w", err)
	}
	return nil
}

// Len returns the number of cached detections.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM detections").Scan(&n)
	return n, err
}

// Close closes the database and the wrapped source.
func (c *Cache) Close() error {
	err := c.db.Close()
	if cerr := Close(c.src); err == nil {
		err = cerr
	}
	return err
}
