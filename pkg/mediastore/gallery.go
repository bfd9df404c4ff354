// Package mediastore saves finished clips into a gallery directory.
package mediastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/camrec/camrec/internal/logging"
	"github.com/google/renameio/v2"
	plogging "github.com/pion/logging"
)

// Gallery is a camrec.MediaStore backed by a directory. Clips keep their
// base name, so saving the same clip twice is a no-op.
type Gallery struct {
	dir string
	log plogging.LeveledLogger
}

// Item is a clip stored in a Gallery.
type Item struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// NewGallery creates dir if needed and returns a Gallery for it.
func NewGallery(dir string) (*Gallery, error) {
	if dir == "" {
		return nil, errors.New("mediastore: empty gallery directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mediastore: create gallery: %w", err)
	}
	return &Gallery{
		dir: dir,
		log: logging.NewLogger("camrec/mediastore"),
	}, nil
}

// Dir returns the gallery directory.
func (g *Gallery) Dir() string {
	return g.dir
}

// Save copies the clip at path into the gallery. The copy is written to a
// temporary file, synced and renamed into place, so readers of the gallery
// never see a partial clip.
func (g *Gallery) Save(ctx context.Context, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("mediastore: open clip: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("mediastore: stat clip: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("mediastore: %s is not a regular file", path)
	}

	dst := filepath.Join(g.dir, filepath.Base(path))
	if existing, err := os.Stat(dst); err == nil && existing.Size() == info.Size() {
		g.log.Debugf("%s already in gallery", filepath.Base(path))
		return nil
	}
	if filepath.Clean(path) == filepath.Clean(dst) {
		return nil
	}

	pending, err := renameio.NewPendingFile(dst, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("mediastore: create pending file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			g.log.Debugf("cleanup pending file: %v", err)
		}
	}()

	if _, err := io.Copy(pending, &ctxReader{ctx: ctx, r: src}); err != nil {
		return fmt.Errorf("mediastore: copy clip: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("mediastore: commit clip: %w", err)
	}

	g.log.Infof("saved %s to %s", filepath.Base(path), g.dir)
	return nil
}

// List returns the clips in the gallery, newest first.
func (g *Gallery) List() ([]Item, error) {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return nil, fmt.Errorf("mediastore: list gallery: %w", err)
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || isTemp(e) {
			continue
		}
		info, err := e.Info()
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("mediastore: stat %s: %w", e.Name(), err)
		}
		items = append(items, Item{
			Name:    e.Name(),
			Path:    filepath.Join(g.dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].ModTime.Equal(items[j].ModTime) {
			return items[i].ModTime.After(items[j].ModTime)
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

// renameio names its temporary files with a leading dot.
func isTemp(e fs.DirEntry) bool {
	return len(e.Name()) > 0 && e.Name()[0] == '.'
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
