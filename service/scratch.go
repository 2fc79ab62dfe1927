package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Shanayardptrial/Passport-Photo-maker/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScratchStore hands out short-lived areas for exchanging files with
// external tools.
type ScratchStore interface {
	Acquire(ctx context.Context) (Scratch, error)
}

// Scratch is one acquired area. Release is best-effort and safe to call
// more than once.
type Scratch interface {
	Dir() string
	Path(name string) string
	Release()
}

// DirScratchStore creates one uniquely named directory per acquisition
// under root.
type DirScratchStore struct {
	root    string
	cleanup bool
}

// NewDirScratchStore returns a store rooted at root. With cleanup false,
// released directories are kept on disk for inspection.
func NewDirScratchStore(root string, cleanup bool) *DirScratchStore {
	return &DirScratchStore{root: root, cleanup: cleanup}
}

func (s *DirScratchStore) Acquire(ctx context.Context) (Scratch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch root: %w", err)
	}

	dir := filepath.Join(s.root, uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &dirScratch{dir: dir, cleanup: s.cleanup}, nil
}

type dirScratch struct {
	dir      string
	cleanup  bool
	released bool
}

func (d *dirScratch) Dir() string { return d.dir }

func (d *dirScratch) Path(name string) string {
	return filepath.Join(d.dir, filepath.Base(name))
}

func (d *dirScratch) Release() {
	if d.released || !d.cleanup {
		return
	}
	d.released = true

	if err := os.RemoveAll(d.dir); err != nil {
		utils.Logger.Warn("failed to delete scratch dir",
			zap.String("dir", d.dir),
			zap.Error(err))
		return
	}
	utils.Logger.Debug("scratch dir deleted", zap.String("dir", d.dir))
}
