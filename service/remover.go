package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Shanayardptrial/Passport-Photo-maker/model"
	"github.com/Shanayardptrial/Passport-Photo-maker/utils"
	"go.uber.org/zap"
)

// Remover isolates the subject of an image and returns a PNG cutout with a
// transparent background. Any error means no cutout is available.
type Remover interface {
	Remove(ctx context.Context, img model.RawImage) ([]byte, error)
}

// FileRemover is the calling convention of tools that read an input file,
// write an output file and report only whether they succeeded.
type FileRemover interface {
	RemoveFile(ctx context.Context, inputPath, outputPath string) bool
}

// ScratchRemover adapts a FileRemover to Remover, staging the image in a
// per-call scratch area that is released on every exit path.
type ScratchRemover struct {
	store   ScratchStore
	remover FileRemover
}

func NewScratchRemover(store ScratchStore, remover FileRemover) *ScratchRemover {
	return &ScratchRemover{store: store, remover: remover}
}

func (s *ScratchRemover) Remove(ctx context.Context, img model.RawImage) ([]byte, error) {
	scratch, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: scratch: %v", ErrRemovalFailed, err)
	}
	defer scratch.Release()

	inputPath := scratch.Path("input" + inputExt(img))
	outputPath := scratch.Path("output.png")

	if err := os.WriteFile(inputPath, img.Data, 0o600); err != nil {
		return nil, fmt.Errorf("%w: stage input: %v", ErrRemovalFailed, err)
	}

	if !s.remover.RemoveFile(ctx, inputPath, outputPath) {
		return nil, fmt.Errorf("%w: remover reported failure", ErrRemovalFailed)
	}

	cutout, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %v", ErrRemovalFailed, err)
	}
	if len(cutout) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrRemovalFailed)
	}

	utils.Logger.Debug("cutout read from scratch",
		zap.String("dir", scratch.Dir()),
		zap.Int("bytes", len(cutout)))

	return cutout, nil
}

// DisabledRemover never produces a cutout, forcing the fallback path.
type DisabledRemover struct{}

func (DisabledRemover) Remove(context.Context, model.RawImage) ([]byte, error) {
	return nil, fmt.Errorf("%w: remover disabled", ErrRemovalFailed)
}

func inputExt(img model.RawImage) string {
	if ext := strings.ToLower(filepath.Ext(img.Filename)); ext != "" && len(ext) <= 5 {
		return ext
	}
	switch strings.ToLower(img.MIMEType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
