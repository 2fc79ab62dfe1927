package service

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/Shanayardptrial/Passport-Photo-maker/config"
	"github.com/disintegration/imaging"
)

// SheetLayout describes a print sheet in pixels.
type SheetLayout struct {
	Width    int
	Height   int
	Margin   int
	Gap      int
	MaxCount int
	Paper    color.NRGBA
}

func SheetLayoutFromConfig(cfg *config.SheetConfig) SheetLayout {
	return SheetLayout{
		Width:    cfg.Width,
		Height:   cfg.Height,
		Margin:   cfg.Margin,
		Gap:      cfg.Gap,
		MaxCount: cfg.MaxCount,
		Paper:    color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// Grid returns how many photos of the given size fit per row and column.
func (l SheetLayout) Grid(photoW, photoH int) (cols, rows int) {
	if photoW <= 0 || photoH <= 0 {
		return 0, 0
	}
	cols = (l.Width - 2*l.Margin + l.Gap) / (photoW + l.Gap)
	rows = (l.Height - 2*l.Margin + l.Gap) / (photoH + l.Gap)
	return max(cols, 0), max(rows, 0)
}

// SheetComposer tiles copies of a finished photo onto a sheet for printing.
type SheetComposer struct {
	layout SheetLayout
}

func NewSheetComposer(layout SheetLayout) *SheetComposer {
	return &SheetComposer{layout: layout}
}

// Compose places count copies row by row, the grid centred horizontally and
// starting at the top margin. The sheet is returned as PNG.
func (s *SheetComposer) Compose(photo []byte, count int) ([]byte, error) {
	img, err := DecodeImage(photo)
	if err != nil {
		return nil, err
	}

	l := s.layout
	pw, ph := img.Bounds().Dx(), img.Bounds().Dy()
	cols, rows := l.Grid(pw, ph)
	capacity := min(cols*rows, l.MaxCount)
	if count < 1 || count > capacity {
		return nil, fmt.Errorf("%w: %d copies requested, %d fit", ErrSheetCapacity, count, capacity)
	}

	gridW := cols*pw + (cols-1)*l.Gap
	left := (l.Width - gridW) / 2

	tile := imaging.Clone(img)
	sheet := imaging.New(l.Width, l.Height, l.Paper)
	for i := 0; i < count; i++ {
		col, row := i%cols, i/cols
		pos := image.Pt(left+col*(pw+l.Gap), l.Margin+row*(ph+l.Gap))
		draw.Draw(sheet, image.Rectangle{Min: pos, Max: pos.Add(tile.Bounds().Size())}, tile, image.Point{}, draw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, sheet); err != nil {
		return nil, fmt.Errorf("%w: png: %v", ErrComposition, err)
	}
	return buf.Bytes(), nil
}

func (s *SheetComposer) Layout() SheetLayout {
	return s.layout
}
