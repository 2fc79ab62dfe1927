package service

import (
	"errors"
	"image/color"
	"testing"

	"github.com/Shanayardptrial/Passport-Photo-maker/config"
)

func a4Layout() SheetLayout {
	return SheetLayoutFromConfig(&config.Default().Sheet)
}

func TestSheetGrid(t *testing.T) {
	l := a4Layout()

	tests := []struct {
		w, h       int
		cols, rows int
	}{
		{433, 551, 5, 6},
		{2380, 3408, 1, 1},
		{2381, 100, 0, 28},
		{0, 10, 0, 0},
	}

	for _, tt := range tests {
		cols, rows := l.Grid(tt.w, tt.h)
		if cols != tt.cols || rows != tt.rows {
			t.Errorf("Grid(%d,%d) = %dx%d, want %dx%d", tt.w, tt.h, cols, rows, tt.cols, tt.rows)
		}
	}
}

func TestSheetComposePlacesCopies(t *testing.T) {
	l := a4Layout()
	s := NewSheetComposer(l)

	out, err := s.Compose(encodePNG(t, solidImage(433, 551, red)), 7)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	sheet := decodePNG(t, out)

	if b := sheet.Bounds(); b.Dx() != l.Width || b.Dy() != l.Height {
		t.Fatalf("sheet is %dx%d, want %dx%d", b.Dx(), b.Dy(), l.Width, l.Height)
	}

	// five columns of 433 with 20px gaps are 2245 wide, leaving 117 each side
	const left, top, stepX, stepY = 117, 50, 453, 571
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	checks := []struct {
		name string
		x, y int
		want color.NRGBA
	}{
		{"first copy", left, top, red},
		{"last column", left + 4*stepX + 432, top + 550, red},
		{"second row", left + 5, top + stepY + 5, red},
		{"seventh copy", left + stepX + 5, top + stepY + 5, red},
		{"eighth slot empty", left + 2*stepX + 5, top + stepY + 5, white},
		{"gap", left + 433 + 10, top + 10, white},
		{"left margin", left - 1, top + 10, white},
		{"top margin", left + 10, top - 1, white},
	}
	for _, c := range checks {
		if got := nrgbaAt(sheet, c.x, c.y); got != c.want {
			t.Errorf("%s at (%d,%d) = %v, want %v", c.name, c.x, c.y, got, c.want)
		}
	}
}

func TestSheetComposeCapacity(t *testing.T) {
	s := NewSheetComposer(a4Layout())
	photo := encodePNG(t, solidImage(433, 551, red))

	for _, count := range []int{0, -1, 31} {
		if _, err := s.Compose(photo, count); !errors.Is(err, ErrSheetCapacity) {
			t.Errorf("count %d: expected ErrSheetCapacity, got %v", count, err)
		}
	}

	huge := encodePNG(t, solidImage(2500, 10, red))
	if _, err := s.Compose(huge, 1); !errors.Is(err, ErrSheetCapacity) {
		t.Errorf("oversized photo: expected ErrSheetCapacity, got %v", err)
	}
}

func TestSheetComposeRejectsGarbage(t *testing.T) {
	s := NewSheetComposer(a4Layout())
	if _, err := s.Compose([]byte("nope"), 1); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}
