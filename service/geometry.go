package service

import (
	"fmt"
	"image/color"

	"github.com/Shanayardptrial/Passport-Photo-maker/config"
)

// Geometry fixes the size and colours of a passport photo. The final image
// measures (Width+2*BorderWidth) x (Height+2*BorderWidth).
type Geometry struct {
	Width       int
	Height      int
	BorderWidth int
	Backdrop    color.NRGBA
	Border      color.NRGBA
}

// DefaultGeometry is 35x45mm at 300 DPI, blue backdrop, 10px black frame.
var DefaultGeometry = Geometry{
	Width:       413,
	Height:      531,
	BorderWidth: 10,
	Backdrop:    color.NRGBA{R: 74, G: 144, B: 226, A: 255},
	Border:      color.NRGBA{R: 0, G: 0, B: 0, A: 255},
}

func GeometryFromConfig(cfg *config.PassportConfig) Geometry {
	return Geometry{
		Width:       cfg.Width,
		Height:      cfg.Height,
		BorderWidth: cfg.BorderWidth,
		Backdrop:    nrgba(cfg.BackdropColor),
		Border:      nrgba(cfg.BorderColor),
	}
}

func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 || g.BorderWidth <= 0 {
		return fmt.Errorf("%w: %dx%d border %d", ErrInvalidGeometry, g.Width, g.Height, g.BorderWidth)
	}
	return nil
}

// OuterSize returns the dimensions of the bordered output.
func (g Geometry) OuterSize() (int, int) {
	return g.Width + 2*g.BorderWidth, g.Height + 2*g.BorderWidth
}

// String is used as a cache qualifier.
func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d+%d bg=%02x%02x%02x%02x border=%02x%02x%02x%02x",
		g.Width, g.Height, g.BorderWidth,
		g.Backdrop.R, g.Backdrop.G, g.Backdrop.B, g.Backdrop.A,
		g.Border.R, g.Border.G, g.Border.B, g.Border.A)
}

func nrgba(c []int) color.NRGBA {
	var v [4]uint8
	v[3] = 255
	for i := 0; i < len(c) && i < 4; i++ {
		v[i] = uint8(min(max(c[i], 0), 255))
	}
	return color.NRGBA{R: v[0], G: v[1], B: v[2], A: v[3]}
}
