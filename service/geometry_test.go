package service

import (
	"errors"
	"image/color"
	"testing"

	"github.com/Shanayardptrial/Passport-Photo-maker/config"
)

func TestGeometryFromDefaultConfig(t *testing.T) {
	g := GeometryFromConfig(&config.Default().Passport)

	if g != DefaultGeometry {
		t.Fatalf("default config geometry %+v, want %+v", g, DefaultGeometry)
	}
	if w, h := g.OuterSize(); w != 433 || h != 551 {
		t.Fatalf("outer size %dx%d, want 433x551", w, h)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("default geometry invalid: %v", err)
	}
}

func TestGeometryColourClamping(t *testing.T) {
	g := GeometryFromConfig(&config.PassportConfig{
		Width:         10,
		Height:        10,
		BorderWidth:   1,
		BackdropColor: []int{-5, 300, 7},
		BorderColor:   nil,
	})

	if want := (color.NRGBA{R: 0, G: 255, B: 7, A: 255}); g.Backdrop != want {
		t.Errorf("backdrop %v, want %v", g.Backdrop, want)
	}
	if want := (color.NRGBA{A: 255}); g.Border != want {
		t.Errorf("border %v, want %v", g.Border, want)
	}
}

func TestGeometryStringDistinguishesSettings(t *testing.T) {
	other := DefaultGeometry
	other.Backdrop = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	if DefaultGeometry.String() == other.String() {
		t.Fatal("expected different backdrops to give different fingerprints")
	}
}

func TestGeometryValidate(t *testing.T) {
	bad := DefaultGeometry
	bad.BorderWidth = -2
	if err := bad.Validate(); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("expected ErrInvalidGeometry, got %v", err)
	}
}
