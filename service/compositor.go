package service

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Mode selects how the compositor fits the source into the photo area.
// The set of modes is closed: each mode supplies its own fit step.
type Mode interface {
	fmt.Stringer
	fit(src image.Image, g Geometry, filter imaging.ResampleFilter) *image.NRGBA
}

var (
	// ModeCutout expects a transparent background around an isolated subject.
	ModeCutout Mode = cutoutMode{}
	// ModeOpaque expects a plain photo without usable alpha.
	ModeOpaque Mode = opaqueMode{}
)

type cutoutMode struct{}

func (cutoutMode) String() string { return "cutout" }

// fit scales the subject into the box without cropping, centres it on a
// transparent canvas and lays that over the backdrop.
func (cutoutMode) fit(src image.Image, g Geometry, filter imaging.ResampleFilter) *image.NRGBA {
	b := src.Bounds()
	w, h := containSize(b.Dx(), b.Dy(), g.Width, g.Height)
	resized := imaging.Resize(src, w, h, filter)

	contained := imaging.PasteCenter(imaging.New(g.Width, g.Height, color.NRGBA{}), resized)

	return imaging.OverlayCenter(imaging.New(g.Width, g.Height, g.Backdrop), contained, 1.0)
}

type opaqueMode struct{}

func (opaqueMode) String() string { return "opaque" }

// fit fills the box, cropping the excess around the centre, then flattens
// any leftover alpha onto the backdrop.
func (opaqueMode) fit(src image.Image, g Geometry, filter imaging.ResampleFilter) *image.NRGBA {
	filled := imaging.Fill(src, g.Width, g.Height, imaging.Center, filter)

	return imaging.OverlayCenter(imaging.New(g.Width, g.Height, g.Backdrop), filled, 1.0)
}

// Compositor renders a bordered passport photo from image bytes.
type Compositor interface {
	Compose(data []byte, mode Mode, geometry Geometry) ([]byte, error)
}

// ImageCompositor is the imaging-backed Compositor. It holds no mutable
// state and may be shared between goroutines.
type ImageCompositor struct {
	filter imaging.ResampleFilter
}

func NewImageCompositor() *ImageCompositor {
	return &ImageCompositor{filter: imaging.Lanczos}
}

// Compose decodes data, fits it according to mode, frames it with the
// border colour and returns the result as PNG.
func (c *ImageCompositor) Compose(data []byte, mode Mode, geometry Geometry) (out []byte, err error) {
	if err := geometry.Validate(); err != nil {
		return nil, err
	}
	if mode == nil {
		return nil, fmt.Errorf("%w: no mode", ErrComposition)
	}

	src, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %s: %v", ErrComposition, mode, r)
		}
	}()

	framed := extend(mode.fit(src, geometry, c.filter), geometry.BorderWidth, geometry.Border)

	var buf bytes.Buffer
	if err := png.Encode(&buf, framed); err != nil {
		return nil, fmt.Errorf("%w: png: %v", ErrComposition, err)
	}
	return buf.Bytes(), nil
}

// DecodeImage decodes JPEG, PNG, GIF or WebP, applying EXIF orientation.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		// image.Decode misses some extended WebP variants.
		if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
			img, err = wimg, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: zero-sized image", ErrDecode)
	}
	return img, nil
}

// extend grows img by border pixels on every side, filled with c.
func extend(img *image.NRGBA, border int, c color.NRGBA) *image.NRGBA {
	b := img.Bounds()
	canvas := imaging.New(b.Dx()+2*border, b.Dy()+2*border, c)
	return imaging.Paste(canvas, img, image.Pt(border, border))
}

// containSize returns the largest size with the source aspect ratio that
// fits inside boxW x boxH.
func containSize(srcW, srcH, boxW, boxH int) (int, int) {
	scale := math.Min(float64(boxW)/float64(srcW), float64(boxH)/float64(srcH))
	w := int(math.Round(float64(srcW) * scale))
	h := int(math.Round(float64(srcH) * scale))
	return min(max(w, 1), boxW), min(max(h, 1), boxH)
}
