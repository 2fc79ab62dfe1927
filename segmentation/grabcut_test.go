package segmentation

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/Shanayardptrial/Passport-Photo-maker/config"
	"github.com/Shanayardptrial/Passport-Photo-maker/model"
	"github.com/Shanayardptrial/Passport-Photo-maker/service"
	"gocv.io/x/gocv"
)

func testConfig() *config.GrabCutConfig {
	cfg := config.Default().Remover.GrabCut
	cfg.CascadePath = ""
	return &cfg
}

// subjectOnBackdrop draws a dark grey ellipse on a flat blue background.
func subjectOnBackdrop(t *testing.T, w, h int) []byte {
	t.Helper()

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(226, 144, 74, 0), h, w, gocv.MatTypeCV8UC3)
	defer img.Close()
	gocv.Ellipse(&img, image.Pt(w/2, h/2), image.Pt(w/4, h/3), 0, 0, 360, color.RGBA{R: 40, G: 40, B: 40, A: 255}, -1)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
	if err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...)
}

func TestGrabCutRemoverProducesCutout(t *testing.T) {
	r := NewGrabCutRemover(testConfig())

	out, err := r.Remove(context.Background(), model.RawImage{Data: subjectOnBackdrop(t, 300, 400), MIMEType: "image/png"})
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	cutout, err := gocv.IMDecode(out, gocv.IMReadUnchanged)
	if err != nil {
		t.Fatalf("cutout is not decodable: %v", err)
	}
	defer cutout.Close()

	if cutout.Cols() != 300 || cutout.Rows() != 400 || cutout.Channels() != 4 {
		t.Fatalf("cutout is %dx%d with %d channels", cutout.Cols(), cutout.Rows(), cutout.Channels())
	}

	alpha := func(x, y int) uint8 { return cutout.GetVecbAt(y, x)[3] }
	for _, p := range []image.Point{{0, 0}, {299, 0}, {0, 399}, {299, 399}} {
		if a := alpha(p.X, p.Y); a != 0 {
			t.Errorf("corner %v alpha %d, want 0", p, a)
		}
	}
	if a := alpha(150, 200); a < 128 {
		t.Errorf("subject centre alpha %d, want opaque", a)
	}
}

func TestGrabCutRemoverRejectsUndecodable(t *testing.T) {
	r := NewGrabCutRemover(testConfig())

	tests := []struct {
		name string
		data []byte
	}{
		{"empty buffer", nil},
		{"garbage bytes", []byte("not an image")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				_, err := r.Remove(context.Background(), model.RawImage{Data: tt.data})
				if !errors.Is(err, service.ErrRemovalFailed) {
					t.Fatalf("attempt %d: expected ErrRemovalFailed, got %v", i, err)
				}
			}
			if len(r.semaphore) != 0 {
				t.Errorf("%d slots still held after failed decodes", len(r.semaphore))
			}
		})
	}
}

func TestGrabCutRemoverQueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	cfg.QueueTimeout = 0
	r := NewGrabCutRemover(cfg)

	r.semaphore <- struct{}{}
	defer func() { <-r.semaphore }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Remove(ctx, model.RawImage{Data: subjectOnBackdrop(t, 64, 64)})
	if !errors.Is(err, service.ErrRemovalFailed) {
		t.Fatalf("expected ErrRemovalFailed, got %v", err)
	}
}

func TestPortraitRect(t *testing.T) {
	face := image.Rect(100, 80, 160, 140)

	r := portraitRect(face, 300, 400)
	if r.Min.X != 40 || r.Max.X != 220 {
		t.Errorf("expected three face widths around the centre, got %v", r)
	}
	if r.Min.Y != 44 || r.Max.Y != 399 {
		t.Errorf("expected hairline to bottom edge, got %v", r)
	}

	edge := portraitRect(image.Rect(0, 0, 100, 100), 150, 150)
	if !edge.In(image.Rect(1, 1, 149, 149)) {
		t.Errorf("rect %v not clipped to the image", edge)
	}
}
