package segmentation

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/Shanayardptrial/Passport-Photo-maker/config"
	"github.com/Shanayardptrial/Passport-Photo-maker/model"
	"github.com/Shanayardptrial/Passport-Photo-maker/service"
	"github.com/Shanayardptrial/Passport-Photo-maker/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// workingSize bounds the long side of the image GrabCut runs on.
const workingSize = 1200

// minSide is the smallest width or height GrabCut is attempted on.
const minSide = 32

var errQueueFull = errors.New("segmentation queue is full")

// GrabCutRemover separates the subject locally with OpenCV GrabCut and
// writes the foreground mask into the alpha channel of the result.
type GrabCutRemover struct {
	iterations        int
	borderSize        int
	maxForegroundOnly bool
	semaphore         chan struct{}
	queueTimeout      time.Duration
	scene             *SceneAnalyzer
	saliency          *SaliencyDetector
	masks             *MaskProcessor
}

func NewGrabCutRemover(cfg *config.GrabCutConfig) *GrabCutRemover {
	return &GrabCutRemover{
		iterations:        cfg.Iterations,
		borderSize:        cfg.BorderSize,
		maxForegroundOnly: cfg.MaxForegroundOnly,
		semaphore:         make(chan struct{}, max(cfg.MaxConcurrent, 1)),
		queueTimeout:      time.Duration(cfg.QueueTimeout) * time.Second,
		scene:             NewSceneAnalyzer(cfg.CascadePath),
		saliency:          NewSaliencyDetector(),
		masks:             NewMaskProcessor(),
	}
}

// Remove implements service.Remover.
func (s *GrabCutRemover) Remove(ctx context.Context, raw model.RawImage) ([]byte, error) {
	queueCtx := ctx
	if s.queueTimeout > 0 {
		var cancel context.CancelFunc
		queueCtx, cancel = context.WithTimeout(ctx, s.queueTimeout)
		defer cancel()
	}

	select {
	case s.semaphore <- struct{}{}:
		defer func() { <-s.semaphore }()
	case <-queueCtx.Done():
		return nil, fmt.Errorf("%w: %v", service.ErrRemovalFailed, errQueueFull)
	}

	start := time.Now()

	img, err := gocv.IMDecode(raw.Data, gocv.IMReadColor)
	defer img.Close()
	if err != nil || img.Empty() {
		return nil, fmt.Errorf("%w: opencv could not decode input", service.ErrRemovalFailed)
	}

	width, height := img.Cols(), img.Rows()

	fgMask, scene, err := s.segment(ctx, &img)
	if err != nil {
		return nil, err
	}
	defer fgMask.Close()

	// back to the original resolution
	if fgMask.Cols() != width || fgMask.Rows() != height {
		resized := gocv.NewMat()
		gocv.Resize(fgMask, &resized, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationLinear)
		gocv.Threshold(resized, &resized, 127, 255, gocv.ThresholdBinary)
		fgMask.Close()
		fgMask = resized
	}

	if s.maxForegroundOnly {
		largest := s.masks.KeepLargest(&fgMask)
		fgMask.Close()
		fgMask = largest
	}

	coverage := float64(gocv.CountNonZero(fgMask)) / float64(width*height)
	if coverage < 0.02 {
		return nil, fmt.Errorf("%w: no subject found (coverage %.3f)", service.ErrRemovalFailed, coverage)
	}

	alpha := s.masks.Feather(&fgMask)
	defer alpha.Close()

	cutout, err := encodeCutout(&img, &alpha)
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("grabcut cutout produced",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.String("scene", scene.Level),
		zap.Bool("face", scene.HasFace),
		zap.Float64("coverage", coverage),
		zap.Duration("duration", time.Since(start)))

	return cutout, nil
}

// segment returns a binary foreground mask at working resolution.
func (s *GrabCutRemover) segment(ctx context.Context, img *gocv.Mat) (gocv.Mat, SceneInfo, error) {
	scaled := shrink(img, workingSize)
	defer scaled.Close()

	w, h := scaled.Cols(), scaled.Rows()
	if w < minSide || h < minSide {
		return gocv.Mat{}, SceneInfo{}, fmt.Errorf("%w: image too small to segment (%dx%d)", service.ErrRemovalFailed, w, h)
	}
	scene := s.scene.Analyze(&scaled)

	var (
		initRect image.Rectangle
		mask     = gocv.NewMat()
	)
	switch {
	case scene.HasFace && portraitRect(scene.Face, w, h).Dx() > 2:
		initRect = portraitRect(scene.Face, w, h)
	case scene.Level != LevelComplex:
		border := s.borderSize
		if border < 10 {
			border = int(float64(w) * 0.05)
		}
		initRect = image.Rect(border, border, w-border, h-border)
	default:
		saliencyMap := s.saliency.Detect(&scaled)
		initRect = s.saliency.ExtractRect(&saliencyMap, w, h)
		mask.Close()
		mask = s.saliency.CreateMask(&saliencyMap, w, h)
		saliencyMap.Close()
	}
	defer mask.Close()

	if err := ctx.Err(); err != nil {
		return gocv.Mat{}, scene, fmt.Errorf("%w: %v", service.ErrRemovalFailed, err)
	}

	bgdModel := gocv.NewMat()
	defer bgdModel.Close()
	fgdModel := gocv.NewMat()
	defer fgdModel.Close()

	iterations := s.iterations
	switch scene.Level {
	case LevelSimple:
		iterations = max(3, s.iterations-2)
	case LevelPortrait:
		iterations = s.iterations + 1
	case LevelComplex:
		iterations = s.iterations + 2
	}

	if mask.Empty() {
		gocv.GrabCut(scaled, &mask, initRect, &bgdModel, &fgdModel, iterations, gocv.GCInitWithRect)
	} else {
		gocv.GrabCut(scaled, &mask, image.Rectangle{}, &bgdModel, &fgdModel, iterations, gocv.GCInitWithMask)
	}
	if scene.Level != LevelSimple {
		gocv.GrabCut(scaled, &mask, image.Rectangle{}, &bgdModel, &fgdModel, 2, gocv.GCInitWithMask)
	}

	if err := ctx.Err(); err != nil {
		return gocv.Mat{}, scene, fmt.Errorf("%w: %v", service.ErrRemovalFailed, err)
	}

	fgMask := s.masks.ExtractForeground(&mask)

	if scene.IsPortrait {
		enhanced := s.scene.EnhancePortraitMask(&fgMask, &scaled)
		fgMask.Close()
		fgMask = enhanced
	}

	kernelSize := 3
	if scene.Level == LevelComplex || scene.Level == LevelPortrait {
		kernelSize = 5
	}
	optimized := s.masks.MorphologyOptimize(&fgMask, kernelSize)
	fgMask.Close()
	fgMask = optimized

	if scene.Level != LevelSimple {
		refined := s.masks.RefineEdges(&fgMask)
		fgMask.Close()
		fgMask = refined
	}

	return fgMask, scene, nil
}

// portraitRect expands a face box to head and shoulders: three face widths
// wide, from just above the hairline to the bottom edge.
func portraitRect(face image.Rectangle, w, h int) image.Rectangle {
	cx := (face.Min.X + face.Max.X) / 2
	fw, fh := face.Dx(), face.Dy()
	r := image.Rect(cx-3*fw/2, face.Min.Y-fh*6/10, cx+3*fw/2, h-1)
	return r.Intersect(image.Rect(1, 1, w-1, h-1))
}

// shrink scales img so its long side is at most maxSize.
func shrink(img *gocv.Mat, maxSize int) gocv.Mat {
	width, height := img.Cols(), img.Rows()
	maxDim := max(width, height)
	if maxDim <= maxSize {
		return img.Clone()
	}

	scale := float64(maxSize) / float64(maxDim)
	resized := gocv.NewMat()
	gocv.Resize(*img, &resized, image.Point{X: int(float64(width) * scale), Y: int(float64(height) * scale)}, 0, 0, gocv.InterpolationArea)
	return resized
}

// encodeCutout merges the BGR image with alpha and encodes it as PNG.
func encodeCutout(img, alpha *gocv.Mat) ([]byte, error) {
	bgra := gocv.NewMat()
	defer bgra.Close()
	gocv.CvtColor(*img, &bgra, gocv.ColorBGRToBGRA)

	channels := gocv.Split(bgra)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	alpha.CopyTo(&channels[3])

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(channels, &merged)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, merged)
	if err != nil {
		return nil, fmt.Errorf("%w: encode cutout: %v", service.ErrRemovalFailed, err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}
