package segmentation

import (
	"image"

	"github.com/Shanayardptrial/Passport-Photo-maker/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Scene levels, from easiest to hardest to segment.
const (
	LevelSimple   = "simple"
	LevelMedium   = "medium"
	LevelPortrait = "portrait"
	LevelComplex  = "complex"
)

// SceneInfo summarises what the analyzer found in an image.
type SceneInfo struct {
	Level         string
	EdgeDensity   float64
	ColorVariance float64
	IsPortrait    bool
	HasFace       bool
	Face          image.Rectangle
}

// SceneAnalyzer classifies an image and locates the face used to seed
// GrabCut for a head-and-shoulders shot.
type SceneAnalyzer struct {
	cascadePath string
}

func NewSceneAnalyzer(cascadePath string) *SceneAnalyzer {
	return &SceneAnalyzer{cascadePath: cascadePath}
}

func (sa *SceneAnalyzer) Analyze(img *gocv.Mat) SceneInfo {
	info := SceneInfo{
		EdgeDensity:   edgeDensity(img),
		ColorVariance: colorVariance(img),
	}

	if face, ok := sa.largestFace(img); ok {
		info.HasFace, info.Face = true, face
	}
	info.IsPortrait = info.HasFace || sa.skinRatio(img) > 0.15

	switch {
	case info.IsPortrait:
		info.Level = LevelPortrait
	case info.EdgeDensity < 0.05 && info.ColorVariance < 30:
		info.Level = LevelSimple
	case info.EdgeDensity > 0.15 || info.ColorVariance > 60:
		info.Level = LevelComplex
	default:
		info.Level = LevelMedium
	}
	return info
}

func (sa *SceneAnalyzer) largestFace(img *gocv.Mat) (image.Rectangle, bool) {
	if sa.cascadePath == "" {
		return image.Rectangle{}, false
	}

	classifier := gocv.NewCascadeClassifier()
	defer classifier.Close()
	if !classifier.Load(sa.cascadePath) {
		utils.Logger.Debug("face cascade unavailable", zap.String("path", sa.cascadePath))
		return image.Rectangle{}, false
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)

	var best image.Rectangle
	for _, r := range classifier.DetectMultiScale(gray) {
		if r.Dx()*r.Dy() > best.Dx()*best.Dy() {
			best = r
		}
	}
	return best, !best.Empty()
}

// DetectSkin returns a mask of pixels inside the YCrCb skin range.
func (sa *SceneAnalyzer) DetectSkin(img *gocv.Mat) gocv.Mat {
	ycrcb := gocv.NewMat()
	defer ycrcb.Close()
	gocv.CvtColor(*img, &ycrcb, gocv.ColorBGRToYCrCb)

	lower := gocv.Scalar{Val1: 0, Val2: 133, Val3: 77, Val4: 0}
	upper := gocv.Scalar{Val1: 255, Val2: 173, Val3: 127, Val4: 255}

	skin := gocv.NewMat()
	gocv.InRangeWithScalar(ycrcb, lower, upper, &skin)

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 5, Y: 5})
	defer kernel.Close()
	gocv.MorphologyEx(skin, &skin, gocv.MorphClose, kernel)
	gocv.MorphologyEx(skin, &skin, gocv.MorphOpen, kernel)

	return skin
}

func (sa *SceneAnalyzer) skinRatio(img *gocv.Mat) float64 {
	skin := sa.DetectSkin(img)
	defer skin.Close()
	return float64(gocv.CountNonZero(skin)) / float64(img.Rows()*img.Cols())
}

// EnhancePortraitMask adds dilated skin regions to the mask so that faces
// and hands are not eaten by GrabCut.
func (sa *SceneAnalyzer) EnhancePortraitMask(mask, img *gocv.Mat) gocv.Mat {
	skin := sa.DetectSkin(img)
	defer skin.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 15, Y: 15})
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(skin, &dilated, kernel)

	enhanced := gocv.NewMat()
	gocv.BitwiseOr(*mask, dilated, &enhanced)
	return enhanced
}

func edgeDensity(img *gocv.Mat) float64 {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 50, 150)

	return float64(gocv.CountNonZero(edges)) / float64(img.Rows()*img.Cols())
}

// colorVariance is the mean per-channel standard deviation in Lab space.
func colorVariance(img *gocv.Mat) float64 {
	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(*img, &lab, gocv.ColorBGRToLab)

	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()
	gocv.MeanStdDev(lab, &mean, &stddev)

	variance := 0.0
	for i := 0; i < stddev.Rows(); i++ {
		variance += stddev.GetDoubleAt(i, 0)
	}
	return variance / float64(stddev.Rows())
}
