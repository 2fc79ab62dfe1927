package segmentation

import (
	"image"

	"gocv.io/x/gocv"
)

// SaliencyDetector finds the high-gradient region that most likely holds
// the subject when no face is available to seed GrabCut.
type SaliencyDetector struct{}

func NewSaliencyDetector() *SaliencyDetector {
	return &SaliencyDetector{}
}

// Detect returns a binary saliency map from blurred Sobel gradients.
func (sd *SaliencyDetector) Detect(img *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)

	gradX := gocv.NewMat()
	defer gradX.Close()
	gradY := gocv.NewMat()
	defer gradY.Close()
	gocv.Sobel(gray, &gradX, gocv.MatTypeCV16S, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &gradY, gocv.MatTypeCV16S, 0, 1, 3, 1, 0, gocv.BorderDefault)

	absGradX := gocv.NewMat()
	defer absGradX.Close()
	absGradY := gocv.NewMat()
	defer absGradY.Close()
	gocv.ConvertScaleAbs(gradX, &absGradX, 1, 0)
	gocv.ConvertScaleAbs(gradY, &absGradY, 1, 0)

	gradient := gocv.NewMat()
	defer gradient.Close()
	gocv.AddWeighted(absGradX, 0.5, absGradY, 0.5, 0, &gradient)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gradient, &blurred, image.Point{X: 21, Y: 21}, 0, 0, gocv.BorderDefault)

	saliency := gocv.NewMat()
	gocv.Threshold(blurred, &saliency, 0, 255, gocv.ThresholdOtsu)
	return saliency
}

// ExtractRect bounds the largest salient region with 5% padding.
func (sd *SaliencyDetector) ExtractRect(saliency *gocv.Mat, width, height int) image.Rectangle {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 21, Y: 21})
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(*saliency, &dilated, kernel)

	contours := gocv.FindContours(dilated, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		border := int(float64(width) * 0.1)
		return image.Rect(border, border, width-border, height-border)
	}

	var maxRect image.Rectangle
	maxArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > maxArea {
			maxArea = area
			maxRect = gocv.BoundingRect(contours.At(i))
		}
	}

	padding := int(float64(maxRect.Dx()) * 0.05)
	return image.Rect(
		maxRect.Min.X-padding, maxRect.Min.Y-padding,
		maxRect.Max.X+padding, maxRect.Max.Y+padding,
	).Intersect(image.Rect(0, 0, width, height))
}

// CreateMask builds a GrabCut seed mask: a sure-background frame 3% wide,
// probable foreground over salient pixels and probable background elsewhere.
func (sd *SaliencyDetector) CreateMask(saliency *gocv.Mat, width, height int) gocv.Mat {
	seed := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(labelProbableBackground, 0, 0, 0), height, width, gocv.MatTypeCV8U)
	defer seed.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 11, Y: 11})
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(*saliency, &dilated, kernel)

	salient := gocv.NewMat()
	defer salient.Close()
	gocv.Threshold(dilated, &salient, 128, 255, gocv.ThresholdBinary)

	probable := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(labelProbableForeground, 0, 0, 0), height, width, gocv.MatTypeCV8U)
	defer probable.Close()
	probable.CopyToWithMask(&seed, salient)

	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(labelBackground, 0, 0, 0), height, width, gocv.MatTypeCV8U)

	border := int(float64(width) * 0.03)
	inner := image.Rect(border, border, width-border, height-border)
	if inner.Empty() {
		return mask
	}

	src := seed.Region(inner)
	defer src.Close()
	dst := mask.Region(inner)
	defer dst.Close()
	src.CopyTo(&dst)

	return mask
}
