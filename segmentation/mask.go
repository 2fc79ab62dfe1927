package segmentation

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// GrabCut mask labels.
const (
	labelBackground         = 0
	labelForeground         = 1
	labelProbableBackground = 2
	labelProbableForeground = 3
)

// MaskProcessor cleans up binary foreground masks.
type MaskProcessor struct{}

func NewMaskProcessor() *MaskProcessor {
	return &MaskProcessor{}
}

// ExtractForeground maps a GrabCut label mask to 255 for sure and probable
// foreground, 0 elsewhere.
func (mp *MaskProcessor) ExtractForeground(mask *gocv.Mat) gocv.Mat {
	sure := labelMask(mask, labelForeground)
	defer sure.Close()
	probable := labelMask(mask, labelProbableForeground)
	defer probable.Close()

	combined := gocv.NewMat()
	gocv.BitwiseOr(sure, probable, &combined)
	return combined
}

func labelMask(mask *gocv.Mat, label float64) gocv.Mat {
	value := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(label, 0, 0, 0), mask.Rows(), mask.Cols(), gocv.MatTypeCV8U)
	defer value.Close()

	out := gocv.NewMat()
	gocv.Compare(*mask, value, &out, gocv.CompareEQ)
	return out
}

// MorphologyOptimize opens then closes the mask with an elliptic kernel.
func (mp *MaskProcessor) MorphologyOptimize(mask *gocv.Mat, kernelSize int) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: kernelSize, Y: kernelSize})
	defer kernel.Close()

	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyEx(*mask, &opened, gocv.MorphOpen, kernel)

	closed := gocv.NewMat()
	gocv.MorphologyEx(opened, &closed, gocv.MorphClose, kernel)
	return closed
}

// RefineEdges smooths jagged contours while keeping the mask binary.
func (mp *MaskProcessor) RefineEdges(mask *gocv.Mat) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 2, Y: 2})
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(*mask, &dilated, kernel)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(dilated, &blurred, image.Point{X: 3, Y: 3}, 0, 0, gocv.BorderDefault)

	final := gocv.NewMat()
	gocv.Threshold(blurred, &final, 127, 255, gocv.ThresholdBinary)
	return final
}

// KeepLargest drops every connected region except the largest one.
// The returned Mat is always new.
func (mp *MaskProcessor) KeepLargest(mask *gocv.Mat) gocv.Mat {
	contours := gocv.FindContours(*mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return mask.Clone()
	}

	maxArea := 0.0
	maxIndex := 0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > maxArea {
			maxArea = area
			maxIndex = i
		}
	}

	largest := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), mask.Rows(), mask.Cols(), gocv.MatTypeCV8U)
	gocv.DrawContours(&largest, contours, maxIndex, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
	return largest
}

// Feather softens the binary mask into an alpha matte.
func (mp *MaskProcessor) Feather(mask *gocv.Mat) gocv.Mat {
	alpha := gocv.NewMat()
	gocv.GaussianBlur(*mask, &alpha, image.Point{X: 5, Y: 5}, 0, 0, gocv.BorderReplicate)
	return alpha
}
