package filter

import (
	"image"

	"gocv.io/x/gocv"
)

// PreprocessForOCR applies the standard OCR preprocessing chain:
// a 5x5 Gaussian blur followed by Otsu binarization.
// The caller owns the returned Mat.
func PreprocessForOCR(src gocv.Mat) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.Mat{}, ErrEmptyImage
	}
	if src.Channels() != 1 {
		return gocv.Mat{}, ErrNotGrayscale
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(src, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	return Otsu(blurred), nil
}

// Otsu binarizes a grayscale image using Otsu's threshold.
// The caller owns the returned Mat.
func Otsu(src gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	gocv.Threshold(src, &dst, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	return dst
}

// EnhanceContrast applies global histogram equalization.
// The caller owns the returned Mat.
func EnhanceContrast(src gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	gocv.EqualizeHist(src, &dst)
	return dst
}

// MorphCloseText applies a morphological close with a 3x3 kernel to
// consolidate stroke gaps before recognition.
// The caller owns the returned Mat.
func MorphCloseText(src gocv.Mat) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()

	dst := gocv.NewMat()
	gocv.MorphologyEx(src, &dst, gocv.MorphClose, kernel)
	return dst
}
