// Package filter provides the raster filter bank: a fixed set of
// image-to-image transforms applied to grayscale frames, plus the
// preprocessing primitives shared with the OCR adapter.
package filter

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Static errors for filter operations.
var (
	// ErrUnsupportedMode is returned when a processing mode is not part of
	// the dispatch table.
	ErrUnsupportedMode = errors.New("unsupported processing mode")
	// ErrNotGrayscale is returned when the input image is not single-channel.
	ErrNotGrayscale = errors.New("input image must be single-channel grayscale")
	// ErrEmptyImage is returned when the input image has no data.
	ErrEmptyImage = errors.New("input image is empty")
)

// Mode selects one transform from the filter bank. The set is closed;
// adding a mode requires extending the dispatch switch in Apply.
type Mode int

const (
	// EdgeDetection applies a Gaussian blur followed by Canny edge detection.
	EdgeDetection Mode = iota
	// Thresholding applies a Gaussian blur followed by Otsu binarization.
	Thresholding
	// MorphologicalOps applies a Gaussian blur followed by a morphological close.
	MorphologicalOps
	// AdaptiveThreshold applies Gaussian adaptive thresholding.
	AdaptiveThreshold
	// GaussianBlur applies a 5x5 Gaussian blur.
	GaussianBlur
	// Sharpen convolves with a 3x3 sharpening kernel.
	Sharpen
	// HistogramEqualization applies global histogram equalization.
	HistogramEqualization
	// MedianBlur applies a median filter with kernel size 5.
	MedianBlur
	// BilateralFilter applies an edge-preserving bilateral filter.
	BilateralFilter
)

// modeNames maps modes to the display names used for parsing and logging.
var modeNames = map[Mode]string{
	EdgeDetection:         "Edge Detection",
	Thresholding:          "Thresholding",
	MorphologicalOps:      "Morphological Operations",
	AdaptiveThreshold:     "Adaptive Thresholding",
	GaussianBlur:          "Gaussian Blur",
	Sharpen:               "Sharpening",
	HistogramEqualization: "Histogram Equalization",
	MedianBlur:            "Median Blur",
	BilateralFilter:       "Bilateral Filter",
}

// String returns the display name of the mode.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Valid returns true if the mode is part of the dispatch table.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// ParseMode resolves a display name to a Mode.
// Returns ErrUnsupportedMode for unknown names.
func ParseMode(name string) (Mode, error) {
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedMode, name)
}

// Modes returns all supported modes in declaration order.
func Modes() []Mode {
	return []Mode{
		EdgeDetection,
		Thresholding,
		MorphologicalOps,
		AdaptiveThreshold,
		GaussianBlur,
		Sharpen,
		HistogramEqualization,
		MedianBlur,
		BilateralFilter,
	}
}

// Apply runs the transform selected by mode over a single-channel grayscale
// image and returns a new Mat. The caller owns the returned Mat and must
// close it. Apply is pure: the input is never modified and identical input
// bytes produce identical output bytes.
func Apply(mode Mode, src gocv.Mat) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.Mat{}, ErrEmptyImage
	}
	if src.Channels() != 1 {
		return gocv.Mat{}, fmt.Errorf("%w: got %d channels", ErrNotGrayscale, src.Channels())
	}

	dst := gocv.NewMat()

	switch mode {
	case EdgeDetection:
		blurred := gocv.NewMat()
		defer blurred.Close()
		gocv.GaussianBlur(src, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)
		gocv.Canny(blurred, &dst, 50, 150)

	case Thresholding:
		blurred := gocv.NewMat()
		defer blurred.Close()
		gocv.GaussianBlur(src, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)
		gocv.Threshold(blurred, &dst, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	case MorphologicalOps:
		blurred := gocv.NewMat()
		defer blurred.Close()
		gocv.GaussianBlur(src, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)
		kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
		defer kernel.Close()
		gocv.MorphologyEx(blurred, &dst, gocv.MorphClose, kernel)

	case AdaptiveThreshold:
		gocv.AdaptiveThreshold(src, &dst, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, 11, 2)

	case GaussianBlur:
		gocv.GaussianBlur(src, &dst, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	case Sharpen:
		kernel := sharpenKernel()
		defer kernel.Close()
		gocv.Filter2D(src, &dst, -1, kernel, image.Pt(-1, -1), 0, gocv.BorderDefault)

	case HistogramEqualization:
		gocv.EqualizeHist(src, &dst)

	case MedianBlur:
		gocv.MedianBlur(src, &dst, 5)

	case BilateralFilter:
		gocv.BilateralFilter(src, &dst, 9, 75, 75)

	default:
		dst.Close()
		return gocv.Mat{}, fmt.Errorf("%w: %d", ErrUnsupportedMode, int(mode))
	}

	return dst, nil
}

// sharpenKernel builds the 3x3 sharpening convolution kernel
// [[0,-1,0],[-1,5,-1],[0,-1,0]].
func sharpenKernel() gocv.Mat {
	kernel := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
	values := [3][3]float32{
		{0, -1, 0},
		{-1, 5, -1},
		{0, -1, 0},
	}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			kernel.SetFloatAt(row, col, values[row][col])
		}
	}
	return kernel
}
