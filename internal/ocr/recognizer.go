package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/framelens/framelens/internal/filter"
)

// Recognizer runs the full single-image OCR contract: load, preprocess,
// optionally enhance, binarize, invoke the engine and aggregate confidence.
// Batch paths drive the same method per frame; there is no divergent logic.
type Recognizer struct {
	engine Engine
	logger *slog.Logger
}

// NewRecognizer creates a Recognizer over the given engine.
func NewRecognizer(engine Engine, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recognizer{engine: engine, logger: logger}
}

// RecognizeFile recognizes text in the processed frame stored at path.
// When enhance is set, contrast equalization and a morphological close are
// applied between preprocessing and binarization. The engine always
// receives a binary image, never grayscale.
//
// Missing images fail with ErrImageNotFound, engine configuration problems
// with ErrEngineUnavailable, and recognition failures with a
// *RecognitionError scoped to this image.
func (r *Recognizer) RecognizeFile(ctx context.Context, path string, enhance bool) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	img := gocv.IMRead(path, gocv.IMReadGrayScale)
	if img.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, path)
	}
	defer img.Close()

	pre, err := filter.PreprocessForOCR(img)
	if err != nil {
		return nil, fmt.Errorf("preprocess %s: %w", path, err)
	}
	defer pre.Close()

	work := pre
	if enhance {
		equalized := filter.EnhanceContrast(pre)
		closed := filter.MorphCloseText(equalized)
		equalized.Close()
		defer closed.Close()
		work = closed
	}

	binary := filter.Otsu(work)
	defer binary.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, binary)
	if err != nil {
		return nil, &RecognitionError{Path: path, Err: fmt.Errorf("encode: %w", err)}
	}
	defer buf.Close()

	text, words, err := r.engine.Recognize(ctx, buf.GetBytes())
	if err != nil {
		if errors.Is(err, ErrEngineUnavailable) {
			return nil, err
		}
		return nil, &RecognitionError{Path: path, Err: err}
	}

	result := &Result{
		Text:           text,
		Words:          words,
		MeanConfidence: AggregateConfidence(words),
	}

	r.logger.Debug("frame recognized",
		slog.String("path", path),
		slog.Int("words", len(words)),
		slog.Float64("mean_confidence", result.MeanConfidence),
	)

	return result, nil
}
