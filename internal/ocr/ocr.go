// Package ocr provides the OCR adapter: it preprocesses raster frames into
// binary images, invokes the external OCR engine and normalizes its output
// into structured results with word-level confidence and bounding boxes.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// Static errors for OCR operations.
var (
	// ErrEngineUnavailable is returned when the OCR engine cannot be
	// initialized or its language data is missing. It is fatal to a batch.
	ErrEngineUnavailable = errors.New("ocr engine is not available")
	// ErrImageNotFound is returned when the frame image is missing or
	// unreadable. It is scoped to a single frame.
	ErrImageNotFound = errors.New("image missing or unreadable")
)

// UnknownConfidence is the engine sentinel marking a word whose confidence
// could not be determined. Such words are excluded from the aggregate.
const UnknownConfidence = -1

// RecognitionError reports a per-image recognition failure.
// Batches record it in the frame's slot and continue.
type RecognitionError struct {
	Path string
	Err  error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognize %s: %v", e.Path, e.Err)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// Word is a single recognized token with its confidence and bounding box
// in processed-image pixel coordinates.
type Word struct {
	Text       string
	Confidence float64
	Box        image.Rectangle
}

// Result is the normalized output of one recognition run.
type Result struct {
	// Text is the full concatenated text.
	Text string
	// Words lists recognized tokens in reading order.
	Words []Word
	// MeanConfidence is the arithmetic mean of all known word confidences,
	// or 0 when no word has a known confidence.
	MeanConfidence float64
}

// Config holds the engine configuration. It is set once at construction and
// reconfigured only between batches.
type Config struct {
	// Languages is the Tesseract language set, e.g. "eng" or "eng+fra".
	Languages string
	// TessdataPrefix points at the engine's installed language data.
	// Empty means the engine default.
	TessdataPrefix string
	// PageSegMode is the Tesseract page segmentation mode.
	PageSegMode int
}

// DefaultPageSegMode treats the image as a single uniform block of text.
const DefaultPageSegMode = 6

// Engine is the port to the external OCR engine. One invocation yields both
// the full text and the word-level tokens so the two can never diverge.
type Engine interface {
	// Recognize runs the engine over an encoded binary image.
	Recognize(ctx context.Context, img []byte) (text string, words []Word, err error)
	// Configure replaces the engine configuration.
	Configure(cfg Config)
}

// AggregateConfidence computes the arithmetic mean of all word confidences
// that the engine reported as known. Returns 0 when none are known.
func AggregateConfidence(words []Word) float64 {
	var sum float64
	known := 0
	for _, w := range words {
		if w.Confidence < 0 {
			continue
		}
		sum += w.Confidence
		known++
	}
	if known == 0 {
		return 0
	}
	return sum / float64(known)
}

// FormatResult renders a result as the detailed text block shown to the
// user: full text, aggregate confidence and per-word details.
func FormatResult(r *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Detected Text:\n%s\n\n", r.Text)
	fmt.Fprintf(&b, "Average Confidence: %.2f%%\n\n", r.MeanConfidence)
	b.WriteString("Word Details:\n")
	for _, w := range r.Words {
		fmt.Fprintf(&b, "Word: %q, Confidence: %.0f%%, Bounding Box: (x: %d, y: %d, w: %d, h: %d)\n",
			w.Text, w.Confidence, w.Box.Min.X, w.Box.Min.Y, w.Box.Dx(), w.Box.Dy())
	}
	return b.String()
}
