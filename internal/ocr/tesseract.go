package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Compile-time check that TesseractEngine implements Engine.
var _ Engine = (*TesseractEngine)(nil)

// TesseractEngine implements Engine using the gosseract binding.
// A fresh client is created per recognition so the engine can be driven
// concurrently from batch workers; the configuration is shared and
// read-only while a batch is in flight.
type TesseractEngine struct {
	mu  sync.RWMutex
	cfg Config
}

// NewTesseractEngine creates a TesseractEngine with the given configuration.
// Empty languages default to "eng"; a zero page segmentation mode defaults
// to DefaultPageSegMode.
func NewTesseractEngine(cfg Config) *TesseractEngine {
	if cfg.Languages == "" {
		cfg.Languages = "eng"
	}
	if cfg.PageSegMode == 0 {
		cfg.PageSegMode = DefaultPageSegMode
	}
	return &TesseractEngine{cfg: cfg}
}

// Configure replaces the engine configuration.
func (e *TesseractEngine) Configure(cfg Config) {
	if cfg.Languages == "" {
		cfg.Languages = "eng"
	}
	if cfg.PageSegMode == 0 {
		cfg.PageSegMode = DefaultPageSegMode
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

// Languages returns the configured language set.
func (e *TesseractEngine) Languages() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.Languages
}

// Recognize runs Tesseract over an encoded binary image and returns the
// full text plus word-level tokens. Configuration failures are classified
// as ErrEngineUnavailable; failures on the image itself are returned as
// plain errors for the caller to scope to the frame.
func (e *TesseractEngine) Recognize(ctx context.Context, img []byte) (string, []Word, error) {
	select {
	case <-ctx.Done():
		return "", nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	e.mu.RLock()
	cfg := e.cfg
	e.mu.RUnlock()

	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			return "", nil, fmt.Errorf("%w: set tessdata prefix %s: %v", ErrEngineUnavailable, cfg.TessdataPrefix, err)
		}
	}
	if err := client.SetLanguage(cfg.Languages); err != nil {
		return "", nil, fmt.Errorf("%w: set language %s: %v", ErrEngineUnavailable, cfg.Languages, err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
		return "", nil, fmt.Errorf("%w: set page segmentation mode %d: %v", ErrEngineUnavailable, cfg.PageSegMode, err)
	}

	if err := client.SetImageFromBytes(img); err != nil {
		return "", nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return "", nil, fmt.Errorf("word boxes: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", nil, fmt.Errorf("text: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		words = append(words, Word{
			Text:       b.Word,
			Confidence: b.Confidence,
			Box:        b.Box,
		})
	}

	return strings.TrimSpace(text), words, nil
}
