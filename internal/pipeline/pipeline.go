// Package pipeline provides the presentation boundary: the operations a
// frontend drives to load a video, select a filter mode, run the batch
// stages and navigate the resulting frames.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/framelens/framelens/internal/batch"
	"github.com/framelens/framelens/internal/filter"
	"github.com/framelens/framelens/internal/ocr"
	"github.com/framelens/framelens/internal/store"
	"github.com/framelens/framelens/internal/video"
)

// ErrBatchRunning is returned when a new batch or a reconfiguration is
// requested while another batch operation is still in flight.
var ErrBatchRunning = errors.New("a batch operation is already running")

// Options holds the pipeline's directory layout and processing defaults.
type Options struct {
	// FramesRoot is where extracted frames are written and loaded from.
	FramesRoot string
	// FrameInterval is the extraction stride.
	FrameInterval int
	// EnhanceText enables the extra contrast/morphology pass before OCR.
	EnhanceText bool
}

// Pipeline orchestrates extraction, filtering, OCR and navigation over a
// single frame store. One batch operation runs at a time; navigation stays
// available while a batch fills slots.
type Pipeline struct {
	mu sync.Mutex

	extractor *video.Extractor
	store     *store.Store
	engine    ocr.Engine
	engineCfg ocr.Config
	logger    *slog.Logger

	framesRoot  string
	interval    int
	enhanceText bool
	mode        filter.Mode

	current *batch.Operation
}

// New creates a Pipeline. The engine configuration is retained so that
// SetEnginePath can swap the data path without losing the language set.
func New(extractor *video.Extractor, st *store.Store, engine ocr.Engine, engineCfg ocr.Config, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.FrameInterval
	if interval < 1 {
		interval = 1
	}
	return &Pipeline{
		extractor:   extractor,
		store:       st,
		engine:      engine,
		engineCfg:   engineCfg,
		logger:      logger,
		framesRoot:  opts.FramesRoot,
		interval:    interval,
		enhanceText: opts.EnhanceText,
		mode:        filter.EdgeDetection,
	}
}

// LoadVideo extracts frames from videoPath into the frames root and, on
// success, loads the resulting file list into the store. The returned
// operation reports extraction progress and terminates with the kept
// frame count.
func (p *Pipeline) LoadVideo(ctx context.Context, videoPath string) (*batch.Operation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busyLocked() {
		return nil, ErrBatchRunning
	}

	op, runCtx := batch.Start(ctx, batch.KindExtract)
	p.current = op

	p.logger.Info("loading video",
		slog.String("path", videoPath),
		slog.Int("interval", p.interval),
	)

	go func() {
		count, err := p.extractor.Extract(runCtx, videoPath, p.framesRoot, p.interval, op.ReportProgress)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				_ = op.MarkCancelled()
				return
			}
			_ = op.Fail(err)
			return
		}
		if err := p.store.Load(p.framesRoot); err != nil {
			_ = op.Fail(fmt.Errorf("load extracted frames: %w", err))
			return
		}
		_ = op.Complete(count)
	}()

	return op, nil
}

// SetProcessingMode selects the filter applied by ProcessAllFrames.
func (p *Pipeline) SetProcessingMode(mode filter.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", filter.ErrUnsupportedMode, int(mode))
	}
	p.mu.Lock()
	p.mode = mode
	p.mu.Unlock()

	p.logger.Info("processing mode set", slog.String("mode", mode.String()))
	return nil
}

// Mode returns the currently selected filter mode.
func (p *Pipeline) Mode() filter.Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// SetEnhanceText toggles the extra OCR enhancement pass.
func (p *Pipeline) SetEnhanceText(enabled bool) {
	p.mu.Lock()
	p.enhanceText = enabled
	p.mu.Unlock()
}

// EnhanceText reports whether the enhancement pass is enabled.
func (p *Pipeline) EnhanceText() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enhanceText
}

// ProcessAllFrames applies the selected mode to every loaded frame.
func (p *Pipeline) ProcessAllFrames(ctx context.Context) (*batch.Operation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busyLocked() {
		return nil, ErrBatchRunning
	}

	op, err := p.store.ProcessAll(ctx, p.mode)
	if err != nil {
		return nil, err
	}
	p.current = op
	return op, nil
}

// RunOCR recognizes text in every processed frame.
func (p *Pipeline) RunOCR(ctx context.Context) (*batch.Operation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busyLocked() {
		return nil, ErrBatchRunning
	}

	op, err := p.store.ProcessAllOCR(ctx, p.enhanceText)
	if err != nil {
		return nil, err
	}
	p.current = op
	return op, nil
}

// RecognizeCurrent runs OCR on the frame at the cursor, synchronously, and
// returns the updated triple. Used for the interactive detect-text action.
func (p *Pipeline) RecognizeCurrent(ctx context.Context) (store.Triple, error) {
	p.mu.Lock()
	if p.busyLocked() {
		p.mu.Unlock()
		return store.Triple{}, ErrBatchRunning
	}
	enhance := p.enhanceText
	p.mu.Unlock()

	current, err := p.store.Current()
	if err != nil {
		return store.Triple{}, err
	}
	return p.store.RecognizeAt(ctx, current.Index, enhance)
}

// SetEnginePath points the OCR engine at a different installed data path.
// The engine configuration is process-wide and read-only while a batch is
// in flight, so reconfiguration is refused until the batch terminates.
func (p *Pipeline) SetEnginePath(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busyLocked() {
		return ErrBatchRunning
	}

	p.engineCfg.TessdataPrefix = path
	p.engine.Configure(p.engineCfg)

	p.logger.Info("ocr engine path updated", slog.String("path", path))
	return nil
}

// SetLanguages replaces the OCR language set, e.g. "eng" or "eng+jpn".
func (p *Pipeline) SetLanguages(languages string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busyLocked() {
		return ErrBatchRunning
	}

	p.engineCfg.Languages = languages
	p.engine.Configure(p.engineCfg)
	return nil
}

// Current returns the triple at the cursor.
func (p *Pipeline) Current() (store.Triple, error) { return p.store.Current() }

// Next advances to the next frame.
func (p *Pipeline) Next() (store.Triple, error) { return p.store.Next() }

// Prev moves back one frame.
func (p *Pipeline) Prev() (store.Triple, error) { return p.store.Prev() }

// Seek jumps to a frame index.
func (p *Pipeline) Seek(index int) (store.Triple, error) { return p.store.Seek(index) }

// FrameCount returns the number of loaded frames.
func (p *Pipeline) FrameCount() int { return p.store.Len() }

// ResultAt returns the structured recognition result for a frame index.
func (p *Pipeline) ResultAt(index int) (*ocr.Result, bool) { return p.store.ResultAt(index) }

// CancelBatch requests cooperative cancellation of the in-flight batch
// operation, if any. The operation transitions to CANCELLED once its
// dispatched workers drain; partial results remain navigable.
func (p *Pipeline) CancelBatch() {
	p.mu.Lock()
	op := p.current
	p.mu.Unlock()
	if op != nil && !op.IsTerminal() {
		op.Cancel()
	}
}

// Busy reports whether a batch operation is in flight.
func (p *Pipeline) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busyLocked()
}

func (p *Pipeline) busyLocked() bool {
	return p.current != nil && !p.current.IsTerminal()
}
