package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/framelens/framelens/internal/batch"
	"github.com/framelens/framelens/internal/filter"
	"github.com/framelens/framelens/internal/ocr"
)

// filterOutcome carries one worker result back to the collector.
type filterOutcome struct {
	index int
	path  string
	err   error
}

// ocrOutcome carries one recognition result back to the collector.
type ocrOutcome struct {
	index int
	slot  Slot
}

// ProcessAll applies mode to every loaded frame, persisting each result
// under the processed root with the original basename. The returned
// operation completes in the background; per-frame failures are logged,
// leave that slot unset and do not abort the batch. Reprocessing clears
// every frame's OCR slot since text depends on the processed image.
func (s *Store) ProcessAll(ctx context.Context, mode filter.Mode) (*batch.Operation, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %d", filter.ErrUnsupportedMode, int(mode))
	}
	frames, _ := s.snapshot()
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	if !s.active.CompareAndSwap(false, true) {
		return nil, ErrBatchRunning
	}

	op, runCtx := batch.Start(ctx, batch.KindFilter)
	go s.runProcessAll(runCtx, op, mode, frames)
	return op, nil
}

func (s *Store) runProcessAll(ctx context.Context, op *batch.Operation, mode filter.Mode, frames []string) {
	defer s.active.Store(false)

	if err := os.MkdirAll(s.processedRoot, 0750); err != nil {
		_ = op.Fail(fmt.Errorf("create processed directory %s: %w", s.processedRoot, err))
		return
	}

	results := make(chan filterOutcome)
	go func() {
		g := new(errgroup.Group)
		g.SetLimit(s.workers)
		for i, src := range frames {
			if ctx.Err() != nil {
				break
			}
			dst := filepath.Join(s.processedRoot, filepath.Base(src))
			g.Go(func() error {
				results <- filterOutcome{
					index: i,
					path:  dst,
					err:   s.processor.ProcessFrame(ctx, src, dst, mode),
				}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	// Single collector: the only writer to the parallel slices while the
	// batch runs. Each outcome touches its own index only.
	completed, failed := 0, 0
	for out := range results {
		// A worker cut short by cancellation must not clear a slot that a
		// prior batch filled.
		if out.err != nil && errors.Is(out.err, context.Canceled) {
			continue
		}
		s.mu.Lock()
		if out.err != nil {
			s.processed[out.index] = ""
			failed++
		} else {
			s.processed[out.index] = out.path
		}
		// The processed image changed (or vanished), so any prior
		// recognition for this index is stale.
		s.texts[out.index] = Slot{}
		s.mu.Unlock()

		if out.err != nil {
			s.logger.Warn("frame processing failed",
				slog.Int("index", out.index),
				slog.String("error", out.err.Error()),
			)
		}

		completed++
		op.ReportProgress(completed * 100 / len(frames))
	}

	if ctx.Err() != nil {
		_ = op.MarkCancelled()
		s.logger.Info("frame processing cancelled",
			slog.Int("completed", completed),
			slog.Int("total", len(frames)),
		)
		return
	}

	_ = op.Complete(completed - failed)
	s.logger.Info("frame processing complete",
		slog.String("mode", mode.String()),
		slog.Int("processed", completed-failed),
		slog.Int("skipped", failed),
	)
}

// ProcessAllOCR recognizes text in every processed frame. Frames without a
// processed image receive the NoProcessedFrame placeholder. Per-frame
// recognition errors are recorded in that frame's slot and the batch
// continues; an unavailable engine aborts the whole batch. Progress is
// reported against the total original frame count so the denominator is
// stable even when some frames failed processing.
func (s *Store) ProcessAllOCR(ctx context.Context, enhance bool) (*batch.Operation, error) {
	frames, processed := s.snapshot()
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	if !s.active.CompareAndSwap(false, true) {
		return nil, ErrBatchRunning
	}

	op, runCtx := batch.Start(ctx, batch.KindOCR)
	go s.runProcessAllOCR(runCtx, op, processed, enhance)
	return op, nil
}

func (s *Store) runProcessAllOCR(ctx context.Context, op *batch.Operation, processed []string, enhance bool) {
	defer s.active.Store(false)

	results := make(chan ocrOutcome)
	waitErr := make(chan error, 1)
	go func() {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for i, path := range processed {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				slot, err := s.recognizeOne(gctx, path, enhance)
				if err != nil {
					// Engine loss is fatal: retrying per frame against a
					// missing engine is pointless.
					return err
				}
				select {
				case results <- ocrOutcome{index: i, slot: slot}:
				case <-gctx.Done():
				}
				return nil
			})
		}
		waitErr <- g.Wait()
		close(results)
	}()

	total := len(processed)
	completed := 0
	for out := range results {
		s.mu.Lock()
		s.texts[out.index] = out.slot
		s.mu.Unlock()

		completed++
		op.ReportProgress(completed * 100 / total)
	}

	if err := <-waitErr; err != nil && !errors.Is(err, context.Canceled) {
		_ = op.Fail(err)
		s.logger.Error("ocr batch aborted",
			slog.String("error", err.Error()),
			slog.Int("completed", completed),
			slog.Int("total", total),
		)
		return
	}
	if ctx.Err() != nil {
		_ = op.MarkCancelled()
		s.logger.Info("ocr batch cancelled",
			slog.Int("completed", completed),
			slog.Int("total", total),
		)
		return
	}

	_ = op.Complete(completed)
	s.logger.Info("ocr batch complete", slog.Int("frames", completed))
}

// RecognizeAt runs the single-image OCR contract for one frame index,
// synchronously, and records the outcome in that frame's slot. It is the
// interactive counterpart of ProcessAllOCR and shares its per-image logic.
// An unavailable engine is returned to the caller; the slot is untouched.
func (s *Store) RecognizeAt(ctx context.Context, index int, enhance bool) (Triple, error) {
	if s.active.Load() {
		return Triple{}, ErrBatchRunning
	}

	s.mu.RLock()
	if len(s.frames) == 0 {
		s.mu.RUnlock()
		return Triple{}, ErrNoFrames
	}
	if index < 0 || index >= len(s.frames) {
		s.mu.RUnlock()
		return Triple{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(s.frames))
	}
	path := s.processed[index]
	s.mu.RUnlock()

	slot, err := s.recognizeOne(ctx, path, enhance)
	if err != nil {
		return Triple{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts[index] = slot
	return s.tripleLocked(index), nil
}

// recognizeOne runs the shared single-image OCR contract for one slot.
// Only an unavailable engine is returned as an error; everything else is
// folded into the slot so the batch stays fully indexed.
func (s *Store) recognizeOne(ctx context.Context, path string, enhance bool) (Slot, error) {
	if err := ctx.Err(); err != nil {
		return Slot{}, err
	}
	if path == "" {
		return Slot{Text: NoProcessedFrame, Set: true}, nil
	}

	result, err := s.recognizer.RecognizeFile(ctx, path, enhance)
	if err != nil {
		if errors.Is(err, ocr.ErrEngineUnavailable) || errors.Is(err, context.Canceled) {
			return Slot{}, err
		}
		return Slot{Text: "OCR error: " + err.Error(), Set: true}, nil
	}

	text := result.Text
	if text == "" {
		text = NoTextDetected
	}
	return Slot{Text: text, Result: result, Set: true}, nil
}
