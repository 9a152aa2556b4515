package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidInterval is returned when the frame interval is less than 1.
var ErrInvalidInterval = errors.New("frame interval must be >= 1")

// framePattern names kept frames by their kept-sequence number.
// Downstream ordering relies on the zero padding.
const framePattern = "frame_%04d.jpg"

// Extractor walks a video source, keeps every interval-th frame and
// persists kept frames under a deterministic naming scheme. Reads are
// strictly sequential; writes fan out across a bounded worker pool since
// completion order does not matter.
type Extractor struct {
	open    OpenFunc
	workers int
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithOpenFunc replaces the source opener. Used by tests and by callers
// with a non-OpenCV decode path.
func WithOpenFunc(open OpenFunc) Option {
	return func(e *Extractor) {
		if open != nil {
			e.open = open
		}
	}
}

// WithWorkers sets the number of concurrent frame writers.
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewExtractor creates an Extractor that decodes through OpenCV by default.
func NewExtractor(logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		open:    OpenCapture,
		workers: 4,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract decodes videoPath frame by frame and writes every interval-th
// frame to outputDir as frame_0000.jpg, frame_0001.jpg, … numbered by
// kept sequence, not source index. onProgress, when non-nil, is invoked
// after each source frame is read with floor(read/total*100).
//
// Open failures return ErrVideoOpen before anything is written. A
// cancelled context stops reading and submits no further writes; frames
// already written remain. Returns the number of kept frames.
func (e *Extractor) Extract(ctx context.Context, videoPath, outputDir string, interval int, onProgress func(pct int)) (int, error) {
	if interval < 1 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidInterval, interval)
	}

	src, err := e.open(videoPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return 0, fmt.Errorf("create output directory %s: %w", outputDir, err)
	}

	total := src.FrameCount()

	g := new(errgroup.Group)
	g.SetLimit(e.workers)

	read, kept := 0, 0
	for ctx.Err() == nil {
		frame, err := src.ReadNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = g.Wait()
			return kept, fmt.Errorf("read frame %d: %w", read, err)
		}

		if read%interval == 0 {
			name := filepath.Join(outputDir, fmt.Sprintf(framePattern, kept))
			g.Go(func() error {
				if err := os.WriteFile(name, frame, 0600); err != nil {
					return fmt.Errorf("write frame %s: %w", name, err)
				}
				return nil
			})
			kept++
		}

		read++
		if onProgress != nil && total > 0 {
			onProgress(read * 100 / total)
		}
	}

	if err := g.Wait(); err != nil {
		return kept, err
	}
	if err := ctx.Err(); err != nil {
		return kept, fmt.Errorf("context cancelled: %w", err)
	}

	e.logger.Info("extraction complete",
		slog.String("video", videoPath),
		slog.String("output_dir", outputDir),
		slog.Int("frames_read", read),
		slog.Int("frames_kept", kept),
	)

	return kept, nil
}
