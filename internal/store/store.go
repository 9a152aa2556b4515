// Package store provides the frame store and navigator: the ordered list
// of extracted frame paths with parallel processed-frame and OCR slots,
// index-based navigation, and the batch operations that fill the slots.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/framelens/framelens/internal/filter"
	"github.com/framelens/framelens/internal/ocr"
)

// Static errors for store operations.
var (
	// ErrNoFrames is returned when an operation needs loaded frames.
	ErrNoFrames = errors.New("no frames loaded")
	// ErrIndexOutOfRange is returned by Seek for an invalid index.
	ErrIndexOutOfRange = errors.New("frame index out of range")
	// ErrBatchRunning is returned when a batch operation is already
	// mutating the store.
	ErrBatchRunning = errors.New("a batch operation is already running")
)

// Placeholder texts substituted for unset slots so the presentation layer
// never receives a silently-missing value.
const (
	// ProcessedNotAvailable marks a frame with no processed image yet.
	ProcessedNotAvailable = "processed frame not available"
	// TextNotAvailable marks a frame not yet recognized.
	TextNotAvailable = "text not available"
	// NoProcessedFrame is recorded by the OCR batch for frames whose
	// processing failed or never ran.
	NoProcessedFrame = "no processed frame available"
	// NoTextDetected is recorded when recognition succeeded but found nothing.
	NoTextDetected = "no text detected"
)

// imageExtensions lists the frame file types the store loads.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tiff": true,
}

// Slot holds the OCR state for one frame index.
type Slot struct {
	// Text is the recognized text or an explicit placeholder.
	Text string
	// Result carries the structured recognition output when available.
	Result *ocr.Result
	// Set reports whether the slot has been written by an OCR batch.
	Set bool
}

// Triple is the navigable view of one frame: original path, processed path
// and recognized text, with explicit markers for anything not yet computed.
type Triple struct {
	Index         int
	OriginalPath  string
	ProcessedPath string
	Text          string
}

// FrameProcessor applies a filter mode to a frame file.
type FrameProcessor interface {
	ProcessFrame(ctx context.Context, src, dst string, mode filter.Mode) error
}

// Recognizer runs OCR over a processed frame file.
type Recognizer interface {
	RecognizeFile(ctx context.Context, path string, enhance bool) (*ocr.Result, error)
}

// Store owns the three parallel sequences and the navigation cursor.
// The slices are mutated only by Load (from the caller's goroutine, never
// during a batch) and by the single collector goroutine of a running
// batch, which writes each worker outcome to its own index.
type Store struct {
	mu sync.RWMutex

	frames    []string
	processed []string
	texts     []Slot
	cursor    int

	processedRoot string
	processor     FrameProcessor
	recognizer    Recognizer
	workers       int
	logger        *slog.Logger

	active atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithWorkers sets the batch worker pool size.
func WithWorkers(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates a Store that persists processed frames under processedRoot,
// preserving the original basenames.
func New(processedRoot string, processor FrameProcessor, recognizer Recognizer, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		processedRoot: processedRoot,
		processor:     processor,
		recognizer:    recognizer,
		workers:       4,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load lists the image files in dir in lexicographic order (the zero-padded
// extraction naming makes that the extraction order), resets the processed
// and OCR slots to the same length and moves the cursor to 0.
func (s *Store) Load(dir string) error {
	if s.active.Load() {
		return ErrBatchRunning
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list frame directory %s: %w", dir, err)
	}

	var frames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			frames = append(frames, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(frames)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = frames
	s.processed = make([]string, len(frames))
	s.texts = make([]Slot, len(frames))
	s.cursor = 0

	s.logger.Info("frames loaded",
		slog.String("dir", dir),
		slog.Int("count", len(frames)),
	)
	return nil
}

// Len returns the number of loaded frames.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.frames)
}

// Cursor returns the current frame index.
func (s *Store) Cursor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// Current returns the triple at the cursor.
func (s *Store) Current() (Triple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.frames) == 0 {
		return Triple{}, ErrNoFrames
	}
	return s.tripleLocked(s.cursor), nil
}

// Next advances the cursor by one. At the last frame it is a no-op, not
// an error; the (possibly unchanged) current triple is returned.
func (s *Store) Next() (Triple, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return Triple{}, ErrNoFrames
	}
	if s.cursor < len(s.frames)-1 {
		s.cursor++
	}
	return s.tripleLocked(s.cursor), nil
}

// Prev moves the cursor back by one. At frame 0 it is a no-op.
func (s *Store) Prev() (Triple, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return Triple{}, ErrNoFrames
	}
	if s.cursor > 0 {
		s.cursor--
	}
	return s.tripleLocked(s.cursor), nil
}

// Seek moves the cursor to index. An out-of-range index is a reported
// failure; the cursor does not move.
func (s *Store) Seek(index int) (Triple, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return Triple{}, ErrNoFrames
	}
	if index < 0 || index >= len(s.frames) {
		return Triple{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(s.frames))
	}
	s.cursor = index
	return s.tripleLocked(s.cursor), nil
}

// tripleLocked builds the triple for index, substituting explicit markers
// for unset slots. Callers hold s.mu.
func (s *Store) tripleLocked(index int) Triple {
	t := Triple{
		Index:         index,
		OriginalPath:  s.frames[index],
		ProcessedPath: s.processed[index],
		Text:          TextNotAvailable,
	}
	if t.ProcessedPath == "" {
		t.ProcessedPath = ProcessedNotAvailable
	}
	if s.texts[index].Set {
		t.Text = s.texts[index].Text
	}
	return t
}

// ResultAt returns the structured recognition result for index, if an OCR
// batch produced one.
func (s *Store) ResultAt(index int) (*ocr.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.texts) {
		return nil, false
	}
	slot := s.texts[index]
	return slot.Result, slot.Result != nil
}

// snapshot copies the frame and processed paths for a batch run.
func (s *Store) snapshot() (frames, processed []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	frames = make([]string, len(s.frames))
	copy(frames, s.frames)
	processed = make([]string, len(s.processed))
	copy(processed, s.processed)
	return frames, processed
}
