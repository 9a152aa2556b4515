// Package main provides a headless driver for the frame pipeline: it
// extracts frames from a video, applies the selected filter to every
// frame, runs OCR over the processed frames and prints each frame's
// recognized text. A GUI frontend drives the same pipeline boundary.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"

	"github.com/framelens/framelens/internal/batch"
	"github.com/framelens/framelens/internal/bootstrap"
	"github.com/framelens/framelens/internal/config"
	"github.com/framelens/framelens/internal/filter"
	"github.com/framelens/framelens/internal/ocr"
	"github.com/framelens/framelens/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Configure logger
	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      cfg.Level(),
			TimeFormat: "15:04:05",
		}),
	)
	slog.SetDefault(logger)

	// Parse command line arguments
	videoPath := ""
	modeName := filter.EdgeDetection.String()
	enhance := cfg.EnhanceText

	for i := 1; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "--video":
			if i+1 < len(os.Args) {
				videoPath = os.Args[i+1]
				i++
			}
		case "--mode":
			if i+1 < len(os.Args) {
				modeName = os.Args[i+1]
				i++
			}
		case "--enhance":
			enhance = true
		}
	}

	if videoPath == "" {
		fmt.Println("Usage: framelens --video path/to/video.mp4 [--mode \"Edge Detection\"] [--enhance]")
		os.Exit(1)
	}

	mode, err := filter.ParseMode(modeName)
	if err != nil {
		return err
	}

	logger.Info("starting framelens",
		slog.String("video", videoPath),
		slog.String("mode", mode.String()),
		slog.Bool("enhance", enhance),
		slog.Int("frame_interval", cfg.FrameInterval),
	)

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	pl := deps.Pipeline
	if err := pl.SetProcessingMode(mode); err != nil {
		return err
	}
	pl.SetEnhanceText(enhance)

	ctx := context.Background()

	op, err := pl.LoadVideo(ctx, videoPath)
	if err != nil {
		return err
	}
	if err := watch(op, "extracting frames", logger); err != nil {
		return err
	}
	logger.Info("frames extracted", slog.Int("count", op.Value()))

	op, err = pl.ProcessAllFrames(ctx)
	if err != nil {
		return err
	}
	if err := watch(op, "processing frames", logger); err != nil {
		return err
	}
	logger.Info("frames processed", slog.Int("count", op.Value()))

	op, err = pl.RunOCR(ctx)
	if err != nil {
		return err
	}
	if err := watch(op, "recognizing text", logger); err != nil {
		if errors.Is(err, ocr.ErrEngineUnavailable) {
			return fmt.Errorf("ocr engine unavailable, check your Tesseract installation: %w", err)
		}
		return err
	}

	printResults(pl)
	return nil
}

// watch drains an operation's progress stream and returns its terminal error.
func watch(op *batch.Operation, label string, logger *slog.Logger) error {
	for pct := range op.Progress() {
		logger.Info(label, slog.Int("percent", pct))
	}
	<-op.Done()
	return op.Err()
}

// printResults walks every frame and prints its recognition output, using
// the detailed word-level block when the frame has a structured result.
func printResults(pl *pipeline.Pipeline) {
	for i := 0; i < pl.FrameCount(); i++ {
		triple, err := pl.Seek(i)
		if err != nil {
			continue
		}
		fmt.Printf("=== frame %04d (%s)\n", triple.Index, triple.OriginalPath)
		if result, ok := pl.ResultAt(i); ok {
			fmt.Println(ocr.FormatResult(result))
			continue
		}
		fmt.Printf("%s\n\n", triple.Text)
	}
}
