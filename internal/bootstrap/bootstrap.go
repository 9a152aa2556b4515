// Package bootstrap provides dependency initialization for the pipeline.
package bootstrap

import (
	"log/slog"

	"github.com/framelens/framelens/internal/config"
	"github.com/framelens/framelens/internal/filter"
	"github.com/framelens/framelens/internal/ocr"
	"github.com/framelens/framelens/internal/pipeline"
	"github.com/framelens/framelens/internal/store"
	"github.com/framelens/framelens/internal/video"
)

// Dependencies holds all initialized dependencies for a frontend.
type Dependencies struct {
	Pipeline *pipeline.Pipeline
	Store    *store.Store
	Engine   *ocr.TesseractEngine
}

// NewDependencies creates and wires all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	engineCfg := ocr.Config{
		Languages:      cfg.OCRLanguages,
		TessdataPrefix: cfg.TessdataPrefix,
		PageSegMode:    ocr.DefaultPageSegMode,
	}
	engine := ocr.NewTesseractEngine(engineCfg)
	recognizer := ocr.NewRecognizer(engine, logger)

	st := store.New(
		cfg.ProcessedRoot,
		filter.FileProcessor{},
		recognizer,
		logger,
		store.WithWorkers(cfg.Workers),
	)

	extractor := video.NewExtractor(logger, video.WithWorkers(cfg.Workers))

	pl := pipeline.New(extractor, st, engine, engineCfg, pipeline.Options{
		FramesRoot:    cfg.FramesRoot,
		FrameInterval: cfg.FrameInterval,
		EnhanceText:   cfg.EnhanceText,
	}, logger)

	logger.Info("pipeline initialized",
		slog.String("frames_root", cfg.FramesRoot),
		slog.String("processed_root", cfg.ProcessedRoot),
		slog.Int("workers", cfg.Workers),
		slog.String("ocr_languages", cfg.OCRLanguages),
	)

	return &Dependencies{
		Pipeline: pl,
		Store:    st,
		Engine:   engine,
	}, nil
}
