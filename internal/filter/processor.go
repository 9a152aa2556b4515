package filter

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"
)

// FileProcessor applies filter bank transforms to frame files on disk.
// It reads the source frame in grayscale, applies the selected mode and
// writes the result to the destination path, overwriting any prior output.
type FileProcessor struct{}

// ProcessFrame transforms the frame at src and persists the result at dst.
func (FileProcessor) ProcessFrame(ctx context.Context, src, dst string, mode Mode) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	img := gocv.IMRead(src, gocv.IMReadGrayScale)
	if img.Empty() {
		return fmt.Errorf("read frame %s: image missing or unreadable", src)
	}
	defer img.Close()

	out, err := Apply(mode, img)
	if err != nil {
		return fmt.Errorf("apply %s to %s: %w", mode, src, err)
	}
	defer out.Close()

	if ok := gocv.IMWrite(dst, out); !ok {
		return fmt.Errorf("write processed frame %s", dst)
	}

	return nil
}
