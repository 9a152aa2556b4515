package filter

import (
	"bytes"
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func TestParseMode(t *testing.T) {
	t.Run("resolves every display name", func(t *testing.T) {
		for _, m := range Modes() {
			parsed, err := ParseMode(m.String())
			if err != nil {
				t.Fatalf("ParseMode(%q) error = %v", m.String(), err)
			}
			if parsed != m {
				t.Errorf("ParseMode(%q) = %v, want %v", m.String(), parsed, m)
			}
		}
	})

	t.Run("rejects unknown name", func(t *testing.T) {
		_, err := ParseMode("Posterize")
		if !errors.Is(err, ErrUnsupportedMode) {
			t.Errorf("expected ErrUnsupportedMode, got %v", err)
		}
	})
}

func TestModeValid(t *testing.T) {
	for _, m := range Modes() {
		if !m.Valid() {
			t.Errorf("Mode %v should be valid", m)
		}
	}
	if Mode(99).Valid() {
		t.Error("Mode(99) should not be valid")
	}
}

func testGray(t *testing.T) gocv.Mat {
	t.Helper()
	img := gocv.NewMatWithSize(64, 64, gocv.MatTypeCV8U)
	// A light square on a dark background gives every transform
	// something to bite on.
	for y := 16; y < 48; y++ {
		for x := 16; x < 48; x++ {
			img.SetUCharAt(y, x, 220)
		}
	}
	return img
}

func TestApply(t *testing.T) {
	t.Run("rejects multi-channel input", func(t *testing.T) {
		color := gocv.NewMatWithSize(32, 32, gocv.MatTypeCV8UC3)
		defer color.Close()

		_, err := Apply(GaussianBlur, color)
		if !errors.Is(err, ErrNotGrayscale) {
			t.Errorf("expected ErrNotGrayscale, got %v", err)
		}
	})

	t.Run("rejects empty input", func(t *testing.T) {
		empty := gocv.NewMat()
		defer empty.Close()

		_, err := Apply(GaussianBlur, empty)
		if !errors.Is(err, ErrEmptyImage) {
			t.Errorf("expected ErrEmptyImage, got %v", err)
		}
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		img := testGray(t)
		defer img.Close()

		_, err := Apply(Mode(99), img)
		if !errors.Is(err, ErrUnsupportedMode) {
			t.Errorf("expected ErrUnsupportedMode, got %v", err)
		}
	})

	t.Run("every mode preserves dimensions", func(t *testing.T) {
		img := testGray(t)
		defer img.Close()

		for _, m := range Modes() {
			out, err := Apply(m, img)
			if err != nil {
				t.Fatalf("Apply(%v) error = %v", m, err)
			}
			if out.Rows() != img.Rows() || out.Cols() != img.Cols() {
				t.Errorf("Apply(%v) dimensions = %dx%d, want %dx%d",
					m, out.Cols(), out.Rows(), img.Cols(), img.Rows())
			}
			if out.Channels() != 1 {
				t.Errorf("Apply(%v) channels = %d, want 1", m, out.Channels())
			}
			out.Close()
		}
	})

	t.Run("is deterministic", func(t *testing.T) {
		img := testGray(t)
		defer img.Close()

		for _, m := range Modes() {
			first, err := Apply(m, img)
			if err != nil {
				t.Fatalf("Apply(%v) error = %v", m, err)
			}
			second, err := Apply(m, img)
			if err != nil {
				t.Fatalf("Apply(%v) error = %v", m, err)
			}
			if !bytes.Equal(first.ToBytes(), second.ToBytes()) {
				t.Errorf("Apply(%v) is not deterministic", m)
			}
			first.Close()
			second.Close()
		}
	})
}

func TestPreprocessForOCR(t *testing.T) {
	img := testGray(t)
	defer img.Close()

	out, err := PreprocessForOCR(img)
	if err != nil {
		t.Fatalf("PreprocessForOCR() error = %v", err)
	}
	defer out.Close()

	// Otsu output is strictly binary.
	for y := 0; y < out.Rows(); y++ {
		for x := 0; x < out.Cols(); x++ {
			v := out.GetUCharAt(y, x)
			if v != 0 && v != 255 {
				t.Fatalf("pixel (%d,%d) = %d, want 0 or 255", x, y, v)
			}
		}
	}
}
