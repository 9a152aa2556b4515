// Package video provides frame extraction from video files: sequential
// decoding, stride decimation and parallel persistence of kept frames.
package video

import (
	"errors"
	"fmt"
	"io"

	"gocv.io/x/gocv"
)

// ErrVideoOpen is returned when a video source cannot be opened.
// It is fatal to extraction; no frames are written.
var ErrVideoOpen = errors.New("could not open video source")

// Source is a sequentially readable video: frames come back as encoded
// images in decode order until io.EOF.
type Source interface {
	// FrameCount returns the total number of frames the source reports,
	// or 0 when unknown.
	FrameCount() int
	// ReadNext decodes the next frame. Returns io.EOF at end of stream;
	// a partially written trailing frame simply ends the stream.
	ReadNext() ([]byte, error)
	// Close releases the source.
	Close() error
}

// OpenFunc opens a video file as a Source.
type OpenFunc func(path string) (Source, error)

// captureSource adapts a gocv VideoCapture to the Source interface.
// The decode Mat is reused across reads; frames are handed out as
// JPEG-encoded copies.
type captureSource struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// OpenCapture opens a local video file through OpenCV.
func OpenCapture(path string) (Source, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrVideoOpen, path, err)
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return nil, fmt.Errorf("%w: %s", ErrVideoOpen, path)
	}
	return &captureSource{capture: capture, mat: gocv.NewMat()}, nil
}

func (s *captureSource) FrameCount() int {
	return int(s.capture.Get(gocv.VideoCaptureFrameCount))
}

func (s *captureSource) ReadNext() ([]byte, error) {
	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, io.EOF
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, s.mat)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	encoded := buf.GetBytes()
	frame := make([]byte, len(encoded))
	copy(frame, encoded)
	return frame, nil
}

func (s *captureSource) Close() error {
	s.mat.Close()
	return s.capture.Close()
}
