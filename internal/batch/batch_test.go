package batch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func drain(op *Operation) []int {
	var got []int
	for pct := range op.Progress() {
		got = append(got, pct)
	}
	return got
}

func TestOperation_Lifecycle(t *testing.T) {
	t.Run("starts running", func(t *testing.T) {
		op, runCtx := Start(context.Background(), KindFilter)
		defer op.Cancel()

		if op.Status() != StatusRunning {
			t.Errorf("Status() = %v, want %v", op.Status(), StatusRunning)
		}
		if op.Kind() != KindFilter {
			t.Errorf("Kind() = %v, want %v", op.Kind(), KindFilter)
		}
		if op.ID() == "" {
			t.Error("ID() should not be empty")
		}
		if runCtx.Err() != nil {
			t.Errorf("run context should be live, got %v", runCtx.Err())
		}
	})

	t.Run("complete records value and closes streams", func(t *testing.T) {
		op, _ := Start(context.Background(), KindExtract)

		if err := op.Complete(30); err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		if op.Status() != StatusCompleted {
			t.Errorf("Status() = %v, want %v", op.Status(), StatusCompleted)
		}
		if op.Value() != 30 {
			t.Errorf("Value() = %d, want 30", op.Value())
		}

		select {
		case <-op.Done():
		case <-time.After(time.Second):
			t.Fatal("Done() not closed after Complete")
		}
	})

	t.Run("terminal states reject further transitions", func(t *testing.T) {
		op, _ := Start(context.Background(), KindOCR)
		if err := op.Fail(errors.New("boom")); err != nil {
			t.Fatalf("Fail() error = %v", err)
		}

		if err := op.Complete(1); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Complete() after Fail = %v, want ErrInvalidTransition", err)
		}
		if err := op.MarkCancelled(); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("MarkCancelled() after Fail = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("cancel propagates through run context", func(t *testing.T) {
		op, runCtx := Start(context.Background(), KindFilter)

		op.Cancel()
		select {
		case <-runCtx.Done():
		case <-time.After(time.Second):
			t.Fatal("run context not cancelled")
		}

		if err := op.MarkCancelled(); err != nil {
			t.Fatalf("MarkCancelled() error = %v", err)
		}
		if op.Status() != StatusCancelled {
			t.Errorf("Status() = %v, want %v", op.Status(), StatusCancelled)
		}
		if !errors.Is(op.Err(), context.Canceled) {
			t.Errorf("Err() = %v, want context.Canceled", op.Err())
		}
	})
}

func TestOperation_Progress(t *testing.T) {
	t.Run("hundred arrives exactly once and last", func(t *testing.T) {
		op, _ := Start(context.Background(), KindFilter)

		op.ReportProgress(25)
		op.ReportProgress(50)
		op.ReportProgress(100) // reserved for Complete, must be suppressed
		if err := op.Complete(4); err != nil {
			t.Fatalf("Complete() error = %v", err)
		}

		got := drain(op)
		hundreds := 0
		for _, pct := range got {
			if pct == 100 {
				hundreds++
			}
		}
		if hundreds != 1 {
			t.Errorf("terminal 100 seen %d times in %v, want exactly once", hundreds, got)
		}
		if got[len(got)-1] != 100 {
			t.Errorf("last progress = %d, want 100", got[len(got)-1])
		}
	})

	t.Run("progress is monotone", func(t *testing.T) {
		op, _ := Start(context.Background(), KindOCR)

		op.ReportProgress(40)
		op.ReportProgress(30) // stale update from a slower worker
		op.ReportProgress(60)
		if err := op.Complete(2); err != nil {
			t.Fatalf("Complete() error = %v", err)
		}

		got := drain(op)
		for i := 1; i < len(got); i++ {
			if got[i] <= got[i-1] {
				t.Errorf("progress not monotone: %v", got)
			}
		}
	})

	t.Run("terminal value survives a lagging consumer", func(t *testing.T) {
		op, _ := Start(context.Background(), KindFilter)

		// Overflow the buffer without draining.
		for i := 1; i < 40; i++ {
			op.ReportProgress(i * 2)
		}
		if err := op.Complete(40); err != nil {
			t.Fatalf("Complete() error = %v", err)
		}

		got := drain(op)
		if len(got) == 0 || got[len(got)-1] != 100 {
			t.Errorf("expected trailing 100, got %v", got)
		}
	})

	t.Run("failure closes the stream without 100", func(t *testing.T) {
		op, _ := Start(context.Background(), KindOCR)
		op.ReportProgress(42)
		if err := op.Fail(errors.New("engine gone")); err != nil {
			t.Fatalf("Fail() error = %v", err)
		}

		for _, pct := range drain(op) {
			if pct == 100 {
				t.Error("failed operation must not report 100")
			}
		}
	})
}

func TestOperation_Wait(t *testing.T) {
	op, _ := Start(context.Background(), KindExtract)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = op.Complete(5)
	}()

	if err := op.Wait(context.Background()); err != nil {
		t.Errorf("Wait() error = %v", err)
	}

	t.Run("respects caller context", func(t *testing.T) {
		running, _ := Start(context.Background(), KindExtract)
		defer running.Cancel()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		if err := running.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Wait() = %v, want context.DeadlineExceeded", err)
		}
	})
}
