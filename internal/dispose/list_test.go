package dispose

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func recorder(calls *[]string, name string, err error) Disposer {
	return func(context.Context) error {
		*calls = append(*calls, name)
		return err
	}
}

func TestDisposeRunsInOrderOnce(t *testing.T) {
	var calls []string
	l := New()
	l.Push(recorder(&calls, "d1", nil))
	l.Push(recorder(&calls, "d2", nil))

	if err := l.Dispose(context.Background()); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if err := l.Dispose(context.Background()); err != nil {
		t.Fatalf("second Dispose: %v", err)
	}

	want := []string{"d1", "d2"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	if l.Len() != 0 {
		t.Errorf("Len = %d, want 0", l.Len())
	}
}

func TestSettledNeverFails(t *testing.T) {
	var calls []string
	l := New(Settled(), WithLogger(quietLogger()))
	l.Push(recorder(&calls, "a", errors.New("a failed")))
	l.Push(func(context.Context) error {
		calls = append(calls, "b")
		panic("b exploded")
	})
	l.Push(recorder(&calls, "c", errors.New("c failed")))

	if err := l.Dispose(context.Background()); err != nil {
		t.Fatalf("settled Dispose returned %v", err)
	}

	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestUnsettledStopsAtFirstFailure(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	l := New()
	l.Push(recorder(&calls, "a", nil))
	l.Push(recorder(&calls, "b", boom))
	l.Push(recorder(&calls, "c", nil))

	err := l.Dispose(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	var terr *TeardownError
	if !errors.As(err, &terr) || terr.Index != 1 {
		t.Errorf("err = %#v, want TeardownError at index 1", err)
	}
	if !reflect.DeepEqual(calls, []string{"a", "b"}) {
		t.Errorf("calls = %v", calls)
	}

	// The failed entry is consumed; the remaining one runs next time.
	if err := l.Dispose(context.Background()); err != nil {
		t.Fatalf("second Dispose: %v", err)
	}
	if !reflect.DeepEqual(calls, []string{"a", "b", "c"}) {
		t.Errorf("calls = %v", calls)
	}
}

func TestUnsettledPanicIsReported(t *testing.T) {
	l := New()
	l.Push(func(context.Context) error { panic("kaput") })

	err := l.Dispose(context.Background())
	if !errors.Is(err, ErrDisposerPanic) {
		t.Fatalf("err = %v, want ErrDisposerPanic", err)
	}
}

func TestRemovedEntryNeverRuns(t *testing.T) {
	var calls []string
	l := New()
	l.Push(recorder(&calls, "a", nil))
	b := l.Push(recorder(&calls, "b", nil))

	if !l.Remove(b) {
		t.Fatal("Remove reported entry as not pending")
	}
	if l.Remove(b) {
		t.Error("second Remove should report false")
	}
	if err := l.Dispose(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(calls, []string{"a"}) {
		t.Errorf("calls = %v", calls)
	}
}

func TestRemoveAfterRunIsNoop(t *testing.T) {
	l := New()
	e := l.Defer(func() {})
	_ = l.Dispose(context.Background())
	if l.Remove(e) {
		t.Error("Remove of a consumed entry should report false")
	}
	if l.Remove(nil) {
		t.Error("Remove(nil) should report false")
	}
}

func TestPushDuringRunWaitsForNextRun(t *testing.T) {
	var calls []string
	l := New()
	l.Push(func(ctx context.Context) error {
		calls = append(calls, "outer")
		l.Push(recorder(&calls, "late", nil))
		return nil
	})

	_ = l.Dispose(context.Background())
	if !reflect.DeepEqual(calls, []string{"outer"}) {
		t.Fatalf("calls = %v", calls)
	}
	if l.Len() != 1 {
		t.Fatalf("Len = %d, want 1", l.Len())
	}

	_ = l.Dispose(context.Background())
	if !reflect.DeepEqual(calls, []string{"outer", "late"}) {
		t.Errorf("calls = %v", calls)
	}
}

func TestRemoveDuringRunSkipsEntry(t *testing.T) {
	var calls []string
	l := New()
	var second *Entry
	l.Push(func(context.Context) error {
		calls = append(calls, "first")
		l.Remove(second)
		return nil
	})
	second = l.Push(recorder(&calls, "second", nil))

	_ = l.Dispose(context.Background())
	if !reflect.DeepEqual(calls, []string{"first"}) {
		t.Errorf("calls = %v", calls)
	}
}

func TestReentrantDisposeRunsEachOnce(t *testing.T) {
	counts := make(map[string]int)
	l := New()
	l.Push(func(ctx context.Context) error {
		counts["a"]++
		return l.Dispose(ctx)
	})
	l.Push(func(context.Context) error {
		counts["b"]++
		return nil
	})
	l.Push(func(context.Context) error {
		counts["c"]++
		return nil
	})

	if err := l.Dispose(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a", "b", "c"} {
		if counts[name] != 1 {
			t.Errorf("%s ran %d times, want 1", name, counts[name])
		}
	}
}

func TestAsyncAwaitsEachDisposer(t *testing.T) {
	var calls []string
	l := New(Async())
	l.Push(func(context.Context) error {
		time.Sleep(10 * time.Millisecond)
		calls = append(calls, "slow")
		return nil
	})
	l.Push(recorder(&calls, "fast", nil))

	if err := l.Dispose(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(calls, []string{"slow", "fast"}) {
		t.Errorf("calls = %v", calls)
	}
}

func TestAsyncHonorsCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	l := New(Async())
	l.Push(func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Dispose(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestNilDisposerIsNoop(t *testing.T) {
	l := New()
	l.Push(nil)
	l.Defer(nil)
	if err := l.Dispose(context.Background()); err != nil {
		t.Errorf("Dispose = %v", err)
	}
}

func TestOptions(t *testing.T) {
	l := New(Settled(), Async())
	if !l.IsSettled() || !l.IsAsync() {
		t.Error("options not applied")
	}
	if New().IsSettled() {
		t.Error("default list should not be settled")
	}
}
