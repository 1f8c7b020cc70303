package future

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCompleteOnce(t *testing.T) {
	f := New[int]()
	f.Complete(7)
	f.Complete(9)
	f.Fail(errors.New("late"))
	v, err := f.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != 7 {
		t.Fatalf("want 7 got %d", v)
	}
}

func TestFailedConstructor(t *testing.T) {
	sentinel := errors.New("boom")
	f := Failed[string](sentinel)
	if !f.IsDone() {
		t.Fatalf("failed future should be done")
	}
	_, err := f.Get()
	if !errors.Is(err, sentinel) {
		t.Fatalf("want sentinel, got %v", err)
	}
}

func TestAwaitContextCancel(t *testing.T) {
	f := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
	// The future itself is still completable afterwards.
	f.Complete(1)
	v, err := f.Get()
	if err != nil || v != 1 {
		t.Fatalf("get after cancel: %v %v", v, err)
	}
}

func TestConcurrentWaiters(t *testing.T) {
	f := New[int]()
	var wg sync.WaitGroup
	results := make([]int, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _ := f.Get()
			results[i] = v
		}(i)
	}
	f.Complete(42)
	wg.Wait()
	for i, v := range results {
		if v != 42 {
			t.Fatalf("waiter %d saw %d", i, v)
		}
	}
}

func TestThen(t *testing.T) {
	f := New[string]()
	ch := make(chan string, 1)
	f.Then(func(v string, err error) { ch <- v })
	f.Complete("ok")
	select {
	case v := <-ch:
		if v != "ok" {
			t.Fatalf("want ok got %q", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("callback not invoked")
	}
}
