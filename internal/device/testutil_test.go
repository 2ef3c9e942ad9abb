package device

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// fakeFunction is a minimal CompiledFunction for manager tests.
type fakeFunction struct {
	backend    string
	bundle     *RuntimeBundle
	execErr    error
	exec       func(ctx context.Context, ec *ExecContext) error
	executions atomic.Int64
}

func (f *fakeFunction) BackendName() string {
	if f.backend == "" {
		return "CPU"
	}
	return f.backend
}

func (f *fakeFunction) Bundle() *RuntimeBundle { return f.bundle }

func (f *fakeFunction) Execute(ctx context.Context, ec *ExecContext) error {
	f.executions.Add(1)
	if f.exec != nil {
		return f.exec(ctx, ec)
	}
	return f.execErr
}

func newFakeFunction(activations, weights uint64) *fakeFunction {
	return &fakeFunction{
		bundle: &RuntimeBundle{ActivationsSize: activations, WeightsSize: weights},
	}
}

// addOne adds a single network and returns the callback error.
func addOne(t *testing.T, m *Manager, name string, fn CompiledFunction) error {
	t.Helper()
	var got error
	calls := 0
	m.AddNetworks(map[string]CompiledFunction{name: fn}, func(err error) {
		calls++
		got = err
	})
	if calls != 1 {
		t.Fatalf("ready callback fired %d times, want 1", calls)
	}
	return got
}

// evictOne evicts a network and returns the callback error.
func evictOne(t *testing.T, m *Manager, name string) error {
	t.Helper()
	var got error
	calls := 0
	m.EvictNetwork(name, func(n string, err error) {
		calls++
		if n != name {
			t.Fatalf("evict callback got name %q, want %q", n, name)
		}
		got = err
	})
	if calls != 1 {
		t.Fatalf("evict callback fired %d times, want 1", calls)
	}
	return got
}

// runOne runs a request synchronously and returns the callback error and
// the context handed back.
func runOne(t *testing.T, m *Manager, runID uint64, name string, ec *ExecContext) (error, *ExecContext) {
	t.Helper()
	var gotErr error
	var gotEC *ExecContext
	calls := 0
	m.Run(context.Background(), runID, name, ec, func(id uint64, err error, out *ExecContext) {
		calls++
		if id != runID {
			t.Fatalf("result callback got run %d, want %d", id, runID)
		}
		gotErr = err
		gotEC = out
	})
	if calls != 1 {
		t.Fatalf("result callback fired %d times, want 1", calls)
	}
	return gotErr, gotEC
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}
