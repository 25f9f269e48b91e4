package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/svcwatch/internal/config"
	"github.com/Guliveer/svcwatch/internal/models"
	"github.com/Guliveer/svcwatch/internal/watch"
)

type fakeRunner struct {
	mu       sync.Mutex
	calls    []string
	fail     map[string]error
	deadline bool
	active   int
	overlap  bool
}

func (f *fakeRunner) Watch(ctx context.Context, svc config.ServiceConfig) (*watch.Result, error) {
	f.mu.Lock()
	f.active++
	if f.active > 1 {
		f.overlap = true
	}
	f.calls = append(f.calls, svc.Name)
	_, f.deadline = ctx.Deadline()
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if err := f.fail[svc.Name]; err != nil {
		return nil, err
	}
	return &watch.Result{Report: models.NewReport(0, 0)}, nil
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testConfig(interval time.Duration, names ...string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Collection.Interval = config.Duration{Duration: interval}
	cfg.Services = nil
	for _, n := range names {
		cfg.Services = append(cfg.Services, config.ServiceConfig{Name: n, InstanceType: "ps"})
	}
	return cfg
}

func TestRunOnce_SequentialInOrder(t *testing.T) {
	runner := &fakeRunner{fail: map[string]error{"b": errors.New("boom")}}
	s := New(runner, testConfig(time.Minute, "a", "b", "c"), zap.NewNop())

	var seen []string
	s.OnOutcome(func(o Outcome) { seen = append(seen, o.Service) })

	outcomes := s.RunOnce(context.Background())

	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	want := []string{"a", "b", "c"}
	for i, name := range want {
		if runner.calls[i] != name || seen[i] != name || outcomes[i].Service != name {
			t.Errorf("position %d: runner=%s callback=%s outcome=%s, want %s",
				i, runner.calls[i], seen[i], outcomes[i].Service, name)
		}
	}
	if outcomes[1].Err == nil {
		t.Error("expected failure for service b")
	}
	if outcomes[2].Err != nil || outcomes[2].Result == nil {
		t.Error("failure of b should not affect c")
	}
	if !runner.deadline {
		t.Error("expected cycle timeout to set a deadline")
	}
	if runner.overlap {
		t.Error("cycles overlapped")
	}
}

func TestRunOnce_CancelledContext(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, testConfig(time.Minute, "a", "b"), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := s.RunOnce(ctx); len(got) != 0 {
		t.Errorf("expected no cycles after cancellation, got %d", len(got))
	}
}

func TestStart_TicksUntilCancelled(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, testConfig(10*time.Millisecond, "a"), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for runner.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 cycles, got %d", runner.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}
