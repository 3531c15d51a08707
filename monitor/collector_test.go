package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"voice-actor/capture"
	"voice-actor/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type collectorFixture struct {
	capture *fakeCapture
	fast    *scriptedEngine
	slow    *scriptedEngine
	handler *recordingHandler
	metrics *metrics.Metrics
	c       Collector
}

func newCollectorFixture(t *testing.T, timeout time.Duration) *collectorFixture {
	t.Helper()

	f := &collectorFixture{
		capture: newFakeCapture(),
		fast:    newScriptedEngine(),
		slow:    newScriptedEngine(),
		handler: &recordingHandler{},
		metrics: metrics.New(prometheus.NewRegistry()),
	}

	c, err := NewCollector(&CollectorConfig{
		Source:     f.capture,
		FastEngine: f.fast,
		SlowEngine: f.slow,
		Handler:    f.handler,
		Timeout:    timeout,
		Metrics:    f.metrics,
	})
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	f.c = c

	return f
}

// script queues the segments as soon as capture is triggered.
func (f *collectorFixture) script(segments ...float32) {
	f.capture.onTrigger = func(long *capture.Queue) {
		for _, s := range segments {
			long.Put(tagged(s))
		}
	}
}

func (f *collectorFixture) expectUntriggered(t *testing.T) {
	t.Helper()

	triggered, triggers, untriggers := f.capture.state()
	if triggered {
		t.Errorf("expected capture to be untriggered")
	}

	if triggers != 1 || untriggers != 1 {
		t.Errorf("expected one trigger and one untrigger, got %d and %d", triggers, untriggers)
	}
}

func TestCollector_Collect(t *testing.T) {
	t.Run("silence ends the command and dispatches the segments before it", func(t *testing.T) {
		f := newCollectorFixture(t, time.Second)
		f.script(1, 2, 3, 4, 5)
		f.fast.noSpeech[1] = 0.1
		f.fast.noSpeech[2] = 0.1
		f.fast.noSpeech[3] = 0.1
		f.fast.noSpeech[4] = 0.9

		outcome, err := f.c.Collect(context.Background())
		if err != nil {
			t.Fatalf("Collect: %v", err)
		}

		if outcome != OutcomeSilence {
			t.Errorf("expected silence, got %s", outcome)
		}

		f.expectUntriggered(t)

		if n := len(f.fast.calls()); n != 4 {
			t.Errorf("expected the fast engine to stop at the silent segment, saw %d", n)
		}

		commands := f.handler.received()
		if len(commands) != 1 {
			t.Fatalf("expected one command, got %d", len(commands))
		}

		if commands[0].Result.Text != "1 2 3" {
			t.Errorf("expected transcript of the first three segments, got %q", commands[0].Result.Text)
		}

		if commands[0].Segments != 3 {
			t.Errorf("expected 3 segments, got %d", commands[0].Segments)
		}

		if commands[0].ID.String() == "" {
			t.Errorf("expected a collection id")
		}

		if v := testutil.ToFloat64(f.metrics.Collections.WithLabelValues("silence")); v != 1 {
			t.Errorf("expected one silence collection counted, got %v", v)
		}

		if v := testutil.ToFloat64(f.metrics.CommandsDispatched); v != 1 {
			t.Errorf("expected one dispatched command, got %v", v)
		}
	})

	t.Run("immediate silence dispatches nothing", func(t *testing.T) {
		f := newCollectorFixture(t, time.Second)
		f.script(1)
		f.fast.noSpeech[1] = 0.95

		outcome, err := f.c.Collect(context.Background())
		if err != nil {
			t.Fatalf("Collect: %v", err)
		}

		if outcome != OutcomeSilence {
			t.Errorf("expected silence, got %s", outcome)
		}

		f.expectUntriggered(t)

		if n := len(f.handler.received()); n != 0 {
			t.Errorf("expected no commands, got %d", n)
		}

		if n := len(f.slow.calls()); n != 0 {
			t.Errorf("expected the slow engine to be skipped, got %d calls", n)
		}
	})

	t.Run("threshold is exclusive", func(t *testing.T) {
		f := newCollectorFixture(t, 20*time.Millisecond)
		f.script(1, 2)
		f.fast.noSpeech[1] = 0.7
		f.fast.noSpeech[2] = 0.71

		if _, err := f.c.Collect(context.Background()); err != nil {
			t.Fatalf("Collect: %v", err)
		}

		commands := f.handler.received()
		if len(commands) != 1 || commands[0].Result.Text != "1" {
			t.Fatalf("expected a command from segment 1, got %+v", commands)
		}
	})

	t.Run("timeout with nothing heard", func(t *testing.T) {
		f := newCollectorFixture(t, 20*time.Millisecond)

		outcome, err := f.c.Collect(context.Background())
		if err != nil {
			t.Fatalf("Collect: %v", err)
		}

		if outcome != OutcomeTimeout {
			t.Errorf("expected timeout, got %s", outcome)
		}

		f.expectUntriggered(t)

		if n := len(f.handler.received()); n != 0 {
			t.Errorf("expected no commands, got %d", n)
		}
	})

	t.Run("timeout after partial speech dispatches nothing", func(t *testing.T) {
		f := newCollectorFixture(t, 20*time.Millisecond)
		f.script(1, 2)

		outcome, err := f.c.Collect(context.Background())
		if err != nil {
			t.Fatalf("Collect: %v", err)
		}

		if outcome != OutcomeTimeout {
			t.Errorf("expected timeout, got %s", outcome)
		}

		f.expectUntriggered(t)

		if n := len(f.handler.received()); n != 0 {
			t.Errorf("expected no commands, got %d", n)
		}
	})

	t.Run("cancelled context stops collecting", func(t *testing.T) {
		f := newCollectorFixture(t, time.Minute)

		ctx, cancel := context.WithCancel(context.Background())
		f.capture.onTrigger = func(*capture.Queue) { cancel() }

		outcome, err := f.c.Collect(ctx)
		if err != nil {
			t.Fatalf("Collect: %v", err)
		}

		if outcome != OutcomeCancelled {
			t.Errorf("expected cancelled, got %s", outcome)
		}

		f.expectUntriggered(t)
	})

	t.Run("engine errors propagate after untriggering", func(t *testing.T) {
		f := newCollectorFixture(t, time.Second)
		f.script(1)
		f.fast.err = errors.New("model crashed")

		outcome, err := f.c.Collect(context.Background())
		if !errors.Is(err, f.fast.err) {
			t.Fatalf("expected the engine error, got %v", err)
		}

		if outcome != OutcomeFailed {
			t.Errorf("expected failed, got %s", outcome)
		}

		f.expectUntriggered(t)
	})

	t.Run("slow engine errors propagate without dispatching", func(t *testing.T) {
		f := newCollectorFixture(t, time.Second)
		f.script(1, 2)
		f.fast.noSpeech[2] = 0.9
		f.slow.err = errors.New("out of memory")

		outcome, err := f.c.Collect(context.Background())
		if !errors.Is(err, f.slow.err) {
			t.Fatalf("expected the slow engine error, got %v", err)
		}

		if outcome != OutcomeFailed {
			t.Errorf("expected failed, got %s", outcome)
		}

		f.expectUntriggered(t)

		if n := len(f.handler.received()); n != 0 {
			t.Errorf("expected no commands, got %d", n)
		}
	})

	t.Run("handler errors are not fatal", func(t *testing.T) {
		f := newCollectorFixture(t, time.Second)
		f.script(1, 2)
		f.fast.noSpeech[2] = 0.9
		f.handler.err = errors.New("bot unreachable")

		outcome, err := f.c.Collect(context.Background())
		if err != nil {
			t.Fatalf("expected handler failure to be swallowed, got %v", err)
		}

		if outcome != OutcomeSilence {
			t.Errorf("expected silence, got %s", outcome)
		}

		if v := testutil.ToFloat64(f.metrics.CommandErrors); v != 1 {
			t.Errorf("expected one command error counted, got %v", v)
		}
	})
}

func TestNewCollector(t *testing.T) {
	if _, err := NewCollector(nil); err == nil {
		t.Errorf("expected error for nil config")
	}

	if _, err := NewCollector(&CollectorConfig{Source: newFakeCapture()}); err == nil {
		t.Errorf("expected error for missing engines")
	}
}
