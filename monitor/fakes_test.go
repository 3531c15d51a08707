package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"voice-actor/audio_source"
	"voice-actor/capture"
	"voice-actor/speech_to_text"

	"github.com/go-audio/audio"
)

// fakeCapture serves scripted snapshots and segments from real queues.
type fakeCapture struct {
	short *capture.Queue
	long  *capture.Queue

	mu         sync.Mutex
	triggered  bool
	triggers   int
	untriggers int
	onTrigger  func(long *capture.Queue)
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{
		short: capture.NewQueue(),
		long:  capture.NewQueue(),
	}
}

func (f *fakeCapture) NextSnapshot(ctx context.Context, timeout time.Duration) (*audio.Float32Buffer, bool) {
	return f.short.Get(ctx, timeout)
}

func (f *fakeCapture) DrainSnapshots() int {
	return f.short.Drain()
}

func (f *fakeCapture) NextSegment(ctx context.Context, timeout time.Duration) (*audio.Float32Buffer, bool) {
	return f.long.Get(ctx, timeout)
}

func (f *fakeCapture) Trigger() {
	f.mu.Lock()
	f.long.Drain()
	f.triggered = true
	f.triggers++
	hook := f.onTrigger
	f.mu.Unlock()

	if hook != nil {
		hook(f.long)
	}
}

func (f *fakeCapture) Untrigger() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.triggered = false
	f.untriggers++
}

func (f *fakeCapture) state() (triggered bool, triggers, untriggers int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.triggered, f.triggers, f.untriggers
}

// tagged builds a one-sample buffer whose value identifies it.
func tagged(id float32) *audio.Float32Buffer {
	return audio_source.NewBuffer([]float32{id})
}

// scriptedEngine returns the result registered for the tag of each buffer it
// sees and remembers every buffer.
type scriptedEngine struct {
	mu        sync.Mutex
	noSpeech  map[float32]float64
	err       error
	processed [][]float32
}

func newScriptedEngine() *scriptedEngine {
	return &scriptedEngine{noSpeech: make(map[float32]float64)}
}

func (e *scriptedEngine) Transcribe(buf audio.Buffer) (*speech_to_text.Result, error) {
	data := buf.AsFloat32Buffer().Data

	e.mu.Lock()
	defer e.mu.Unlock()

	e.processed = append(e.processed, append([]float32(nil), data...))

	if e.err != nil {
		return nil, e.err
	}

	words := make([]string, 0, len(data))
	for _, v := range data {
		words = append(words, fmt.Sprintf("%g", v))
	}

	return &speech_to_text.Result{
		Text:                strings.Join(words, " "),
		NoSpeechProbability: e.noSpeech[data[0]],
	}, nil
}

func (e *scriptedEngine) calls() [][]float32 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([][]float32(nil), e.processed...)
}

type predicateFunc func(result *speech_to_text.Result) bool

func (f predicateFunc) Detect(result *speech_to_text.Result) bool { return f(result) }

// matchText detects exactly the given transcript.
func matchText(text string) predicateFunc {
	return func(result *speech_to_text.Result) bool {
		return result.Text == text
	}
}

type recordingHandler struct {
	mu       sync.Mutex
	commands []Command
	err      error
}

func (h *recordingHandler) HandleCommand(_ context.Context, cmd Command) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.commands = append(h.commands, cmd)

	return h.err
}

func (h *recordingHandler) received() []Command {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]Command(nil), h.commands...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}

		time.Sleep(time.Millisecond)
	}
}
