package proctor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/model"
)

// fakeSource is an in-memory EnvironmentSignalSource.
type fakeSource struct {
	mu            sync.Mutex
	handlers      map[SignalKind]SignalHandler
	metrics       WindowMetrics
	haveMetrics   bool
	fullscreenErr error
	fullscreen    bool
	exitCalls     int
}

func newFakeSource() *fakeSource {
	return &fakeSource{handlers: make(map[SignalKind]SignalHandler)}
}

func (f *fakeSource) Subscribe(kind SignalKind, h SignalHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[kind] = h
}

func (f *fakeSource) Unsubscribe(kind SignalKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, kind)
}

func (f *fakeSource) WindowMetrics() (WindowMetrics, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metrics, f.haveMetrics
}

func (f *fakeSource) RequestFullscreen() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fullscreenErr != nil {
		return f.fullscreenErr
	}
	f.fullscreen = true
	return nil
}

func (f *fakeSource) ExitFullscreen() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exitCalls++
	f.fullscreen = false
	return nil
}

func (f *fakeSource) IsFullscreen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fullscreen
}

func (f *fakeSource) setMetrics(m WindowMetrics) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics = m
	f.haveMetrics = true
}

func (f *fakeSource) subscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func (f *fakeSource) emit(s RawSignal) Disposition {
	f.mu.Lock()
	h := f.handlers[s.Kind]
	f.mu.Unlock()
	if h == nil {
		return Disposition{}
	}
	return h(s)
}

type recordingSink struct {
	mu       sync.Mutex
	events   []model.ViolationEvent
	flushes  int
	flushErr error
}

func (r *recordingSink) Enqueue(ev model.ViolationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) Flush(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
	return r.flushErr
}

func (r *recordingSink) types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func newTestMonitor(t *testing.T) (*Monitor, *fakeSource, *recordingSink, *Tracker) {
	t.Helper()
	clk := newTestClock()
	src := newFakeSource()
	sink := &recordingSink{}
	tracker := NewTracker(clk, 0, 0)
	m := NewMonitor(src, sink, tracker, clk, MonitorConfig{}, zerolog.Nop())
	return m, src, sink, tracker
}

func TestMonitorInertUntilEnabled(t *testing.T) {
	m, src, sink, _ := newTestMonitor(t)

	if n := src.subscriptions(); n != 0 {
		t.Fatalf("%d subscriptions before Enable", n)
	}
	src.emit(RawSignal{Kind: SignalCopy})
	if len(sink.types()) != 0 {
		t.Error("event recorded while disabled")
	}

	m.Enable()
	if n := src.subscriptions(); n != len(SignalKinds) {
		t.Errorf("subscriptions = %d, want %d", n, len(SignalKinds))
	}
}

func TestMonitorClassifiesSignals(t *testing.T) {
	tests := []struct {
		name     string
		signal   RawSignal
		wantType model.EventType
		wantDisp Disposition
		counted  bool
	}{
		{"visibility", RawSignal{Kind: SignalVisibilityHidden}, model.EventTabSwitch, Disposition{}, true},
		{"copy", RawSignal{Kind: SignalCopy, TextLength: 12}, model.EventCopy, Disposition{Suppress: true}, true},
		{"paste", RawSignal{Kind: SignalPaste}, model.EventPaste, Disposition{Suppress: true}, true},
		{"context menu", RawSignal{Kind: SignalContextMenu}, model.EventRightClick, Disposition{Suppress: true}, false},
		{"f12", RawSignal{Kind: SignalKeyDown, Key: "F12"}, model.EventConsoleOpen, Disposition{Suppress: true}, true},
		{"ctrl shift i", RawSignal{Kind: SignalKeyDown, Key: "I", Ctrl: true, Shift: true}, model.EventConsoleOpen, Disposition{Suppress: true}, true},
		{"cmd alt j", RawSignal{Kind: SignalKeyDown, Key: "j", Meta: true, Alt: true}, model.EventConsoleOpen, Disposition{Suppress: true}, true},
		{"fullscreen denied", RawSignal{Kind: SignalFullscreenDenied}, model.EventFullscreenDenied, Disposition{}, false},
		{"before unload", RawSignal{Kind: SignalBeforeUnload}, model.EventBeforeUnloadAttempt, Disposition{Confirm: true}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, src, sink, tracker := newTestMonitor(t)
			m.Enable()

			disp := src.emit(tc.signal)
			if disp != tc.wantDisp {
				t.Errorf("disposition = %+v, want %+v", disp, tc.wantDisp)
			}
			types := sink.types()
			if len(types) != 1 || types[0] != tc.wantType {
				t.Fatalf("events = %v, want [%s]", types, tc.wantType)
			}
			count := tracker.State().ViolationCount
			if tc.counted && count != 1 {
				t.Errorf("violation count = %d, want 1", count)
			}
			if !tc.counted && count != 0 {
				t.Errorf("violation count = %d, want 0 for logged-only type", count)
			}
		})
	}
}

func TestMonitorIgnoresOrdinaryKeys(t *testing.T) {
	m, src, sink, _ := newTestMonitor(t)
	m.Enable()

	for _, s := range []RawSignal{
		{Kind: SignalKeyDown, Key: "I", Ctrl: true},
		{Kind: SignalKeyDown, Key: "a"},
		{Kind: SignalKeyDown, Key: "C", Shift: true},
	} {
		if disp := src.emit(s); disp.Suppress {
			t.Errorf("key %+v suppressed", s)
		}
	}
	if n := len(sink.types()); n != 0 {
		t.Errorf("%d events for ordinary keys", n)
	}
}

func TestMonitorSkipsOwnModalVisibility(t *testing.T) {
	m, src, sink, _ := newTestMonitor(t)
	m.Enable()

	src.emit(RawSignal{Kind: SignalVisibilityHidden, OwnModal: true})
	m.BeginModal()
	src.emit(RawSignal{Kind: SignalVisibilityHidden})
	m.EndModal()
	if n := len(sink.types()); n != 0 {
		t.Fatalf("%d tab switches recorded for own dialogs", n)
	}

	src.emit(RawSignal{Kind: SignalVisibilityHidden})
	if n := len(sink.types()); n != 1 {
		t.Errorf("%d events after modal closed, want 1", n)
	}
}

func TestMonitorLogsFullscreenDenialOnEnable(t *testing.T) {
	m, src, sink, tracker := newTestMonitor(t)
	src.fullscreenErr = errors.New("permission denied")

	m.Enable()

	types := sink.types()
	if len(types) != 1 || types[0] != model.EventFullscreenDenied {
		t.Fatalf("events = %v, want [fullscreen_denied]", types)
	}
	if tracker.State().ViolationCount != 0 {
		t.Error("fullscreen denial counted as violation")
	}
	if !m.Enabled() {
		t.Error("denial disabled the monitor")
	}
}

func TestMonitorSizeHeuristicFiresEverySustainedSample(t *testing.T) {
	clk := newTestClock()
	src := newFakeSource()
	sink := &recordingSink{}
	tracker := NewTracker(clk, 0, 0)
	m := NewMonitor(src, sink, tracker, clk, MonitorConfig{}, zerolog.Nop())
	m.Enable()

	src.setMetrics(WindowMetrics{OuterWidth: 1400, InnerWidth: 1000, OuterHeight: 900, InnerHeight: 880})
	clk.Advance(time.Second)
	if n := len(sink.types()); n != 0 {
		t.Fatalf("fired after a single sample: %d events", n)
	}

	clk.Advance(time.Second)
	if types := sink.types(); len(types) != 1 || types[0] != model.EventConsoleOpen {
		t.Fatalf("events = %v, want one console_open", types)
	}
	if tracker.State().IsSuspicious {
		t.Fatal("suspicious after one console_open")
	}

	clk.Advance(2 * time.Second)
	types := sink.types()
	if len(types) != 3 {
		t.Fatalf("events = %v, want three console_open while the gap persists", types)
	}
	for _, typ := range types {
		if typ != model.EventConsoleOpen {
			t.Errorf("event %q, want console_open", typ)
		}
	}
	if !tracker.State().IsSuspicious {
		t.Error("a devtools panel held open for three samples should mark the attempt suspicious")
	}

	src.setMetrics(WindowMetrics{OuterWidth: 1000, InnerWidth: 1000, OuterHeight: 900, InnerHeight: 880})
	clk.Advance(time.Second)
	if n := len(sink.types()); n != 3 {
		t.Errorf("events = %d after the gap closed, want 3", n)
	}

	src.setMetrics(WindowMetrics{OuterWidth: 1000, InnerWidth: 1000, OuterHeight: 1100, InnerHeight: 880})
	clk.Advance(time.Second)
	if n := len(sink.types()); n != 3 {
		t.Errorf("events = %d on the first sample of a new episode, want 3", n)
	}
	clk.Advance(time.Second)
	if n := len(sink.types()); n != 4 {
		t.Errorf("events = %d once the new episode is sustained, want 4", n)
	}
}

func TestMonitorDisableCleansUpEvenIfFlushFails(t *testing.T) {
	clk := newTestClock()
	src := newFakeSource()
	sink := &recordingSink{flushErr: errors.New("network down")}
	m := NewMonitor(src, sink, NewTracker(clk, 0, 0), clk, MonitorConfig{}, zerolog.Nop())

	m.Enable()
	if !src.IsFullscreen() {
		t.Fatal("fullscreen not requested on enable")
	}

	if err := m.Disable(context.Background()); err == nil {
		t.Error("Disable() error = nil, want flush error")
	}
	if n := src.subscriptions(); n != 0 {
		t.Errorf("%d subscriptions left after Disable", n)
	}
	if clk.Pending() != 0 {
		t.Errorf("sampler still scheduled: %d timers", clk.Pending())
	}
	if src.IsFullscreen() || src.exitCalls != 1 {
		t.Errorf("fullscreen = %v exitCalls = %d, want exited once", src.IsFullscreen(), src.exitCalls)
	}
	if sink.flushes != 1 {
		t.Errorf("flushes = %d, want 1", sink.flushes)
	}

	// Second Disable is a no-op.
	if err := m.Disable(context.Background()); err != nil {
		t.Errorf("second Disable() = %v", err)
	}
}

func TestMonitorNotifiesViolationState(t *testing.T) {
	clk := newTestClock()
	src := newFakeSource()
	var got []model.ViolationState
	m := NewMonitor(src, &recordingSink{}, NewTracker(clk, 0, 0), clk, MonitorConfig{
		OnViolation: func(s model.ViolationState) { got = append(got, s) },
	}, zerolog.Nop())
	m.Enable()

	src.emit(RawSignal{Kind: SignalCopy})
	src.emit(RawSignal{Kind: SignalContextMenu})
	src.emit(RawSignal{Kind: SignalPaste})
	src.emit(RawSignal{Kind: SignalVisibilityHidden})

	if len(got) != 3 {
		t.Fatalf("notifications = %d, want 3", len(got))
	}
	if last := got[2]; last.ViolationCount != 3 || !last.IsSuspicious {
		t.Errorf("last state = %+v, want 3 and suspicious", last)
	}
}
