package proctor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/clock"
	"github.com/stemsi/exstem-client/internal/model"
)

const (
	DefaultDevtoolsGap            = 160
	DefaultDevtoolsSampleInterval = time.Second
	DefaultDevtoolsSustainSamples = 2
)

// EventSink receives every classified event.
type EventSink interface {
	Enqueue(ev model.ViolationEvent)
	Flush(ctx context.Context) error
}

// ViolationRecorder receives counted violations.
type ViolationRecorder interface {
	Record(typ model.EventType) model.ViolationState
}

// MonitorConfig tunes the devtools size heuristic.
type MonitorConfig struct {
	DevtoolsGap    int
	SampleInterval time.Duration
	SustainSamples int
	// OnViolation is called after every counted violation with the new state.
	OnViolation func(model.ViolationState)
}

// Monitor classifies environment signals into violation events while a
// proctored session is enabled. Disabled, it holds no subscriptions and no timers.
type Monitor struct {
	src     EnvironmentSignalSource
	sink    EventSink
	tracker ViolationRecorder
	clock   clock.Clock
	log     zerolog.Logger
	cfg     MonitorConfig

	mu         sync.Mutex
	enabled    bool
	sampler    clock.Timer
	overCount  int
	modalDepth int
}

// NewMonitor wires a monitor; it stays inert until Enable.
func NewMonitor(src EnvironmentSignalSource, sink EventSink, tracker ViolationRecorder, clk clock.Clock, cfg MonitorConfig, log zerolog.Logger) *Monitor {
	if clk == nil {
		clk = clock.Real()
	}
	if cfg.DevtoolsGap <= 0 {
		cfg.DevtoolsGap = DefaultDevtoolsGap
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = DefaultDevtoolsSampleInterval
	}
	if cfg.SustainSamples <= 0 {
		cfg.SustainSamples = DefaultDevtoolsSustainSamples
	}
	return &Monitor{
		src:     src,
		sink:    sink,
		tracker: tracker,
		clock:   clk,
		cfg:     cfg,
		log:     log.With().Str("component", "event_monitor").Logger(),
	}
}

// Enable attaches every listener, starts the size sampler and requests
// fullscreen. Calling it twice is a no-op.
func (m *Monitor) Enable() {
	m.mu.Lock()
	if m.enabled {
		m.mu.Unlock()
		return
	}
	m.enabled = true
	m.overCount = 0
	m.modalDepth = 0

	m.src.Subscribe(SignalVisibilityHidden, m.onVisibilityHidden)
	m.src.Subscribe(SignalCopy, m.onCopy)
	m.src.Subscribe(SignalPaste, m.onPaste)
	m.src.Subscribe(SignalContextMenu, m.onContextMenu)
	m.src.Subscribe(SignalKeyDown, m.onKeyDown)
	m.src.Subscribe(SignalFullscreenDenied, m.onFullscreenDenied)
	m.src.Subscribe(SignalBeforeUnload, m.onBeforeUnload)
	m.sampler = m.clock.AfterFunc(m.cfg.SampleInterval, m.sample)
	m.mu.Unlock()

	m.log.Info().Msg("Proctoring monitor enabled")

	if err := m.src.RequestFullscreen(); err != nil {
		m.emit(model.EventFullscreenDenied, map[string]any{"reason": err.Error()})
	}
}

// Disable detaches listeners, cancels the sampler, flushes buffered events and
// leaves fullscreen. Cleanup runs even if the flush fails; the flush error is
// returned for logging only.
func (m *Monitor) Disable(ctx context.Context) error {
	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return nil
	}
	m.enabled = false
	for _, kind := range SignalKinds {
		m.src.Unsubscribe(kind)
	}
	if m.sampler != nil {
		m.sampler.Stop()
		m.sampler = nil
	}
	m.mu.Unlock()

	defer func() {
		if m.src.IsFullscreen() {
			if err := m.src.ExitFullscreen(); err != nil {
				m.log.Warn().Err(err).Msg("Exit fullscreen failed")
			}
		}
		m.log.Info().Msg("Proctoring monitor disabled")
	}()

	if err := m.sink.Flush(ctx); err != nil {
		m.log.Warn().Err(err).Msg("Final proctoring flush failed")
		return err
	}
	return nil
}

// Enabled reports whether listeners are attached.
func (m *Monitor) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// BeginModal marks one of the session's own dialogs as open; visibility loss
// is not a tab switch while any is open.
func (m *Monitor) BeginModal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modalDepth++
}

// EndModal closes a dialog opened with BeginModal.
func (m *Monitor) EndModal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.modalDepth > 0 {
		m.modalDepth--
	}
}

func (m *Monitor) onVisibilityHidden(s RawSignal) Disposition {
	m.mu.Lock()
	skip := !m.enabled || s.OwnModal || m.modalDepth > 0
	m.mu.Unlock()
	if skip {
		return Disposition{}
	}
	m.emit(model.EventTabSwitch, map[string]any{"from_tab": "exam", "to_tab": "unknown"})
	return Disposition{}
}

func (m *Monitor) onCopy(s RawSignal) Disposition {
	if !m.Enabled() {
		return Disposition{}
	}
	m.emit(model.EventCopy, map[string]any{"text_length": s.TextLength})
	return Disposition{Suppress: true}
}

func (m *Monitor) onPaste(s RawSignal) Disposition {
	if !m.Enabled() {
		return Disposition{}
	}
	m.emit(model.EventPaste, map[string]any{"text_length": s.TextLength})
	return Disposition{Suppress: true}
}

func (m *Monitor) onContextMenu(RawSignal) Disposition {
	if !m.Enabled() {
		return Disposition{}
	}
	m.emit(model.EventRightClick, nil)
	return Disposition{Suppress: true}
}

func (m *Monitor) onKeyDown(s RawSignal) Disposition {
	if !m.Enabled() || !isDevtoolsShortcut(s) {
		return Disposition{}
	}
	m.emit(model.EventConsoleOpen, map[string]any{"source": "keyboard", "key": s.Key})
	return Disposition{Suppress: true}
}

func (m *Monitor) onFullscreenDenied(s RawSignal) Disposition {
	if !m.Enabled() {
		return Disposition{}
	}
	var meta map[string]any
	if s.Reason != "" {
		meta = map[string]any{"reason": s.Reason}
	}
	m.emit(model.EventFullscreenDenied, meta)
	return Disposition{}
}

// onBeforeUnload logs the attempt whether or not the user goes on to leave.
func (m *Monitor) onBeforeUnload(RawSignal) Disposition {
	if !m.Enabled() {
		return Disposition{}
	}
	m.emit(model.EventBeforeUnloadAttempt, nil)
	return Disposition{Confirm: true}
}

// sample checks the window/viewport discrepancy once and reschedules itself.
// Once the gap has held for SustainSamples samples, every further
// over-threshold sample reports console_open.
func (m *Monitor) sample() {
	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return
	}

	var (
		fire   bool
		wg, hg int
	)
	if metrics, ok := m.src.WindowMetrics(); ok {
		wg, hg = metrics.Gaps()
		if wg > m.cfg.DevtoolsGap || hg > m.cfg.DevtoolsGap {
			m.overCount++
			fire = m.overCount >= m.cfg.SustainSamples
		} else {
			m.overCount = 0
		}
	}
	m.sampler = m.clock.AfterFunc(m.cfg.SampleInterval, m.sample)
	m.mu.Unlock()

	if fire {
		m.emit(model.EventConsoleOpen, map[string]any{
			"source":     "size_heuristic",
			"width_gap":  wg,
			"height_gap": hg,
		})
	}
}

func (m *Monitor) emit(typ model.EventType, meta map[string]any) {
	ev := model.ViolationEvent{Type: typ, Timestamp: m.clock.Now(), Metadata: meta}
	m.sink.Enqueue(ev)

	if !CountedTypes[typ] {
		m.log.Debug().Str("event_type", string(typ)).Msg("Proctoring event logged")
		return
	}

	state := m.tracker.Record(typ)
	m.log.Info().
		Str("event_type", string(typ)).
		Int("violations", state.ViolationCount).
		Bool("suspicious", state.IsSuspicious).
		Msg("Violation recorded")
	if m.cfg.OnViolation != nil {
		m.cfg.OnViolation(state)
	}
}
