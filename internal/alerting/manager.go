// Package alerting watches streaming quality metrics against
// configurable thresholds and manages the resulting alert lifecycle.
package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medlingo/transqa/internal/model"
	"github.com/medlingo/transqa/internal/store"
	"github.com/medlingo/transqa/pkg/notify"
)

// ErrUnknownAlert is returned for lifecycle operations on an alert id
// the manager does not hold.
var ErrUnknownAlert = eris.New("alerting: unknown alert")

// Config controls the alert manager.
type Config struct {
	Window           time.Duration
	AutoResolveGrace time.Duration
	HistoryLimit     int
}

// DefaultManagerConfig returns the manager defaults.
func DefaultManagerConfig() Config {
	return Config{
		Window:           5 * time.Minute,
		AutoResolveGrace: 10 * time.Minute,
		HistoryLimit:     100,
	}
}

type sample struct {
	value float64
	at    time.Time
}

// Manager evaluates metric samples against thresholds and owns the
// lifecycle of fired alerts. Safe for concurrent use; one mutex guards
// all shared state.
type Manager struct {
	cfg        Config
	thresholds []model.Threshold
	senders    []notify.Sender
	store      store.Store
	now        func() time.Time

	mu          sync.Mutex
	samples     map[string][]sample
	lastFired   map[string]time.Time
	lastBreach  map[string]time.Time
	occurrences map[string]int
	byID        map[string]*model.Alert
	activeByKey map[string]string
	history     []model.Alert
}

// Option configures a Manager.
type Option func(*Manager)

// WithSenders sets the notification channels.
func WithSenders(senders ...notify.Sender) Option {
	return func(m *Manager) { m.senders = senders }
}

// WithStore persists alerts. Persistence failures are logged, never
// fatal.
func WithStore(s store.Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager watching the given thresholds.
func NewManager(cfg Config, thresholds []model.Threshold, opts ...Option) *Manager {
	if cfg.Window <= 0 {
		cfg.Window = 5 * time.Minute
	}
	if cfg.AutoResolveGrace <= 0 {
		cfg.AutoResolveGrace = 10 * time.Minute
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 100
	}
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds()
	}
	m := &Manager{
		cfg:         cfg,
		thresholds:  thresholds,
		senders:     []notify.Sender{notify.LogSender{}},
		now:         time.Now,
		samples:     make(map[string][]sample),
		lastFired:   make(map[string]time.Time),
		lastBreach:  make(map[string]time.Time),
		occurrences: make(map[string]int),
		byID:        make(map[string]*model.Alert),
		activeByKey: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Record ingests one metric sample and fires any thresholds it trips.
// Fired alerts are returned; nil means no threshold fired.
func (m *Manager) Record(ctx context.Context, metric string, value float64) []*model.Alert {
	m.mu.Lock()
	now := m.now()
	m.samples[metric] = appendSample(m.samples[metric], sample{value: value, at: now}, now, m.cfg.Window)

	var fired []*model.Alert
	for _, th := range m.thresholds {
		if th.MetricName != metric {
			continue
		}
		if a := m.check(th, value, now, nil); a != nil {
			fired = append(fired, a)
		}
	}
	m.mu.Unlock()

	for _, a := range fired {
		m.dispatch(ctx, a)
		m.persist(ctx, a, false)
	}
	return fired
}

// check evaluates one threshold against a value. Caller holds the lock.
func (m *Manager) check(th model.Threshold, value float64, now time.Time, details map[string]any) *model.Alert {
	key := th.Key()
	if !th.Comparison.Breached(value, th.Value) {
		return nil
	}
	m.lastBreach[key] = now

	if th.OccurrenceCount > 1 {
		m.occurrences[key]++
		if m.occurrences[key] < th.OccurrenceCount {
			return nil
		}
		m.occurrences[key] = 0
	}
	if th.Cooldown > 0 {
		if last, ok := m.lastFired[key]; ok && now.Sub(last) < th.Cooldown {
			return nil
		}
	}
	m.lastFired[key] = now

	alert := &model.Alert{
		ID:             uuid.NewString(),
		Type:           th.AlertType,
		Severity:       th.Severity,
		Status:         model.AlertActive,
		Message:        fmt.Sprintf("%s: %s %s %.4g (observed %.4g)", th.MetricName, th.Description, th.Comparison, th.Value, value),
		MetricName:     th.MetricName,
		MetricValue:    value,
		ThresholdValue: th.Value,
		TriggeredAt:    now.UTC(),
		Details:        details,
	}
	m.byID[alert.ID] = alert
	m.activeByKey[key] = alert.ID
	m.pushHistory(*alert)
	return alert
}

// Acknowledge marks an active alert as seen by a human.
func (m *Manager) Acknowledge(ctx context.Context, id string) error {
	return m.transition(ctx, id, func(a *model.Alert, now time.Time) {
		a.Status = model.AlertAcknowledged
		t := now.UTC()
		a.AcknowledgedAt = &t
	})
}

// Resolve closes an alert.
func (m *Manager) Resolve(ctx context.Context, id string) error {
	return m.transition(ctx, id, func(a *model.Alert, now time.Time) {
		a.Status = model.AlertResolved
		t := now.UTC()
		a.ResolvedAt = &t
	})
}

// Suppress silences an alert until the given time.
func (m *Manager) Suppress(ctx context.Context, id string, until time.Time) error {
	return m.transition(ctx, id, func(a *model.Alert, _ time.Time) {
		a.Status = model.AlertSuppressed
		u := until.UTC()
		a.SuppressedUntil = &u
	})
}

func (m *Manager) transition(ctx context.Context, id string, apply func(*model.Alert, time.Time)) error {
	m.mu.Lock()
	a, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownAlert
	}
	apply(a, m.now())
	if a.Status == model.AlertResolved {
		m.clearActive(a)
	}
	snapshot := *a
	m.mu.Unlock()

	m.persist(ctx, &snapshot, true)
	return nil
}

// clearActive removes an alert from the active index. Caller holds the
// lock.
func (m *Manager) clearActive(a *model.Alert) {
	for key, id := range m.activeByKey {
		if id == a.ID {
			delete(m.activeByKey, key)
		}
	}
}

// Sweep escalates stale active alerts, auto-resolves alerts whose
// metric has stayed clear for the grace period, and reopens alerts
// whose suppression window has elapsed. Escalation bumps severity to
// critical and re-notifies.
func (m *Manager) Sweep(ctx context.Context) {
	m.mu.Lock()
	now := m.now()
	var escalated, resolved, unsuppressed []*model.Alert
	for _, th := range m.thresholds {
		key := th.Key()
		id, ok := m.activeByKey[key]
		if !ok {
			continue
		}
		a := m.byID[id]

		if a.Status == model.AlertSuppressed {
			if a.SuppressedUntil == nil || now.Before(*a.SuppressedUntil) {
				continue
			}
			a.Status = model.AlertActive
			a.SuppressedUntil = nil
			unsuppressed = append(unsuppressed, a)
			continue
		}

		if a.Status == model.AlertActive && th.EscalateAfter > 0 && now.Sub(a.TriggeredAt) >= th.EscalateAfter {
			a.Status = model.AlertEscalated
			a.Severity = model.AlertCritical
			t := now.UTC()
			a.EscalatedAt = &t
			escalated = append(escalated, a)
			continue
		}

		grace := th.AutoResolveAfter
		if grace <= 0 {
			grace = m.cfg.AutoResolveGrace
		}
		if lastBreach, ok := m.lastBreach[key]; ok && now.Sub(lastBreach) >= grace {
			a.Status = model.AlertResolved
			t := now.UTC()
			a.ResolvedAt = &t
			m.clearActive(a)
			resolved = append(resolved, a)
		}
	}
	m.mu.Unlock()

	for _, a := range escalated {
		m.dispatch(ctx, a)
		m.persist(ctx, a, true)
	}
	for _, a := range resolved {
		zap.L().Info("alert auto-resolved",
			zap.String("alert_id", a.ID),
			zap.String("metric", a.MetricName),
		)
		m.persist(ctx, a, true)
	}
	for _, a := range unsuppressed {
		zap.L().Info("alert suppression expired",
			zap.String("alert_id", a.ID),
			zap.String("metric", a.MetricName),
		)
		m.persist(ctx, a, true)
	}
}

// Active returns the currently open alerts.
func (m *Manager) Active() []model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Alert, 0, len(m.activeByKey))
	for _, id := range m.activeByKey {
		out = append(out, *m.byID[id])
	}
	return out
}

// Export returns the most recent alerts, newest last, bounded by the
// history limit.
func (m *Manager) Export() []model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Alert, len(m.history))
	copy(out, m.history)
	return out
}

func (m *Manager) pushHistory(a model.Alert) {
	m.history = append(m.history, a)
	if len(m.history) > m.cfg.HistoryLimit {
		m.history = m.history[len(m.history)-m.cfg.HistoryLimit:]
	}
}

// dispatch fans an alert out to every channel concurrently. A channel
// failure is logged and never blocks the others.
func (m *Manager) dispatch(ctx context.Context, a *model.Alert) {
	msg := notify.Message{
		Title:    fmt.Sprintf("[%s] %s", a.Severity, a.Type),
		Body:     a.Message,
		Severity: string(a.Severity),
		Fields: map[string]string{
			"alert_id":    a.ID,
			"metric_name": a.MetricName,
			"status":      string(a.Status),
		},
		SentAt: m.now().UTC(),
	}

	var wg sync.WaitGroup
	for _, s := range m.senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Send(ctx, msg); err != nil {
				zap.L().Error("alert notification failed",
					zap.String("channel", s.Name()),
					zap.String("alert_id", a.ID),
					zap.Error(err),
				)
			}
		}()
	}
	wg.Wait()
}

func (m *Manager) persist(ctx context.Context, a *model.Alert, update bool) {
	if m.store == nil {
		return
	}
	var err error
	if update {
		err = m.store.UpdateAlert(ctx, a)
	} else {
		err = m.store.SaveAlert(ctx, a)
	}
	if err != nil {
		zap.L().Warn("alert persistence failed",
			zap.String("alert_id", a.ID),
			zap.Error(err),
		)
	}
}

// appendSample adds a sample and prunes everything older than the
// window.
func appendSample(samples []sample, s sample, now time.Time, window time.Duration) []sample {
	samples = append(samples, s)
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(samples); i++ {
		if !samples[i].at.Before(cutoff) {
			break
		}
	}
	return samples[i:]
}
