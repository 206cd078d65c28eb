package alerting

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/medlingo/transqa/internal/model"
)

// WindowStats are the rolling aggregates for one metric.
type WindowStats struct {
	Metric string  `json:"metric"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
}

// Stats computes the rolling-window aggregates for every metric with
// at least one sample.
func (m *Manager) Stats() []WindowStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()

	var out []WindowStats
	for metric, samples := range m.samples {
		samples = appendSamplePrune(samples, now, m.cfg.Window)
		m.samples[metric] = samples
		if len(samples) == 0 {
			continue
		}
		out = append(out, aggregate(metric, samples))
	}
	return out
}

// Monitor runs the periodic aggregated check until the context ends:
// every interval it re-checks thresholds against each metric's window
// mean, then sweeps for escalation and auto-resolve.
func (m *Manager) Monitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	zap.L().Info("alert monitor started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("alert monitor stopped")
			return
		case <-ticker.C:
			m.checkAggregates(ctx)
			m.Sweep(ctx)
		}
	}
}

// checkAggregates re-evaluates every threshold against its metric's
// windowed mean.
func (m *Manager) checkAggregates(ctx context.Context) {
	stats := m.Stats()

	m.mu.Lock()
	now := m.now()
	var fired []*model.Alert
	for _, st := range stats {
		for _, th := range m.thresholds {
			if th.MetricName != st.Metric {
				continue
			}
			details := map[string]any{
				"aggregated": true,
				"count":      st.Count,
				"mean":       st.Mean,
				"min":        st.Min,
				"max":        st.Max,
				"stddev":     st.StdDev,
			}
			if a := m.check(th, st.Mean, now, details); a != nil {
				fired = append(fired, a)
			}
		}
	}
	m.mu.Unlock()

	for _, a := range fired {
		m.dispatch(ctx, a)
		m.persist(ctx, a, false)
	}
}

func aggregate(metric string, samples []sample) WindowStats {
	st := WindowStats{
		Metric: metric,
		Count:  len(samples),
		Min:    samples[0].value,
		Max:    samples[0].value,
	}
	var sum float64
	for _, s := range samples {
		sum += s.value
		st.Min = math.Min(st.Min, s.value)
		st.Max = math.Max(st.Max, s.value)
	}
	st.Mean = sum / float64(len(samples))

	var variance float64
	for _, s := range samples {
		d := s.value - st.Mean
		variance += d * d
	}
	st.StdDev = math.Sqrt(variance / float64(len(samples)))
	return st
}

// appendSamplePrune drops samples older than the window without adding
// a new one.
func appendSamplePrune(samples []sample, now time.Time, window time.Duration) []sample {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(samples); i++ {
		if !samples[i].at.Before(cutoff) {
			break
		}
	}
	return samples[i:]
}
