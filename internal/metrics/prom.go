// Package metrics exports belt simulation counters as Prometheus metrics.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vovakirdan/beltline/internal/belt"
	"github.com/vovakirdan/beltline/internal/scenario"
)

// PromSink records scenario step reports in Prometheus metrics.
type PromSink struct {
	transfers   *prometheus.CounterVec
	drops       *prometheus.CounterVec
	stalls      *prometheus.CounterVec
	feeder      *prometheus.CounterVec
	held        *prometheus.HistogramVec
	resident    prometheus.Gauge
	tick        prometheus.Gauge
	teleporters *prometheus.GaugeVec
}

// NewPromSink registers the belt metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beltline_transfers_total",
			Help: "Items handed from one segment to another",
		}, []string{"kind"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beltline_drops_total",
			Help: "Items that left the belts onto the ground",
		}, []string{"outcome"}),
		stalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beltline_stalls_total",
			Help: "Ready items that could not move",
		}, []string{"reason"}),
		feeder: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beltline_feeder_items_total",
			Help: "Feeder emissions by result",
		}, []string{"result"}),
		held: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "beltline_item_held_ticks",
			Help:    "Ticks an item spent on a segment before leaving it",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"role"}),
		resident: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "beltline_resident_items",
			Help: "Items currently on belts",
		}),
		tick: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "beltline_tick",
			Help: "Current simulation tick",
		}),
		teleporters: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "beltline_teleporter_senders",
			Help: "Teleporter senders by pairing state",
		}, []string{"state"}),
	}

	var err error
	if s.transfers, err = register(reg, s.transfers); err != nil {
		return nil, err
	}
	if s.drops, err = register(reg, s.drops); err != nil {
		return nil, err
	}
	if s.stalls, err = register(reg, s.stalls); err != nil {
		return nil, err
	}
	if s.feeder, err = register(reg, s.feeder); err != nil {
		return nil, err
	}
	if s.held, err = register(reg, s.held); err != nil {
		return nil, err
	}
	if s.resident, err = register(reg, s.resident); err != nil {
		return nil, err
	}
	if s.tick, err = register(reg, s.tick); err != nil {
		return nil, err
	}
	if s.teleporters, err = register(reg, s.teleporters); err != nil {
		return nil, err
	}
	return s, nil
}

// register reuses an already registered collector of the same shape.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return c, fmt.Errorf("metrics: %w", err)
		}
		existing, ok := are.ExistingCollector.(C)
		if !ok {
			return c, fmt.Errorf("metrics: collector registered with another type: %w", err)
		}
		return existing, nil
	}
	return c, nil
}

// RecordStep folds one step report into the metrics. sim is used to
// classify the source segments of hold-time observations and may be nil.
func (s *PromSink) RecordStep(rep scenario.Report, sim *belt.Sim) {
	for _, tr := range rep.Transfers {
		kind := "belt"
		if tr.Teleport {
			kind = "teleport"
		}
		s.transfers.WithLabelValues(kind).Inc()
		s.held.WithLabelValues(roleAt(sim, tr.From, tr.Teleport)).Observe(float64(tr.Held))
	}
	for _, d := range rep.Drops {
		s.drops.WithLabelValues(d.Outcome.String()).Inc()
		s.held.WithLabelValues(roleAt(sim, d.From, false)).Observe(float64(d.Held))
	}
	for _, st := range rep.Stalls {
		s.stalls.WithLabelValues(st.Reason.String()).Inc()
	}
	if rep.Spawned > 0 {
		s.feeder.WithLabelValues("spawned").Add(float64(rep.Spawned))
	}
	if rep.FeederBlocked > 0 {
		s.feeder.WithLabelValues("blocked").Add(float64(rep.FeederBlocked))
	}
	s.resident.Set(float64(rep.Resident))
	s.tick.Set(float64(rep.Tick))
}

// RecordPairing sets the teleporter pairing gauges.
func (s *PromSink) RecordPairing(paired, unpaired int) {
	s.teleporters.WithLabelValues("paired").Set(float64(paired))
	s.teleporters.WithLabelValues("unpaired").Set(float64(unpaired))
}

// RecordTotals seeds the counters from run totals. Call it once, before
// any RecordStep, so a resumed run's counters continue where the saved
// run left off.
func (s *PromSink) RecordTotals(t scenario.Totals) {
	teleports := float64(t.Teleports)
	s.transfers.WithLabelValues("teleport").Add(teleports)
	s.transfers.WithLabelValues("belt").Add(float64(t.Transfers) - teleports)
	s.drops.WithLabelValues(belt.DropPlaced.String()).Add(float64(t.Delivered))
	for reason, n := range t.Stalls {
		s.stalls.WithLabelValues(reason.String()).Add(float64(n))
	}
	s.feeder.WithLabelValues("spawned").Add(float64(t.Spawned))
	s.feeder.WithLabelValues("blocked").Add(float64(t.FeederBlocked))
	s.resident.Set(float64(t.Resident))
	s.tick.Set(float64(t.Ticks))
	s.RecordPairing(t.Paired, t.Unpaired)
}

// Observe steps sc n times, or until ctx is done, recording every step.
// Counters start from the totals sc already carries, which are zero for
// a fresh scenario.
func (s *PromSink) Observe(ctx context.Context, sc *scenario.Scenario, n int) error {
	s.RecordTotals(sc.Totals())
	err := sc.Run(ctx, n, func(rep scenario.Report) {
		s.RecordStep(rep, sc.Sim)
	})
	t := sc.Totals()
	s.RecordPairing(t.Paired, t.Unpaired)
	return err
}

func roleAt(sim *belt.Sim, pos belt.Coord, teleport bool) string {
	if teleport {
		return belt.RoleSender.String()
	}
	if sim != nil {
		if seg := sim.SegmentAt(pos); seg != nil {
			return seg.Role.String()
		}
	}
	return belt.RolePlain.String()
}

// WriteTextfile writes everything g gathers to path in the Prometheus
// text exposition format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
