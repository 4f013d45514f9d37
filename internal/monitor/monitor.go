// Package monitor periodically probes devices that carry an IP address and
// records their reachability, latency and status on the topology.
package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"topomap/internal/domain"
	"topomap/internal/metrics"
	"topomap/internal/service"
	"topomap/internal/topology"
)

// Topology is the part of the topology service the monitor uses
type Topology interface {
	Snapshot() topology.Snapshot
	UpdateNodeMetrics(id string, m domain.NodeMetrics, status domain.NodeStatus) error
}

// Config holds configuration for the monitor
type Config struct {
	// Interval between probe cycles
	Interval time.Duration
	// Timeout for each TCP dial
	Timeout time.Duration
	// Ports tried in order until one answers
	Ports []int
	// MaxConcurrent limits parallel probes
	MaxConcurrent int
	// WarnLatency marks slower answers as warning instead of online
	WarnLatency time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Interval:      time.Minute,
		Timeout:       2 * time.Second,
		Ports:         []int{22, 80, 443, 53},
		MaxConcurrent: 10,
		WarnLatency:   200 * time.Millisecond,
	}
}

// CycleResult summarizes one probe cycle
type CycleResult struct {
	Probed  int           `json:"probed"`
	Online  int           `json:"online"`
	Warning int           `json:"warning"`
	Offline int           `json:"offline"`
	Skipped int           `json:"skipped"`
	Elapsed time.Duration `json:"elapsed"`
}

// Monitor probes nodes on a schedule
type Monitor struct {
	config  Config
	topo    Topology
	prober  Prober
	metrics *metrics.Registry
	bus     *service.EventBus
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Monitor
type Option func(*Monitor)

// WithProber replaces the TCP prober
func WithProber(p Prober) Option {
	return func(m *Monitor) {
		m.prober = p
	}
}

// WithMetrics records probe counts and durations
func WithMetrics(r *metrics.Registry) Option {
	return func(m *Monitor) {
		m.metrics = r
	}
}

// WithEventBus publishes a summary after each cycle
func WithEventBus(bus *service.EventBus) Option {
	return func(m *Monitor) {
		m.bus = bus
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// New creates a monitor over topo
func New(topo Topology, config Config, opts ...Option) *Monitor {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	m := &Monitor{
		config: config,
		topo:   topo,
		prober: TCPProber{Ports: config.Ports, Timeout: config.Timeout},
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run probes immediately and then every Interval until ctx is cancelled
func (m *Monitor) Run(ctx context.Context) {
	interval := m.config.Interval
	if interval <= 0 {
		m.logger.Warn("invalid monitor interval, using 1m default", zap.Duration("interval", interval))
		interval = time.Minute
	}
	m.logger.Info("monitor started",
		zap.Duration("interval", interval),
		zap.Ints("ports", m.config.Ports),
		zap.Int("concurrency", m.config.MaxConcurrent),
	)

	m.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

// probeOutcome pairs a node with its result
type probeOutcome struct {
	nodeID string
	ip     string
	result ProbeResult
}

// RunOnce probes every node with a real IP address once and records the
// results. Nodes without an address or with a generated sample address are
// skipped.
func (m *Monitor) RunOnce(ctx context.Context) CycleResult {
	start := m.now()
	var summary CycleResult

	var targets []domain.Node
	for _, n := range m.topo.Snapshot().Nodes {
		if n.Metadata.IP == "" || n.Metadata.SampleIP {
			summary.Skipped++
			continue
		}
		targets = append(targets, n)
	}

	workCh := make(chan domain.Node, len(targets))
	resultCh := make(chan probeOutcome, len(targets))

	var wg sync.WaitGroup
	for i := 0; i < m.config.MaxConcurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for node := range workCh {
				if ctx.Err() != nil {
					return
				}
				resultCh <- probeOutcome{
					nodeID: node.ID,
					ip:     node.Metadata.IP,
					result: m.prober.Probe(ctx, node.Metadata.IP),
				}
			}
		}()
	}

	for _, node := range targets {
		workCh <- node
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for out := range resultCh {
		status := m.record(out)
		summary.Probed++
		switch status {
		case domain.NodeOnline:
			summary.Online++
		case domain.NodeWarning:
			summary.Warning++
		case domain.NodeOffline:
			summary.Offline++
		}
	}

	summary.Elapsed = m.now().Sub(start)
	m.logger.Info("probe cycle complete",
		zap.Int("probed", summary.Probed),
		zap.Int("online", summary.Online),
		zap.Int("warning", summary.Warning),
		zap.Int("offline", summary.Offline),
		zap.Duration("elapsed", summary.Elapsed),
	)
	if m.bus != nil {
		m.bus.Publish(service.Event{Type: service.EventProbeCycleFinished, Payload: summary})
	}
	return summary
}

// record turns one probe into node metrics and a status
func (m *Monitor) record(out probeOutcome) domain.NodeStatus {
	checked := m.now()
	nm := domain.NodeMetrics{LastChecked: &checked}

	status := domain.NodeOffline
	if out.result.Reachable {
		status = domain.NodeOnline
		if m.config.WarnLatency > 0 && out.result.Latency > m.config.WarnLatency {
			status = domain.NodeWarning
		}
		nm.LatencyMs = float64(out.result.Latency.Microseconds()) / 1000
	} else {
		nm.PacketLoss = 100
	}

	if m.metrics != nil {
		m.metrics.RecordProbe(string(status), out.result.Latency)
	}
	m.logger.Debug("probed node",
		zap.String("node_id", out.nodeID),
		zap.String("ip", out.ip),
		zap.String("status", string(status)),
		zap.Duration("latency", out.result.Latency),
		zap.Error(out.result.Err),
	)

	// The node may have been removed while the probe was in flight
	if err := m.topo.UpdateNodeMetrics(out.nodeID, nm, status); err != nil {
		m.logger.Debug("node vanished before probe result", zap.String("node_id", out.nodeID), zap.Error(err))
	}
	return status
}
