package analytics

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/sharkusmanch/outline-backup/internal/domain"
)

var cpuHeader = []string{"timestamp", "cpu_percent"}

// CPUSample is one reading of overall CPU utilization.
type CPUSample struct {
	Timestamp time.Time
	Percent   float64
}

// CPULog is the CSV log of periodic CPU samples for one listener session.
type CPULog struct {
	mu   sync.Mutex
	path string
}

// NewCPULog creates a CPULog for path.
func NewCPULog(path string) *CPULog {
	return &CPULog{path: path}
}

// Path returns the CSV file path.
func (l *CPULog) Path() string {
	return l.path
}

// Truncate starts a new session: the file is replaced by a bare header.
func (l *CPULog) Truncate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.write(os.O_CREATE|os.O_WRONLY|os.O_TRUNC, nil)
}

// Append adds one sample, creating the file if needed.
func (l *CPULog) Append(s CPUSample) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.write(os.O_CREATE|os.O_WRONLY|os.O_APPEND, []string{
		s.Timestamp.UTC().Format(time.RFC3339),
		strconv.FormatFloat(s.Percent, 'f', 2, 64),
	})
}

func (l *CPULog) write(flag int, row []string) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("failed to create cpu log directory: %w", err)
	}

	f, err := os.OpenFile(l.path, flag, 0o600) // #nosec G304 - configured path
	if err != nil {
		return fmt.Errorf("failed to open cpu log: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat cpu log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(cpuHeader); err != nil {
			return fmt.Errorf("failed to write cpu log header: %w", err)
		}
	}
	if row != nil {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write cpu sample: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush cpu log: %w", err)
	}
	return nil
}

// ReadCPUSamples returns every sample in the log, oldest first. A missing
// file yields no samples.
func ReadCPUSamples(path string) ([]CPUSample, error) {
	return readTail(path, 0, cpuHeader, func(row []string) (CPUSample, error) {
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return CPUSample{}, fmt.Errorf("invalid timestamp: %w", err)
		}
		p, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return CPUSample{}, fmt.Errorf("invalid cpu percent: %w", err)
		}
		return CPUSample{Timestamp: ts, Percent: p}, nil
	})
}

// CPUStats summarizes a set of samples.
type CPUStats struct {
	Samples int
	Min     float64
	Max     float64
	Avg     float64
}

// SummarizeCPU computes min, max and mean utilization. All fields are zero
// for no samples.
func SummarizeCPU(samples []CPUSample) CPUStats {
	if len(samples) == 0 {
		return CPUStats{}
	}

	st := CPUStats{Samples: len(samples), Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, s := range samples {
		st.Min = math.Min(st.Min, s.Percent)
		st.Max = math.Max(st.Max, s.Percent)
		sum += s.Percent
	}
	st.Avg = sum / float64(len(samples))
	return st
}

// WriteCPUReport prints the session statistics and the last n samples,
// newest first.
func WriteCPUReport(w io.Writer, samples []CPUSample, n int) error {
	if len(samples) == 0 {
		_, err := fmt.Fprintln(w, "No CPU samples recorded.")
		return err
	}

	st := SummarizeCPU(samples)
	if _, err := fmt.Fprintf(w, "CPU usage over %d samples: min %.2f%%, max %.2f%%, avg %.2f%%\n\n",
		st.Samples, st.Min, st.Max, st.Avg); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tCPU")
	for i := len(samples) - 1; i >= 0 && i >= len(samples)-n; i-- {
		fmt.Fprintf(tw, "%s\t%.2f%%\n", samples[i].Timestamp.Local().Format(time.DateTime), samples[i].Percent)
	}
	return tw.Flush()
}

// Monitor records CPU utilization into a CPULog at a fixed interval.
type Monitor struct {
	sampler  domain.CPUSampler
	log      *CPULog
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithMonitorLogger sets the logger.
func WithMonitorLogger(l *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.logger = l
	}
}

// NewMonitor creates a Monitor. interval must be positive.
func NewMonitor(sampler domain.CPUSampler, log *CPULog, interval time.Duration, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		sampler:  sampler,
		log:      log,
		interval: interval,
		logger:   slog.Default(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Run clears the log, then samples until ctx is cancelled. Sampling and
// write failures are logged and do not stop the monitor; it always returns
// nil so that it never takes the listener down with it.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.log.Truncate(); err != nil {
		m.logger.Warn("cpu usage log disabled", "error", err)
		return nil
	}
	m.logger.Debug("cpu usage log started", "path", m.log.Path(), "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.sample(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Monitor) sample(ctx context.Context) {
	p, err := m.sampler.Sample(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		m.logger.Warn("failed to sample cpu usage", "error", err)
		return
	}
	if err := m.log.Append(CPUSample{Timestamp: m.now(), Percent: p}); err != nil {
		m.logger.Warn("failed to record cpu usage", "error", err)
	}
}
