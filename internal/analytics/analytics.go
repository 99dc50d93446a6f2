// Package analytics keeps CSV logs of successful backup runs and of CPU usage
// while the listener is up.
package analytics

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sharkusmanch/outline-backup/internal/domain"
)

// DefaultRows is how many rows a report shows when no count is given.
const DefaultRows = 10

var header = []string{"timestamp", "run_id", "duration_seconds", "bytes", "cpu_percent"}

// Recorder appends run records to a CSV file, writing the header when the
// file is new.
type Recorder struct {
	mu   sync.Mutex
	path string
}

// NewRecorder creates a Recorder for path. The file is created on first use.
func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

// Path returns the CSV file path.
func (r *Recorder) Path() string {
	return r.path
}

// Record appends one row.
func (r *Recorder) Record(_ context.Context, rec domain.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o750); err != nil {
		return fmt.Errorf("failed to create analytics directory: %w", err)
	}

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 - configured path
	if err != nil {
		return fmt.Errorf("failed to open analytics file: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat analytics file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("failed to write analytics header: %w", err)
		}
	}

	row := []string{
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.RunID,
		strconv.FormatFloat(rec.Duration.Seconds(), 'f', 3, 64),
		strconv.FormatUint(rec.Bytes, 10),
		strconv.FormatFloat(rec.CPUPercent, 'f', 2, 64),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write analytics row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush analytics file: %w", err)
	}
	return nil
}

// ReadRecent returns up to n of the newest records, oldest first. A missing
// file yields no records.
func ReadRecent(path string, n int) ([]domain.RunRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	return readTail(path, n, header, parseRow)
}

// readTail parses a CSV file written with the given header and returns its
// last n rows, oldest first, or every row when n <= 0.
func readTail[T any](path string, n int, header []string, parse func([]string) (T, error)) ([]T, error) {
	f, err := os.Open(path) // #nosec G304 - configured path
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(header)

	var rows []T
	start := 0
	line := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
		}
		if line == 1 && row[0] == header[0] {
			continue
		}

		v, err := parse(row)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
		}

		// Ring buffer once n rows are held.
		if n <= 0 || len(rows) < n {
			rows = append(rows, v)
			continue
		}
		rows[start] = v
		start = (start + 1) % n
	}

	return append(rows[start:], rows[:start]...), nil
}

func parseRow(row []string) (domain.RunRecord, error) {
	ts, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	secs, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("invalid duration: %w", err)
	}
	bytes, err := strconv.ParseUint(row[3], 10, 64)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("invalid bytes: %w", err)
	}
	cpu, err := strconv.ParseFloat(row[4], 64)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("invalid cpu percent: %w", err)
	}

	return domain.RunRecord{
		RunID:      row[1],
		Timestamp:  ts,
		Duration:   time.Duration(secs * float64(time.Second)),
		Bytes:      bytes,
		CPUPercent: cpu,
	}, nil
}

// Summary aggregates a set of records.
type Summary struct {
	Runs          int
	TotalBytes    uint64
	TotalDuration time.Duration
	AvgCPUPercent float64
}

// Summarize aggregates records.
func Summarize(records []domain.RunRecord) Summary {
	var s Summary
	var cpu float64
	for _, r := range records {
		s.Runs++
		s.TotalBytes += r.Bytes
		s.TotalDuration += r.Duration
		cpu += r.CPUPercent
	}
	if s.Runs > 0 {
		s.AvgCPUPercent = cpu / float64(s.Runs)
	}
	return s
}

// Throughput returns bytes per second for a record, or 0 for an instant run.
func Throughput(r domain.RunRecord) uint64 {
	if r.Duration <= 0 {
		return 0
	}
	return uint64(float64(r.Bytes) / r.Duration.Seconds())
}

// WriteReport renders records as an aligned text table followed by a summary line.
func WriteReport(w io.Writer, records []domain.RunRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No backups recorded yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tRUN\tDURATION\tSIZE\tSPEED\tCPU")
	for _, r := range records {
		runID := r.RunID
		if len(runID) > 8 {
			runID = runID[:8]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s/s\t%.1f%%\n",
			humanize.Time(r.Timestamp),
			runID,
			r.Duration.Round(10*time.Millisecond),
			humanize.Bytes(r.Bytes),
			humanize.Bytes(Throughput(r)),
			r.CPUPercent,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := Summarize(records)
	_, err := fmt.Fprintf(w, "\n%s in %s over %s, average CPU %.1f%%\n",
		humanize.Bytes(s.TotalBytes),
		humanize.Comma(int64(s.Runs))+" runs",
		s.TotalDuration.Round(time.Second),
		s.AvgCPUPercent,
	)
	return err
}

var _ domain.RunRecorder = (*Recorder)(nil)
