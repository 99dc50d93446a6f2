// Package metrics pushes backup metrics to a Prometheus Pushgateway and
// samples system CPU usage.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"runtime"
	"strings"

	"github.com/sharkusmanch/outline-backup/internal/domain"
	"github.com/sharkusmanch/outline-backup/internal/http"
	"github.com/sharkusmanch/outline-backup/pkg/version"
)

const (
	metricsJobName = "outline_backup"
	contentType    = "text/plain; charset=utf-8"
)

// PushgatewayClient pushes metrics to a Prometheus Pushgateway.
type PushgatewayClient struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// PushgatewayOption configures a PushgatewayClient.
type PushgatewayOption func(*PushgatewayClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) PushgatewayOption {
	return func(p *PushgatewayClient) {
		p.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PushgatewayOption {
	return func(p *PushgatewayClient) {
		p.logger = logger
	}
}

// NewPushgatewayClient creates a new PushgatewayClient.
func NewPushgatewayClient(baseURL string, opts ...PushgatewayOption) *PushgatewayClient {
	p := &PushgatewayClient{
		url:        strings.TrimSuffix(baseURL, "/"),
		httpClient: http.NewClient(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Push replaces this host's metric group on the Pushgateway.
func (p *PushgatewayClient) Push(ctx context.Context, metrics *domain.Metrics) error {
	body := p.buildMetrics(metrics)

	pushURL := fmt.Sprintf("%s/metrics/job/%s/instance/%s", p.url, metricsJobName, url.PathEscape(metrics.Hostname))

	p.logger.Debug("pushing metrics to pushgateway",
		"url", pushURL,
		"has_outcome", metrics.Outcome != nil,
	)

	resp, err := p.httpClient.Post(ctx, pushURL, contentType, []byte(body))
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}

	return resp.Err("pushgateway")
}

// Validate checks if the Pushgateway is reachable.
func (p *PushgatewayClient) Validate(ctx context.Context) error {
	if err := p.httpClient.Probe(ctx, p.url+"/-/ready", p.url); err != nil {
		return fmt.Errorf("pushgateway not reachable at %s: %w", p.url, err)
	}
	return nil
}

type gauge struct {
	name string
	help string
}

var (
	gaugeUp          = gauge{"outline_backup_up", "Service is running"}
	gaugeInfo        = gauge{"outline_backup_info", "Build information"}
	gaugeTimestamp   = gauge{"outline_backup_last_run_timestamp_seconds", "Unix timestamp of the last run's end"}
	gaugeOutcome     = gauge{"outline_backup_last_run_outcome", "1 for the outcome of the last run, 0 for the others"}
	gaugeDuration    = gauge{"outline_backup_last_run_duration_seconds", "Duration of the last successful run"}
	gaugeFilesTotal  = gauge{"outline_backup_last_run_files_total", "Files selected by the last run"}
	gaugeFilesCopied = gauge{"outline_backup_last_run_files_copied", "Files copied and verified by the last run"}
	gaugeBytes       = gauge{"outline_backup_last_run_bytes_copied", "Bytes copied by the last run"}
	gaugeCPU         = gauge{"outline_backup_last_run_cpu_percent", "System CPU utilization sampled after the last successful run"}
)

var outcomeKinds = []domain.OutcomeKind{
	domain.OutcomeSuccess,
	domain.OutcomeCancelled,
	domain.OutcomeFailed,
}

// buildMetrics constructs the Prometheus text format metrics.
func (p *PushgatewayClient) buildMetrics(m *domain.Metrics) string {
	var b strings.Builder

	up := 0
	if m.ServiceUp {
		up = 1
	}
	writeGauge(&b, gaugeUp, fmt.Sprintf("%s %d\n", gaugeUp.name, up))

	versionInfo := version.Get()
	writeGauge(&b, gaugeInfo, fmt.Sprintf("%s{version=%q,go_version=%q} 1\n",
		gaugeInfo.name, versionInfo.Version, runtime.Version()))

	o := m.Outcome
	if o == nil {
		return b.String()
	}

	writeGauge(&b, gaugeTimestamp, fmt.Sprintf("%s %d\n", gaugeTimestamp.name, o.EndTime.Unix()))

	var outcomes strings.Builder
	for _, kind := range outcomeKinds {
		v := 0
		if o.Kind == kind {
			v = 1
		}
		fmt.Fprintf(&outcomes, "%s{outcome=%q} %d\n", gaugeOutcome.name, kind, v)
	}
	writeGauge(&b, gaugeOutcome, outcomes.String())

	writeGauge(&b, gaugeDuration, fmt.Sprintf("%s %.3f\n", gaugeDuration.name, o.Duration.Seconds()))
	writeGauge(&b, gaugeFilesTotal, fmt.Sprintf("%s %d\n", gaugeFilesTotal.name, m.Progress.FilesTotal))
	writeGauge(&b, gaugeFilesCopied, fmt.Sprintf("%s %d\n", gaugeFilesCopied.name, o.FilesCopied))
	writeGauge(&b, gaugeBytes, fmt.Sprintf("%s %d\n", gaugeBytes.name, m.Progress.BytesCopied))
	writeGauge(&b, gaugeCPU, fmt.Sprintf("%s %.2f\n", gaugeCPU.name, m.CPUPercent))

	return b.String()
}

func writeGauge(b *strings.Builder, g gauge, samples string) {
	fmt.Fprintf(b, "# HELP %s %s\n", g.name, g.help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", g.name)
	b.WriteString(samples)
	b.WriteString("\n")
}

// Ensure PushgatewayClient implements domain.MetricsPusher.
var _ domain.MetricsPusher = (*PushgatewayClient)(nil)
