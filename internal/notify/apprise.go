// Package notify delivers backup notifications and user-facing cues.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/sharkusmanch/outline-backup/internal/domain"
	"github.com/sharkusmanch/outline-backup/internal/http"
)

const (
	maxBodyLength = 1000
	ellipsis      = "..."
)

// AppriseClient sends notifications through an Apprise API server using a
// stored configuration key.
type AppriseClient struct {
	url        string
	key        string
	tag        string
	httpClient *http.Client
	logger     *slog.Logger
}

// AppriseOption configures an AppriseClient.
type AppriseOption func(*AppriseClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) AppriseOption {
	return func(a *AppriseClient) {
		a.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) AppriseOption {
	return func(a *AppriseClient) {
		a.logger = logger
	}
}

// WithTag restricts delivery to the services tagged tag in the stored configuration.
func WithTag(tag string) AppriseOption {
	return func(a *AppriseClient) {
		a.tag = tag
	}
}

// NewAppriseClient creates a new AppriseClient.
func NewAppriseClient(url, key string, opts ...AppriseOption) *AppriseClient {
	a := &AppriseClient{
		url:        strings.TrimSuffix(url, "/"),
		key:        key,
		httpClient: http.NewClient(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

type appriseRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Type   string `json:"type,omitempty"`
	Format string `json:"format,omitempty"`
	Tag    string `json:"tag,omitempty"`
}

// Notify sends a notification via Apprise.
func (a *AppriseClient) Notify(ctx context.Context, notification *domain.Notification) error {
	req := appriseRequest{
		Title:  notification.Title,
		Body:   truncate(notification.Body, maxBodyLength),
		Type:   appriseType(notification.Level),
		Format: "text",
		Tag:    a.tag,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	// The key is a secret; log the server only.
	a.logger.Debug("sending apprise notification",
		"server", a.url,
		"title", notification.Title,
		"type", req.Type,
	)

	resp, err := a.httpClient.Post(ctx, a.endpoint("notify"), "application/json", payload)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return resp.Err("apprise")
}

// Validate checks if the Apprise server is reachable.
func (a *AppriseClient) Validate(ctx context.Context) error {
	if err := a.httpClient.Probe(ctx, a.endpoint("details"), a.url); err != nil {
		return fmt.Errorf("apprise server not reachable at %s: %w", a.url, err)
	}
	return nil
}

// endpoint returns the URL of a keyed Apprise API route.
func (a *AppriseClient) endpoint(route string) string {
	return a.url + "/" + route + "/" + url.PathEscape(a.key)
}

// appriseTypes maps notification levels to Apprise message types.
var appriseTypes = map[domain.NotificationLevel]string{
	domain.NotificationLevelInfo:    "info",
	domain.NotificationLevelWarning: "warning",
	domain.NotificationLevelError:   "failure",
}

func appriseType(level domain.NotificationLevel) string {
	if t, ok := appriseTypes[level]; ok {
		return t
	}
	return "info"
}

// truncate shortens s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}

var _ domain.Notifier = (*AppriseClient)(nil)
