package domain

import "context"

// NotificationLevel is the severity attached to a Notification. Receivers map
// it to their own vocabulary.
type NotificationLevel string

const (
	NotificationLevelInfo    NotificationLevel = "info"
	NotificationLevelWarning NotificationLevel = "warning"
	NotificationLevelError   NotificationLevel = "error"
)

// Notification is a message about a finished backup.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Level NotificationLevel `json:"level"`
}

func NewNotification(title, body string, level NotificationLevel) *Notification {
	return &Notification{Title: title, Body: body, Level: level}
}

// Notifier delivers notifications. Validate is used by the validate command
// to check reachability without sending anything.
type Notifier interface {
	Notify(ctx context.Context, notification *Notification) error
	Validate(ctx context.Context) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, *Notification) error { return nil }
func (NopNotifier) Validate(context.Context) error              { return nil }
