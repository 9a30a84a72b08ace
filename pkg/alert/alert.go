package alert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/elonfeng/clawbeat/pkg/dispatch"
)

// Notification announces one dispatch day's spotlight.
type Notification struct {
	Date  string          `json:"date"` // MM-DD-YYYY
	Title string          `json:"title"`
	URL   string          `json:"url"` // lead story
	Slots []dispatch.Slot `json:"slots"`
}

// NewSpotlightNotification builds the announcement for date's resolved slots.
func NewSpotlightNotification(date string, slots []dispatch.Slot) *Notification {
	n := &Notification{
		Date:  date,
		Title: fmt.Sprintf("ClawBeat dispatch for %s", date),
		Slots: slots,
	}
	for _, s := range slots {
		if s.Lead() {
			n.URL = s.URL
		}
	}
	return n
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// post delivers a JSON body and treats any 2xx as success.
func post(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
