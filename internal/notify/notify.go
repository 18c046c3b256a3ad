// Package notify sends generation run summaries to chat platforms.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/caretaker/internal/config"
)

// Sidebar colors for summary severity.
const (
	ColorSuccess = "#36a64f"
	ColorError   = "#e53935"
)

// maxRetries bounds rate-limit retries per delivery.
const maxRetries = 3

// Summary describes one generation run.
type Summary struct {
	Site     string
	Date     string
	RunID    string
	Created  int
	Existing int
	Linked   int
	Duration time.Duration
	Err      error
}

// Notifier delivers summaries.
type Notifier interface {
	Notify(ctx context.Context, s Summary) error
}

// Field is a key-value pair rendered beside the summary text.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Message is the platform-neutral rendering of a Summary.
type Message struct {
	Title  string
	Body   string
	Color  string
	Fields []Field
}

// Format renders a Summary for chat.
func Format(s Summary) Message {
	m := Message{
		Title: fmt.Sprintf("Task generation for %s", s.Date),
		Color: ColorSuccess,
		Fields: []Field{
			{Name: "Created", Value: fmt.Sprint(s.Created), Short: true},
			{Name: "Existing", Value: fmt.Sprint(s.Existing), Short: true},
			{Name: "Linked", Value: fmt.Sprint(s.Linked), Short: true},
		},
	}
	if s.Site != "" {
		m.Title += " at " + s.Site
	}
	if s.Err != nil {
		m.Color = ColorError
		m.Body = "Run failed: " + s.Err.Error()
	} else {
		m.Body = fmt.Sprintf("Run %s finished in %s.", s.RunID, s.Duration.Round(time.Millisecond))
	}
	return m
}

// Nop discards summaries.
type Nop struct{}

func (Nop) Notify(context.Context, Summary) error { return nil }

// Multi fans a summary out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, s Summary) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds the notifiers configured in cfg, or Nop if none are.
func FromConfig(cfg config.NotifyConfig) (Notifier, error) {
	var out Multi
	if cfg.SlackWebhook != "" {
		out = append(out, NewSlack(cfg.SlackWebhook, cfg.Channel))
	}
	if cfg.DiscordWebhook != "" {
		d, err := NewDiscord(cfg.DiscordWebhook)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	switch len(out) {
	case 0:
		return Nop{}, nil
	case 1:
		return out[0], nil
	}
	return out, nil
}

// backoff waits before retry attempt, honoring ctx.
func backoff(ctx context.Context, wait time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
