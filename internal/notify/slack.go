package notify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	slackapi "github.com/slack-go/slack"
)

// Slack posts summaries to an incoming webhook.
type Slack struct {
	WebhookURL  string
	Channel     string
	HTTPClient  *http.Client
	BaseBackoff time.Duration
}

// NewSlack returns a Slack notifier for webhookURL. Channel may be empty to
// use the webhook's default.
func NewSlack(webhookURL, channel string) *Slack {
	return &Slack{
		WebhookURL:  webhookURL,
		Channel:     channel,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
		BaseBackoff: time.Second,
	}
}

// Notify posts s as a message with one attachment.
func (s *Slack) Notify(ctx context.Context, sum Summary) error {
	msg := buildWebhookMessage(Format(sum), s.Channel)
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := slackapi.PostWebhookCustomHTTPContext(ctx, s.WebhookURL, s.HTTPClient, msg)
		if err == nil {
			return nil
		}
		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) || attempt == maxRetries {
			return fmt.Errorf("notify: slack: %w", err)
		}
		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * s.BaseBackoff
		}
		if err := backoff(ctx, wait); err != nil {
			return err
		}
	}
	return nil
}

func buildWebhookMessage(m Message, channel string) *slackapi.WebhookMessage {
	att := slackapi.Attachment{
		Title:    m.Title,
		Text:     m.Body,
		Color:    m.Color,
		Fallback: m.Title,
	}
	for _, f := range m.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}
	return &slackapi.WebhookMessage{
		Channel:     channel,
		Text:        m.Title,
		Attachments: []slackapi.Attachment{att},
	}
}
