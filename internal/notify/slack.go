// Package notify posts run summaries to Slack.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/slack-go/slack"
)

// Notifier delivers a text message.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Poster is the subset of *slack.Client used for bot-token delivery.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Slack sends messages through an incoming webhook or, when a bot token
// client is set, through chat.postMessage.
type Slack struct {
	WebhookURL string
	Client     *http.Client

	Poster  Poster
	Channel string
}

// NewSlack returns a notifier for the given webhook URL, bot token and
// channel. It returns nil when neither a webhook nor a token is configured.
func NewSlack(webhookURL, token, channel string) *Slack {
	switch {
	case token != "":
		return &Slack{Poster: slack.New(token), Channel: channel}
	case webhookURL != "":
		return &Slack{WebhookURL: webhookURL, Client: &http.Client{Timeout: 10 * time.Second}}
	default:
		return nil
	}
}

// Notify implements Notifier.
func (s *Slack) Notify(ctx context.Context, message string) error {
	if s.Poster != nil {
		if s.Channel == "" {
			return errors.New("slack channel is not configured")
		}
		if _, _, err := s.Poster.PostMessageContext(ctx, s.Channel, slack.MsgOptionText(message, false)); err != nil {
			return fmt.Errorf("failed to post slack message: %w", err)
		}
		return nil
	}

	if s.WebhookURL == "" {
		return errors.New("slack webhook URL is not configured")
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	msg := &slack.WebhookMessage{Text: message}
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.WebhookURL, client, msg); err != nil {
		return fmt.Errorf("failed to send slack notification: %w", err)
	}
	return nil
}
