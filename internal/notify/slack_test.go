package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPoster struct {
	channel string
	calls   int
	err     error
}

func (m *mockPoster) PostMessageContext(_ context.Context, channelID string, _ ...slack.MsgOption) (string, string, error) {
	m.calls++
	m.channel = channelID
	return channelID, "1234.5678", m.err
}

func TestNewSlack(t *testing.T) {
	assert.Nil(t, NewSlack("", "", ""))
	assert.NotNil(t, NewSlack("https://hooks.slack.com/services/x", "", "").Client)
	assert.NotNil(t, NewSlack("", "xoxb-token", "#bench").Poster)
}

func TestSlack_Webhook(t *testing.T) {
	var got slack.WebhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := &Slack{WebhookURL: srv.URL, Client: srv.Client()}
	require.NoError(t, s.Notify(context.Background(), "mnist/predict: 2.00 ms"))
	assert.Equal(t, "mnist/predict: 2.00 ms", got.Text)
}

func TestSlack_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := &Slack{WebhookURL: srv.URL, Client: srv.Client()}
	assert.Error(t, s.Notify(context.Background(), "x"))
	assert.Error(t, (&Slack{}).Notify(context.Background(), "x"))
}

func TestSlack_Poster(t *testing.T) {
	p := &mockPoster{}
	s := &Slack{Poster: p, Channel: "#bench"}
	require.NoError(t, s.Notify(context.Background(), "done"))
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, "#bench", p.channel)

	p.err = errors.New("channel_not_found")
	assert.Error(t, s.Notify(context.Background(), "done"))

	assert.Error(t, (&Slack{Poster: p}).Notify(context.Background(), "done"))
}
