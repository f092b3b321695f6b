package notify

import (
	"context"
	"net/http"
	"time"

	"github.com/slack-go/slack"
)

// slackSectionLimit is the most text Slack accepts in a section block.
const slackSectionLimit = 3000

// Slack posts reports to an incoming webhook.
type Slack struct {
	webhookURL string
	client     *http.Client
}

func NewSlack(webhookURL string, client *http.Client) *Slack {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Slack{webhookURL: webhookURL, client: client}
}

func (s *Slack) Name() string { return "slack" }

// Message builds the webhook payload: a header, the markdown body and a
// timestamp context line.
func (s *Slack) Message(r Report) *slack.WebhookMessage {
	header := slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, r.Title(), true, false))
	body := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, clip(r.Body(), slackSectionLimit), false, false),
		nil, nil,
	)
	stamp := slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType, "*Timestamp:* "+r.SentAt.Format(SentAtLayout), false, false),
	)

	return &slack.WebhookMessage{
		Text: r.Summary(),
		Blocks: &slack.Blocks{
			BlockSet: []slack.Block{header, body, stamp},
		},
	}
}

// Notify fails on anything but HTTP 200.
func (s *Slack) Notify(ctx context.Context, r Report) error {
	return slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, s.Message(r))
}

func clip(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
