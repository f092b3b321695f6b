package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	discordColorPassed = 0x2EB67D
	discordColorFailed = 0xE01E5A
	discordEmbedLimit  = 4096
)

// Discord executes a channel webhook with one embed per report.
type Discord struct {
	session *discordgo.Session
	id      string
	token   string
}

func NewDiscord(webhookURL string, client *http.Client) (*Discord, error) {
	id, token, err := ParseDiscordWebhook(webhookURL)
	if err != nil {
		return nil, err
	}

	s, err := discordgo.New("")
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	s.Client = client
	s.MaxRestRetries = 0

	return &Discord{session: s, id: id, token: token}, nil
}

// ParseDiscordWebhook extracts the id and token from
// https://discord.com/api/webhooks/<id>/<token>.
func ParseDiscordWebhook(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid discord webhook url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("invalid discord webhook url: %q has no webhook id and token", raw)
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Notify(ctx context.Context, r Report) error {
	color := discordColorFailed
	if r.Result.Passed() {
		color = discordColorPassed
	}

	params := &discordgo.WebhookParams{
		Username: "travelcheck",
		Embeds: []*discordgo.MessageEmbed{{
			Title:       r.Title(),
			Description: clip(r.Body(), discordEmbedLimit),
			Color:       color,
			Timestamp:   r.SentAt.Format(time.RFC3339),
		}},
	}

	_, err := d.session.WebhookExecute(d.id, d.token, false, params, discordgo.WithContext(ctx))
	return err
}
