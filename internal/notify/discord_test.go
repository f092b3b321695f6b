package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/travelcheck/internal/notify"
)

func TestParseDiscordWebhook(t *testing.T) {
	tests := map[string]struct {
		url      string
		expID    string
		expToken string
		expErr   bool
	}{
		"Canonical webhook URL.": {
			url:      "https://discord.com/api/webhooks/1234567890/abcDEF-_token",
			expID:    "1234567890",
			expToken: "abcDEF-_token",
		},
		"Versioned API path.": {
			url:      "https://discord.com/api/v10/webhooks/1/tok",
			expID:    "1",
			expToken: "tok",
		},
		"Missing token.": {
			url:    "https://discord.com/api/webhooks/1234567890",
			expErr: true,
		},
		"Not a webhook URL.": {
			url:    "https://discord.com/channels/1/2",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			id, token, err := notify.ParseDiscordWebhook(test.url)
			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expID, id)
			assert.Equal(t, test.expToken, token)
		})
	}
}

// redirect sends every request to the test server, whatever host it names.
type redirect struct{ target *url.URL }

func (rd redirect) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = rd.target.Scheme
	req.URL.Host = rd.target.Host
	req.Host = rd.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func TestDiscordNotify(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	var (
		path string
		got  struct {
			Username string `json:"username"`
			Embeds   []struct {
				Title       string `json:"title"`
				Description string `json:"description"`
				Color       int    `json:"color"`
			} `json:"embeds"`
		}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.NoError(json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	target, err := url.Parse(srv.URL)
	require.NoError(err)
	d, err := notify.NewDiscord("https://discord.com/api/webhooks/99/secret", &http.Client{Transport: redirect{target}})
	require.NoError(err)

	r := passedReport()
	require.NoError(d.Notify(context.Background(), r))

	assert.Contains(path, "/webhooks/99/secret")
	assert.Equal("travelcheck", got.Username)
	require.Len(got.Embeds, 1)
	assert.Equal("✅ Travel Insurance Test Alert", got.Embeds[0].Title)
	assert.Equal(r.Body(), got.Embeds[0].Description)
	assert.Equal(0x2EB67D, got.Embeds[0].Color)
}
