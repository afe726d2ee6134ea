package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Event is one dashboard usage event
type Event struct {
	Action    string    `json:"action"`
	CardID    string    `json:"cardId,omitempty"`
	CardType  string    `json:"cardType,omitempty"`
	CardCount int       `json:"cardCount"`
	Timestamp time.Time `json:"timestamp"`
}

// Client posts dashboard events to an optional analytics endpoint.
// Failures are swallowed unconditionally: analytics must never block or
// fail a primary operation.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates an analytics client. An empty endpoint disables sending.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether an endpoint is configured
func (c *Client) Enabled() bool {
	return c.endpoint != ""
}

// SendEvent posts one event. Always returns; errors are logged at debug
// level and discarded.
func (c *Client) SendEvent(ctx context.Context, ev Event) {
	if !c.Enabled() {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to marshal analytics event")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create analytics request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", c.endpoint).Msg("Failed to send analytics event (endpoint may not be available)")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Debug().
			Int("status", resp.StatusCode).
			Str("action", ev.Action).
			Msg("Analytics endpoint returned error status")
	}
}
