package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/hashicorp/go-retryablehttp"

	"pricewatch/pkg/catalog"
)

// Notifier delivers ranked drops to a Slack incoming webhook. A Notifier
// with an empty URL silently delivers nothing, so callers never need to
// special-case an unconfigured endpoint.
type Notifier struct {
	WebhookURL string
	TopN       int // drops included per message; 0 means 10

	client *retryablehttp.Client
}

func NewNotifier(webhookURL string, topN int) *Notifier {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil
	return &Notifier{WebhookURL: webhookURL, TopN: topN, client: client}
}

type block struct {
	Type     string `json:"type"`
	Text     *text  `json:"text,omitempty"`
	Elements []text `json:"elements,omitempty"`
}

type text struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// Notify posts the ranked drops. It is a no-op when there is nothing to say
// or nowhere to say it. Delivery failures are returned for logging but must
// not fail the run; the catalog was already persisted before delivery.
func (n *Notifier) Notify(drops []catalog.Change, thresholdPct float64) error {
	if n == nil || n.WebhookURL == "" || len(drops) == 0 {
		return nil
	}
	topN := n.TopN
	if topN <= 0 {
		topN = 10
	}

	blocks := []block{
		{Type: "header", Text: &text{
			Type:  "plain_text",
			Text:  fmt.Sprintf("📉 Major Price Drops Detected (≥ %.1f%%)", thresholdPct),
			Emoji: true,
		}},
		{Type: "divider"},
	}

	shown := drops
	if len(shown) > topN {
		shown = shown[:topN]
	}
	for _, d := range shown {
		old := 0.0
		if d.OldPrice != nil {
			old = *d.OldPrice
		}
		name := d.Name
		if d.URL != "" {
			name = fmt.Sprintf("<%s|%s>", d.URL, d.Name)
		}
		blocks = append(blocks,
			block{Type: "section", Text: &text{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*%s*\nCategory: %s\n*₹%.2f* → *₹%.2f* (%+.1f%%)", name, d.Category, old, d.NewPrice, d.Pct),
			}},
			block{Type: "divider"},
		)
	}
	if len(drops) > topN {
		blocks = append(blocks, block{Type: "context", Elements: []text{
			{Type: "mrkdwn", Text: fmt.Sprintf("...and %d more products.", len(drops)-topN)},
		}})
	}

	payload, err := json.Marshal(map[string]interface{}{"blocks": blocks})
	if err != nil {
		return err
	}

	resp, err := n.client.Post(n.WebhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		body, _ := ioutil.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
