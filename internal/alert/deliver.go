package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"mediation-reconciler/internal/httpclient"
)

// Slack's incoming-webhook contract is a single fixed URL that accepts one
// POST with a JSON body — there's no application/endpoint/event-type
// fan-out to manage, which is what internal/webhooks/svix_client.go's
// Svix SDK is built for. Reaching for it here would mean standing up a
// Svix application per deploy for a single static URL, so delivery stays
// on httpclient.Client directly instead.
type Delivery struct {
	client     *httpclient.Client
	webhookURL string
}

func NewDelivery(client *httpclient.Client, webhookURL string) *Delivery {
	return &Delivery{client: client, webhookURL: webhookURL}
}

// Send posts payload as the JSON body of a Slack incoming webhook request.
func (d *Delivery) Send(ctx context.Context, payload Payload) error {
	if d.webhookURL == "" {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("alert: marshal payload: %w", err)
	}
	_, err = d.client.Do(ctx, httpclient.Request{
		Method:  "POST",
		URL:     d.webhookURL,
		Headers: http.Header{"Content-Type": []string{"application/json"}},
		Body:    body,
	})
	return err
}
