// Package provider defines the channel-agnostic sending surface the
// delivery pipeline dispatches against, and a Telnyx-backed implementation.
package provider

import (
	"context"
	"fmt"

	"github.com/wolfman30/cannasend/internal/provider/telnyx"
)

// SendRequest is a channel-agnostic outbound send.
type SendRequest struct {
	From               string
	MessagingProfileID string
	To                 string
	Body               string
}

// SendResult is what a provider returns once it has accepted a send.
type SendResult struct {
	ProviderMessageID string
	Status            string
	Segments          int
}

// Adapter is the interface the delivery pipeline dispatches against. It
// exists so the queue's sms worker never imports a specific provider
// package directly.
type Adapter interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// TelnyxAdapter implements Adapter over the Telnyx client.
type TelnyxAdapter struct {
	client *telnyx.Client
}

// NewTelnyxAdapter wraps a configured Telnyx client.
func NewTelnyxAdapter(client *telnyx.Client) *TelnyxAdapter {
	return &TelnyxAdapter{client: client}
}

// Send dispatches one SMS through Telnyx.
func (a *TelnyxAdapter) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	resp, err := a.client.SendMessage(ctx, telnyx.SendMessageRequest{
		From:               req.From,
		To:                 req.To,
		Body:               req.Body,
		MessagingProfileID: req.MessagingProfileID,
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("provider: send via telnyx: %w", err)
	}
	return SendResult{
		ProviderMessageID: resp.ID,
		Status:            resp.Status,
		Segments:          resp.Parts,
	}, nil
}
