// Package worker runs dashboard render passes triggered by Pub/Sub messages.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecowatch/ecowatch/internal/dashboard"
)

// Renderer runs one render pass. *dashboard.Service implements it.
type Renderer interface {
	Render(ctx context.Context, req dashboard.Request) *dashboard.View
}

// RenderMessage is the payload of a render trigger.
type RenderMessage struct {
	City  string `json:"city"`
	Email string `json:"email,omitempty"`
}

// Decision tells the subscriber what to do with a message.
type Decision int

const (
	// Ack removes the message from the subscription.
	Ack Decision = iota
	// Nack asks for redelivery.
	Nack
)

func (d Decision) String() string {
	if d == Nack {
		return "nack"
	}
	return "ack"
}

// Processor turns message payloads into render passes.
type Processor struct {
	renderer Renderer
	logger   zerolog.Logger
}

// NewProcessor creates a processor.
func NewProcessor(renderer Renderer, logger zerolog.Logger) *Processor {
	return &Processor{renderer: renderer, logger: logger}
}

// Handle processes one payload. Malformed payloads and invalid requests are
// acked so they are not redelivered; a message received during shutdown is
// nacked before any work is done. A render pass never fails, so every
// message that reaches the renderer is acked.
func (p *Processor) Handle(ctx context.Context, id string, data []byte) Decision {
	start := time.Now()
	logger := p.logger.With().Str("message_id", id).Logger()

	var msg RenderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Error().Err(err).Msg("dropping malformed render message")
		return Ack
	}

	if ctx.Err() != nil {
		logger.Warn().Msg("shutting down, message returned")
		return Nack
	}

	view := p.renderer.Render(ctx, dashboard.Request{City: msg.City, Email: msg.Email})

	event := logger.Info()
	if !view.OK() {
		event = logger.Warn().Str("error", view.Error)
	}
	event = event.
		Str("city", view.City).
		Bool("email_requested", msg.Email != "").
		Dur("duration", time.Since(start))
	if view.OK() && view.Panels.Notification != nil {
		event = event.Bool("email_sent", view.Panels.Notification.Sent)
	}
	event.Msg("render pass completed")

	return Ack
}
