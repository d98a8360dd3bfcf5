package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSPublisher pushes events to core NATS subjects of the form
// <prefix>.<session>.<event>. Publishing is fire-and-forget; no JetStream ack.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSPublisher connects to url and keeps reconnecting in the background.
func NewNATSPublisher(url, prefix string, logger zerolog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("helix-notify"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return &NATSPublisher{nc: nc, prefix: prefix}, nil
}

// Publish marshals the event and publishes it on the session subject.
func (p *NATSPublisher) Publish(ctx context.Context, ev ports.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", ev.Name, err)
	}
	if err := p.nc.Publish(Subject(p.prefix, ev.SessionID, ev.Name), data); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", ev.Name, err)
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}

// Subject builds the subject for one session event; reserved subject
// characters inside tokens are replaced with '_'.
func Subject(prefix, sessionID, event string) string {
	tokens := []string{prefix, sessionID, event}
	for i, tok := range tokens {
		if tok == "" {
			tok = "_"
		}
		tokens[i] = subjectReplacer.Replace(tok)
	}
	return strings.Join(tokens, ".")
}

var subjectReplacer = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_", "\t", "_")

// Ensure NATSPublisher implements the Publisher interface.
var _ ports.Publisher = (*NATSPublisher)(nil)
