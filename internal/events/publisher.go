// Package events publishes committed cart mutations.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dukerupert/freyja-cart/internal/domain"
	"github.com/dukerupert/freyja-cart/internal/service"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// DefaultSubjectPrefix is used when a NATSPublisher is created without one.
const DefaultSubjectPrefix = "cart"

// msgPublisher is the part of *nats.Conn the publisher needs.
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSPublisher publishes each cart event as JSON on
// <prefix>.<event type>, e.g. "cart.item_added". The Nats-Msg-Id header
// is unique per committed cart version so JetStream can drop duplicates.
type NATSPublisher struct {
	conn   msgPublisher
	prefix string
}

// Compile-time check that NATSPublisher implements service.EventPublisher.
var _ service.EventPublisher = (*NATSPublisher)(nil)

// NewNATSPublisher creates a publisher on an open connection.
func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	return newNATSPublisher(conn, prefix)
}

func newNATSPublisher(conn msgPublisher, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Publish implements service.EventPublisher.
func (p *NATSPublisher) Publish(ctx context.Context, event domain.CartEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode cart event: %w", err)
	}

	msg := nats.NewMsg(p.Subject(event.Type))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, event.CartKey+":"+strconv.FormatInt(event.Version, 10))
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(t domain.CartEventType) string {
	return p.prefix + "." + string(t)
}

// Connect opens a NATS connection that reconnects indefinitely and logs
// connection state changes.
func Connect(url string, logger zerolog.Logger) (*nats.Conn, error) {
	logger = logger.With().Str("component", "nats").Logger()

	conn, err := nats.Connect(url,
		nats.Name("freyja-cart"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// Noop discards events. It is used when no broker is configured.
type Noop struct{}

// Publish implements service.EventPublisher.
func (Noop) Publish(ctx context.Context, event domain.CartEvent) error {
	return nil
}
