// Package events publishes search notifications to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"viral-search-service/internal/domain"
)

// Config holds NATS settings.
type Config struct {
	URL     string
	Subject string
	Name    string
}

// publisher is the part of *nats.Conn used here.
type publisher interface {
	Publish(subject string, data []byte) error
}

// message is the envelope put on the wire.
type message struct {
	domain.SearchEvent
	Source  string `json:"source"`
	Version string `json:"version"`
}

// NATSPublisher implements domain.EventPublisher.
type NATSPublisher struct {
	conn    *nats.Conn
	pub     publisher
	subject string
	logger  *zap.Logger
}

var _ domain.EventPublisher = (*NATSPublisher)(nil)

// NewNATSPublisher connects to NATS with unlimited reconnects.
func NewNATSPublisher(cfg Config, logger *zap.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to nats", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats connection lost", zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	logger.Info("connected to nats",
		zap.String("url", nc.ConnectedUrl()),
		zap.String("subject", cfg.Subject),
	)

	return &NATSPublisher{
		conn:    nc,
		pub:     nc,
		subject: cfg.Subject,
		logger:  logger,
	}, nil
}

// PublishSearch publishes one search.completed message.
func (p *NATSPublisher) PublishSearch(ctx context.Context, event domain.SearchEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(message{
		SearchEvent: event,
		Source:      "viral-search-service",
		Version:     "1.0",
	})
	if err != nil {
		return fmt.Errorf("encoding search event: %w", err)
	}

	if err := p.pub.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.subject, err)
	}

	p.logger.Debug("search event published",
		zap.String("subject", p.subject),
		zap.Int("result_count", event.ResultCount),
	)

	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}

	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("nats drain failed", zap.Error(err))
		p.conn.Close()
	}
}
