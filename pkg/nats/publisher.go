// Package nats publishes calendar change notifications. The publisher is
// optional: mutations proceed normally when no NATS URL is configured,
// and a failed publish is logged rather than failing the operation.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"caldav-mcp/internal/models"
)

// Change actions published after successful mutations.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Change is the JSON record published for every successful mutation
type Change struct {
	Action        string    `json:"action"`
	UID           string    `json:"uid"`
	Title         string    `json:"title,omitempty"`
	CalendarIndex int       `json:"calendar_index"`
	At            time.Time `json:"at"`
}

// Publisher handles publishing calendar change notifications to NATS
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// Config holds NATS publisher configuration
type Config struct {
	URL            string        `yaml:"url"`
	Subject        string        `yaml:"subject"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReconnectWait  time.Duration `yaml:"reconnect_wait"`
	MaxReconnects  int           `yaml:"max_reconnects"`
}

// DefaultConfig returns a default NATS configuration
func DefaultConfig() *Config {
	return &Config{
		URL:            "nats://localhost:4222",
		Subject:        "calendar.changes",
		ConnectTimeout: 5 * time.Second,
		ReconnectWait:  2 * time.Second,
		MaxReconnects:  10,
	}
}

// NewPublisher creates a new NATS publisher with the given configuration
func NewPublisher(config *Config, logger *slog.Logger) (*Publisher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.Subject == "" {
		config.Subject = DefaultConfig().Subject
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConfig().ConnectTimeout
	}
	if config.ReconnectWait == 0 {
		config.ReconnectWait = DefaultConfig().ReconnectWait
	}
	if config.MaxReconnects == 0 {
		config.MaxReconnects = DefaultConfig().MaxReconnects
	}

	options := []nats.Option{
		nats.Timeout(config.ConnectTimeout),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(config.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %v", config.URL, err)
	}

	publisher := &Publisher{
		conn:    conn,
		subject: config.Subject,
		logger:  logger,
	}

	logger.Info("NATS publisher initialized",
		"url", config.URL,
		"subject", config.Subject,
		"connected_url", conn.ConnectedUrl())

	return publisher, nil
}

// PublishChange publishes a single change record. A nil publisher is a
// no-op, so callers never need to branch on whether NATS is configured.
func (p *Publisher) PublishChange(ctx context.Context, change *Change) error {
	if p == nil {
		return nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("NATS connection is not available")
	}

	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %v", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if err := p.conn.Publish(p.subject, data); err != nil {
			return fmt.Errorf("failed to publish change: %v", err)
		}
	}

	p.logger.Debug("Published change",
		"subject", p.subject,
		"action", change.Action,
		"uid", change.UID)

	return nil
}

// EventChange builds a change record for an event mutation
func EventChange(action string, event *models.Event, at time.Time) *Change {
	return &Change{
		Action:        action,
		UID:           event.UID,
		Title:         event.Title,
		CalendarIndex: event.CalendarIndex,
		At:            at.UTC(),
	}
}

// IsHealthy checks if the NATS connection is healthy
func (p *Publisher) IsHealthy() error {
	if p == nil || p.conn == nil {
		return fmt.Errorf("NATS connection is nil")
	}
	if p.conn.IsClosed() {
		return fmt.Errorf("NATS connection is closed")
	}
	if !p.conn.IsConnected() {
		return fmt.Errorf("NATS is not connected")
	}
	return nil
}

// Close gracefully closes the NATS connection
func (p *Publisher) Close() error {
	if p == nil || p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	if err := p.conn.FlushTimeout(5 * time.Second); err != nil {
		p.logger.Warn("Failed to flush messages on close", "error", err)
	}
	p.conn.Close()
	p.logger.Info("NATS publisher closed")
	return nil
}
