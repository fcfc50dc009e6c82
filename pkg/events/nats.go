// Package events publishes account lifecycle events to NATS
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"

	"github.com/memtensor/accounts/pkg/interfaces"
	"github.com/memtensor/accounts/pkg/logger"
)

// NATSConfig holds NATS connection configuration
type NATSConfig struct {
	URLs           []string      `json:"urls" yaml:"urls"`
	SubjectPrefix  string        `json:"subject_prefix" yaml:"subject_prefix"`
	Name           string        `json:"name" yaml:"name"`
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
	MaxReconnect   int           `json:"max_reconnect" yaml:"max_reconnect"`
	ReconnectWait  time.Duration `json:"reconnect_wait" yaml:"reconnect_wait"`
}

// DefaultNATSConfig returns default NATS configuration
func DefaultNATSConfig() *NATSConfig {
	return &NATSConfig{
		URLs:           []string{nats.DefaultURL},
		SubjectPrefix:  "accounts",
		Name:           "accounts",
		ConnectTimeout: 5 * time.Second,
		MaxReconnect:   -1,
		ReconnectWait:  2 * time.Second,
	}
}

// conn is the part of *nats.Conn the publisher needs
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes JSON-encoded events on <prefix>.<event>
type NATSPublisher struct {
	mu     sync.RWMutex
	conn   conn
	prefix string
	logger interfaces.Logger
}

var _ interfaces.EventPublisher = (*NATSPublisher)(nil)

// ConnectNATS dials NATS, retrying with exponential backoff until
// ConnectTimeout has elapsed or ctx is done
func ConnectNATS(ctx context.Context, config *NATSConfig, log interfaces.Logger) (*NATSPublisher, error) {
	if config == nil {
		config = DefaultNATSConfig()
	}
	if log == nil {
		log = logger.NewTestLogger()
	}

	opts := []nats.Option{
		nats.Name(config.Name),
		nats.MaxReconnects(config.MaxReconnect),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", map[string]interface{}{"error": err.Error()})
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", map[string]interface{}{"url": nc.ConnectedUrl()})
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = time.Second
	policy.MaxElapsedTime = config.ConnectTimeout

	url := strings.Join(config.URLs, ",")
	var nc *nats.Conn
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		c, err := nats.Connect(url, opts...)
		if err != nil {
			log.Debug("NATS connect attempt failed", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			return err
		}
		nc = c
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS after %d attempts: %w", attempt, err)
	}

	log.Info("Connected to NATS", map[string]interface{}{"url": nc.ConnectedUrl()})
	return newNATSPublisher(nc, config.SubjectPrefix, log), nil
}

func newNATSPublisher(c conn, prefix string, log interfaces.Logger) *NATSPublisher {
	if log == nil {
		log = logger.NewTestLogger()
	}
	return &NATSPublisher{conn: c, prefix: prefix, logger: log}
}

// Subject returns the subject an event is published on
func (p *NATSPublisher) Subject(event string) string {
	if p.prefix == "" {
		return event
	}
	return p.prefix + "." + event
}

// Publish encodes payload as JSON and publishes it
func (p *NATSPublisher) Publish(ctx context.Context, event string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.RLock()
	c := p.conn
	p.mu.RUnlock()
	if c == nil {
		return fmt.Errorf("publisher is closed")
	}

	subject := p.Subject(event)
	if err := c.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	p.logger.Debug("Event published", map[string]interface{}{"subject": subject, "bytes": len(data)})
	return nil
}

// Close drains pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	p.mu.Lock()
	c := p.conn
	p.conn = nil
	p.mu.Unlock()

	if c == nil {
		return nil
	}
	return c.Drain()
}

// NoOpPublisher discards every event
type NoOpPublisher struct{}

var _ interfaces.EventPublisher = NoOpPublisher{}

// NewNoOpPublisher creates a publisher that discards every event
func NewNoOpPublisher() NoOpPublisher {
	return NoOpPublisher{}
}

// Publish does nothing
func (NoOpPublisher) Publish(ctx context.Context, event string, payload interface{}) error {
	return nil
}

// Close does nothing
func (NoOpPublisher) Close() error {
	return nil
}
