package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/court/internal/trial"
)

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher sends run events to NATS under <subject>.<kind>.
type Publisher struct {
	conn    conn
	subject string
	logger  *logging.Logger
	runs    runTracker

	mu     sync.Mutex
	failed int
}

// Connect dials a NATS server and returns a publisher on subject.
func Connect(url, subject string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("court"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(10),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return NewPublisher(nc, subject), nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(c conn, subject string) *Publisher {
	return &Publisher{
		conn:    c,
		subject: subject,
		logger:  logging.New().WithComponent("events"),
	}
}

// Subject returns the subject an event kind is published on.
func (p *Publisher) Subject(kind trial.EventKind) string {
	return p.subject + "." + string(kind)
}

// Observe publishes e. Failures are logged and never stop the run.
func (p *Publisher) Observe(e trial.Event) {
	data, err := json.Marshal(NewMessage(p.runs.stamp(e), e))
	if err == nil {
		err = p.conn.Publish(p.Subject(e.Kind), data)
	}
	if err == nil {
		return
	}

	p.mu.Lock()
	p.failed++
	first := p.failed == 1
	p.mu.Unlock()
	// One warning per run is enough; a down server fails every event.
	if first {
		p.logger.Warn("event publish failed", map[string]interface{}{
			"subject": p.Subject(e.Kind),
			"error":   err.Error(),
		})
	}
}

// Failed reports how many events could not be published.
func (p *Publisher) Failed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
