package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/gatecontrol/visits/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	VisitCreated    = "visit.created"
	VisitUpdated    = "visit.updated"
	VisitCheckedIn  = "visit.checked_in"
	VisitCheckedOut = "visit.checked_out"
	GateScanned     = "gate.scanned"
)

// Event payloads
type VisitCreatedEvent struct {
	VisitID       string    `json:"visit_id"`
	VisitCode     string    `json:"visit_code"`
	VisitorName   string    `json:"visitor_name"`
	VisitorEmail  string    `json:"visitor_email"`
	ExecutiveID   string    `json:"executive_id"`
	VisitType     string    `json:"visit_type"`
	ScheduledDate time.Time `json:"scheduled_date"`
	CreatedAt     time.Time `json:"created_at"`
}

type VisitUpdatedEvent struct {
	VisitID        string    `json:"visit_id"`
	VisitCode      string    `json:"visit_code"`
	VisitStatus    string    `json:"visit_status"`
	ApprovalStatus string    `json:"approval_status"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type VisitCheckedInEvent struct {
	VisitID     string    `json:"visit_id"`
	VisitCode   string    `json:"visit_code"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

type VisitCheckedOutEvent struct {
	VisitID      string    `json:"visit_id"`
	VisitCode    string    `json:"visit_code"`
	CheckedOutAt time.Time `json:"checked_out_at"`
}

type GateScannedEvent struct {
	VisitCode string    `json:"visit_code"`
	Valid     bool      `json:"valid"`
	Reason    string    `json:"reason,omitempty"`
	ScannedAt time.Time `json:"scanned_at"`
}
