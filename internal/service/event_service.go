package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Domain event names published on the NATS bus.
const (
	EventExamSubmitted   = "exam.submitted"
	EventResultGraded    = "exam.result.graded"
	EventRetakeRequested = "retake.requested"
	EventRetakeDecided   = "retake.decided"
	EventLessonCompleted = "lesson.completed"
)

// EventPublisher emits domain events for downstream consumers (dashboards,
// notification workers). Publishing is best-effort and never fails the
// calling workflow.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload interface{})
}

type eventPublisher struct {
	conn        *nats.Conn
	subjectBase string
	nodeID      string
	logger      zerolog.Logger
	now         func() time.Time
}

type eventEnvelope struct {
	Event  string      `json:"event"`
	NodeID string      `json:"node_id"`
	SentAt time.Time   `json:"sent_at"`
	Data   interface{} `json:"data"`
}

// NewEventPublisher constructs a NATS-backed publisher. A nil connection
// yields a publisher that drops every event.
func NewEventPublisher(conn *nats.Conn, subjectBase string, logger zerolog.Logger) EventPublisher {
	base := strings.Trim(strings.ReplaceAll(subjectBase, ":", "."), ".")
	if base == "" {
		base = "manhaj"
	}

	return &eventPublisher{
		conn:        conn,
		subjectBase: base,
		nodeID:      uuid.NewString(),
		logger:      logger.With().Str("component", "event_publisher").Logger(),
		now:         time.Now,
	}
}

func (p *eventPublisher) Publish(_ context.Context, event string, payload interface{}) {
	if p.conn == nil {
		return
	}

	envelope := eventEnvelope{
		Event:  event,
		NodeID: p.nodeID,
		SentAt: p.now().UTC(),
		Data:   payload,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		p.logger.Warn().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}

	subject := p.subjectBase + "." + event
	if err := p.conn.Publish(subject, body); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}
