package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"paycalc/internal/log"
	"paycalc/internal/tracker"
)

// StateChangeMessage is the wire form of a tracker event. It carries ids
// only; consumers read the records they care about from the store.
type StateChangeMessage struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	UserUID   string    `json:"userUID,omitempty"`
	PeriodID  string    `json:"periodId,omitempty"`
	EntityID  string    `json:"entityId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewStateChangeMessage(ev tracker.Event) *StateChangeMessage {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &StateChangeMessage{
		ID:        uuid.NewString(),
		Kind:      string(ev.Kind),
		UserUID:   ev.UserUID,
		PeriodID:  ev.PeriodID,
		EntityID:  ev.EntityID,
		Timestamp: ts,
	}
}

func (m *StateChangeMessage) Validate() error {
	if m.Kind == "" {
		return errors.New("message has no kind")
	}
	return nil
}

func (m *StateChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func StateChangeMessageFromJSON(data []byte) (*StateChangeMessage, error) {
	var msg StateChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

type stateChangePublisher interface {
	PublishStateChange(ctx context.Context, msg *StateChangeMessage) error
}

// Publisher forwards tracker events to the broker. Publishing failures are
// logged and never reach the tracker.
type Publisher struct {
	client stateChangePublisher
	logger *log.Logger
}

var _ tracker.Observer = (*Publisher)(nil)

func NewPublisher(client stateChangePublisher, logger *log.Logger) *Publisher {
	return &Publisher{client: client, logger: log.OrDiscard(logger).WithComponent(log.ComponentAMQP)}
}

func (p *Publisher) Notify(ctx context.Context, ev tracker.Event) {
	if ev.Kind == tracker.EventSelectionChanged {
		return
	}
	if err := p.client.PublishStateChange(ctx, NewStateChangeMessage(ev)); err != nil {
		p.logger.WarnContext(ctx, "Failed to publish state change",
			log.FieldOperation, log.OpPublish,
			log.FieldEvent, string(ev.Kind),
			log.FieldError, err)
	}
}
