package amqp

import (
	"context"
	"errors"
	"testing"
	"time"

	"paycalc/internal/tracker"
)

func TestNewStateChangeMessage(t *testing.T) {
	at := time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)
	msg := NewStateChangeMessage(tracker.Event{
		Kind:     tracker.EventPaidStatusChanged,
		UserUID:  "u1",
		PeriodID: "2024-01-15",
		EntityID: "pe1",
		At:       at,
	})

	if msg.ID == "" {
		t.Error("message id should be set")
	}
	if msg.Kind != "paid_status_changed" || msg.UserUID != "u1" || msg.PeriodID != "2024-01-15" || msg.EntityID != "pe1" {
		t.Errorf("unexpected message %+v", msg)
	}
	if !msg.Timestamp.Equal(at) {
		t.Errorf("Timestamp = %v, want %v", msg.Timestamp, at)
	}

	if NewStateChangeMessage(tracker.Event{Kind: tracker.EventReloaded}).Timestamp.IsZero() {
		t.Error("missing event time should default to now")
	}
}

func TestStateChangeMessage_JSON(t *testing.T) {
	msg := NewStateChangeMessage(tracker.Event{Kind: tracker.EventExpenseCreated, EntityID: "e1"})
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := StateChangeMessageFromJSON(body)
	if err != nil {
		t.Fatalf("StateChangeMessageFromJSON() error = %v", err)
	}
	if parsed.ID != msg.ID || parsed.Kind != msg.Kind || parsed.EntityID != "e1" {
		t.Errorf("parsed %+v, want %+v", parsed, msg)
	}

	if _, err := StateChangeMessageFromJSON([]byte(`{"kind": 7}`)); err == nil {
		t.Error("expected error for wrong field type")
	}
	if err := (&StateChangeMessage{}).Validate(); err == nil {
		t.Error("expected error for message without kind")
	}
}

type fakeBroker struct {
	sent []*StateChangeMessage
	err  error
}

func (f *fakeBroker) PublishStateChange(_ context.Context, msg *StateChangeMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestPublisher_Notify(t *testing.T) {
	broker := &fakeBroker{}
	p := NewPublisher(broker, nil)

	p.Notify(context.Background(), tracker.Event{Kind: tracker.EventBankAccountCreated, EntityID: "a1"})
	p.Notify(context.Background(), tracker.Event{Kind: tracker.EventSelectionChanged})

	if len(broker.sent) != 1 {
		t.Fatalf("sent %d messages, want 1 (selection changes stay local)", len(broker.sent))
	}
	if broker.sent[0].Kind != "bank_account_created" {
		t.Errorf("Kind = %q", broker.sent[0].Kind)
	}

	broker.err = errors.New("circuit breaker is open")
	p.Notify(context.Background(), tracker.Event{Kind: tracker.EventExpenseDeleted})
}
