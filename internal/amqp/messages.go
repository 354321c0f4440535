package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finanzas/internal/core"
)

// TransactionDueMessage announces one occurrence that fired on a day. The
// key identifies the occurrence, so consumers can drop redeliveries.
type TransactionDueMessage struct {
	Key            string              `json:"key"`
	RecordID       string              `json:"record_id"`
	Kind           core.RecordKind     `json:"kind"`
	Name           string              `json:"name"`
	Group          string              `json:"group,omitempty"`
	Item           int                 `json:"item,omitempty"`
	Category       string              `json:"category"`
	Date           string              `json:"date"`
	AmountCents    int64               `json:"amount_cents"`
	OccurrenceType core.OccurrenceType `json:"occurrence_type,omitempty"`
	Timestamp      time.Time           `json:"timestamp"`
}

// NewTransactionDueMessage wraps an expanded transaction.
func NewTransactionDueMessage(tx core.Transaction) *TransactionDueMessage {
	return &TransactionDueMessage{
		Key:            OccurrenceKey(tx),
		RecordID:       tx.RecordID,
		Kind:           tx.Kind,
		Name:           tx.Name,
		Group:          tx.Group,
		Item:           tx.Item,
		Category:       tx.Category,
		Date:           tx.Date.String(),
		AmountCents:    tx.Amount.Cents,
		OccurrenceType: tx.OccurrenceType,
		Timestamp:      time.Now(),
	}
}

// OccurrenceKey is record id, name and day. Group items share the record
// id, so their position in the group is appended to the name.
func OccurrenceKey(tx core.Transaction) string {
	if tx.Item > 0 {
		return fmt.Sprintf("%s/%s#%d/%s", tx.RecordID, tx.Name, tx.Item, tx.Date.String())
	}
	return fmt.Sprintf("%s/%s/%s", tx.RecordID, tx.Name, tx.Date.String())
}

// Transaction converts the message back into an expanded row.
func (m *TransactionDueMessage) Transaction() (core.Transaction, error) {
	d, err := core.ParseDate(m.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("message %s: bad date: %w", m.Key, err)
	}
	occurrence := m.OccurrenceType
	if occurrence == "" {
		occurrence = core.Recurring
	}
	return core.Transaction{
		Date:           d,
		RecordID:       m.RecordID,
		Kind:           m.Kind,
		Name:           m.Name,
		Group:          m.Group,
		Item:           m.Item,
		Category:       m.Category,
		Amount:         core.Money{Cents: m.AmountCents},
		OccurrenceType: occurrence,
	}, nil
}

// Validate rejects messages no handler could act on.
func (m *TransactionDueMessage) Validate() error {
	if m.RecordID == "" {
		return errors.New("missing record id")
	}
	if !m.Kind.IsValid() {
		return fmt.Errorf("invalid kind %q", m.Kind)
	}
	if _, err := core.ParseDate(m.Date); err != nil {
		return fmt.Errorf("invalid date %q", m.Date)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *TransactionDueMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionDueMessageFromJSON decodes and validates a message body.
func TransactionDueMessageFromJSON(data []byte) (*TransactionDueMessage, error) {
	var msg TransactionDueMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
