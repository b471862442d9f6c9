package amqp

import (
	"encoding/json"
	"time"
)

// Event names carried by ExpenseEventMessage.
const (
	EventExpenseAdded   = "expense.added"
	EventExpenseRemoved = "expense.removed"
)

// ExpenseEventMessage announces a change to the expense table. It carries
// only the id; consumers read the record from the database if they need it.
type ExpenseEventMessage struct {
	Event         string    `json:"event"`
	TransactionID int64     `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewExpenseEventMessage creates an event message stamped with the current time.
func NewExpenseEventMessage(event string, transactionID int64) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		Event:         event,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventMessageFromJSON creates a message from JSON bytes
func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
