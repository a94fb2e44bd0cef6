package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Entities named in DataChangedMessage.
const (
	EntityTransaction = "transaction"
	EntityCategory    = "category"
	EntityGoal        = "goal"
)

// DataChangedMessage tells consumers that a user's data changed. It carries
// no payload; consumers re-read whatever they need.
type DataChangedMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Entity    string    `json:"entity"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDataChangedMessage(userID, entity string) *DataChangedMessage {
	return &DataChangedMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		Entity:    entity,
		Timestamp: time.Now().UTC(),
	}
}

func (m *DataChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DataChangedMessageFromJSON decodes and checks a message body.
func DataChangedMessageFromJSON(data []byte) (*DataChangedMessage, error) {
	var msg DataChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, errors.New("data changed message without user")
	}
	return &msg, nil
}

// BudgetAlert is published when a month's spending pace turns critical or a
// category overshoots its budget.
type BudgetAlert struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Year          int       `json:"year"`
	Month         int       `json:"month"`
	Pace          string    `json:"pace"`
	ConsumedPct   float64   `json:"consumedPct"`
	AlertCategory string    `json:"alertCategory,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func (a *BudgetAlert) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}

func BudgetAlertFromJSON(data []byte) (*BudgetAlert, error) {
	var a BudgetAlert
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
