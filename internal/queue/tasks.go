// Package queue moves notification email delivery onto asynq workers and
// provides a redis lock so periodic jobs run on a single replica.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TaskDeliverNotification delivers one pending notification
const TaskDeliverNotification = "notification:deliver"

type DeliverPayload struct {
	NotificationID string `json:"notification_id"`
}

func NewDeliverTask(id uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(DeliverPayload{NotificationID: id.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDeliverNotification, data), nil
}

// ParseDeliverPayload returns the notification id carried by a delivery task
func ParseDeliverPayload(task *asynq.Task) (uuid.UUID, error) {
	var payload DeliverPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.Nil, fmt.Errorf("invalid delivery payload: %w", err)
	}
	id, err := uuid.Parse(payload.NotificationID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid notification id %q: %w", payload.NotificationID, err)
	}
	return id, nil
}
