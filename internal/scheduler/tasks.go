package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskRescoreLead = "leadscore.rescore"

type RescoreLeadPayload struct {
	LeadID string `json:"leadId"`
}

func NewRescoreLeadTask(leadID uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(RescoreLeadPayload{LeadID: leadID.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRescoreLead, data), nil
}

// ParseRescoreLeadPayload decodes the task payload. Malformed payloads can
// never succeed and are marked to skip retries.
func ParseRescoreLeadPayload(task *asynq.Task) (uuid.UUID, error) {
	var payload RescoreLeadPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.Nil, fmt.Errorf("decode rescore payload: %v: %w", err, asynq.SkipRetry)
	}
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse lead id %q: %v: %w", payload.LeadID, err, asynq.SkipRetry)
	}
	return leadID, nil
}
