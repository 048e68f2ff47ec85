package dto

import "github.com/aprendu/aprendu-backend/internal/models"

// Reply actions the copilot model may request.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionClear  = "clear"
	ActionNone   = "none"
)

type AIQueryRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	Message   string `json:"message" validate:"required,max=4000"`
}

type AIQueryResponse struct {
	Answer     string            `json:"answer"`
	Action     string            `json:"action"`
	Dashboard  *models.Dashboard `json:"dashboard,omitempty"`
	Similarity *float64          `json:"similarity,omitempty"`
}

// AIReply is the structured answer the model is instructed to produce.
type AIReply struct {
	Action    string                  `json:"action"`
	Message   string                  `json:"message"`
	Dashboard *models.Dashboard       `json:"dashboard,omitempty"`
	Patches   []models.PatchOperation `json:"patches,omitempty"`
}
