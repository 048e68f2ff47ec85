package dto

// Conversation roles understood by every LLM adapter.
const (
	LLMRoleUser      = "user"
	LLMRoleAssistant = "assistant"
)

type LLMMessage struct {
	Role    string
	Content string
}

type LLMRequest struct {
	Model           string
	System          string
	Messages        []LLMMessage
	Temperature     *float32
	MaxOutputTokens *int32
}

type LLMResponse struct {
	Text string
	Raw  any
}
