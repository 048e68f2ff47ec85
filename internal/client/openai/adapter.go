package openaiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/aprendu/aprendu-backend/internal/dto"
	"github.com/aprendu/aprendu-backend/internal/errs"
)

const (
	serviceName  = "openai"
	defaultModel = "gpt-4o-mini"
)

type Adapter struct {
	client openai.Client
	model  string
	log    *slog.Logger
}

func NewAdapter(log *slog.Logger, apiKey, model string, opts ...option.RequestOption) *Adapter {
	if model == "" {
		model = defaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(strings.TrimSpace(apiKey))}, opts...)
	return &Adapter{
		client: openai.NewClient(opts...),
		model:  model,
		log:    log,
	}
}

func (a *Adapter) Generate(ctx context.Context, req dto.LLMRequest) (dto.LLMResponse, error) {
	out := dto.LLMResponse{}

	params, err := a.params(req)
	if err != nil {
		return out, err
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return out, toServiceError(err)
	}
	if len(resp.Choices) > 0 {
		out.Text = resp.Choices[0].Message.Content
	}
	out.Raw = resp
	return out, nil
}

func (a *Adapter) Stream(ctx context.Context, req dto.LLMRequest, onDelta func(string) error) (dto.LLMResponse, error) {
	out := dto.LLMResponse{}

	params, err := a.params(req)
	if err != nil {
		return out, err
	}

	stream := a.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var text strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		text.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return out, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return out, toServiceError(err)
	}

	out.Text = text.String()
	return out, nil
}

func (a *Adapter) params(req dto.LLMRequest) (openai.ChatCompletionNewParams, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	turns := 0
	for _, msg := range req.Messages {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case dto.LLMRoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(msg.Content))
		default:
			msgs = append(msgs, openai.UserMessage(msg.Content))
		}
		turns++
	}
	if turns == 0 {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("openai request has no content")
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: msgs,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(float64(*req.Temperature))
	}
	if req.MaxOutputTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*req.MaxOutputTokens))
	}
	return params, nil
}

func toServiceError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	transient := errors.Is(err, context.DeadlineExceeded)
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		transient = apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return errs.NewExternalServiceError(serviceName, "openai request failed", transient, err)
}
