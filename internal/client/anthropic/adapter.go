package anthropicclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/aprendu/aprendu-backend/internal/dto"
	"github.com/aprendu/aprendu-backend/internal/errs"
	"github.com/aprendu/aprendu-backend/pkg/helpers"
)

const (
	serviceName      = "anthropic"
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 4096
)

type Adapter struct {
	client anthropic.Client
	model  string
	log    *slog.Logger
}

func NewAdapter(log *slog.Logger, apiKey, model string, opts ...option.RequestOption) *Adapter {
	if model == "" {
		model = defaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(strings.TrimSpace(apiKey))}, opts...)
	return &Adapter{
		client: anthropic.NewClient(opts...),
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

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return out, toServiceError(err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	out.Text = text.String()
	out.Raw = resp
	return out, nil
}

func (a *Adapter) Stream(ctx context.Context, req dto.LLMRequest, onDelta func(string) error) (dto.LLMResponse, error) {
	out := dto.LLMResponse{}

	params, err := a.params(req)
	if err != nil {
		return out, err
	}

	stream := a.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var text strings.Builder
	for stream.Next() {
		event := stream.Current()
		variant, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		delta, ok := variant.Delta.AsAny().(anthropic.TextDelta)
		if !ok || delta.Text == "" {
			continue
		}
		text.WriteString(delta.Text)
		if onDelta != nil {
			if err := onDelta(delta.Text); err != nil {
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

func (a *Adapter) params(req dto.LLMRequest) (anthropic.MessageNewParams, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}

	msgs := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case dto.LLMRoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	if len(msgs) == 0 {
		return anthropic.MessageNewParams{}, fmt.Errorf("anthropic request has no content")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(helpers.ValueOr(req.MaxOutputTokens, defaultMaxTokens)),
		Messages:  msgs,
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(float64(*req.Temperature))
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	return params, nil
}

func toServiceError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	transient := errors.Is(err, context.DeadlineExceeded)
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		transient = apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return errs.NewExternalServiceError(serviceName, "anthropic request failed", transient, err)
}
