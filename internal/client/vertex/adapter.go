package vertexclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aprendu/aprendu-backend/internal/dto"
	"github.com/aprendu/aprendu-backend/internal/errs"
)

const serviceName = "vertex"

const DefaultModel = "gemini-2.5-flash"

type Adapter struct {
	client *genai.Client
	model  string
	log    *slog.Logger
}

func NewAdapter(ctx context.Context, log *slog.Logger, projectID, region, model string) (*Adapter, error) {
	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = DefaultModel
	}

	return &Adapter{
		client: client,
		model:  model,
		log:    log,
	}, nil
}

func (a *Adapter) Close() error {
	err := a.client.Close()
	if err != nil && a.log != nil {
		a.log.Error("vertex adapter close failed", "error", err)
	}
	return err
}

func (a *Adapter) Generate(ctx context.Context, req dto.LLMRequest) (dto.LLMResponse, error) {
	out := dto.LLMResponse{}

	cs, last, err := a.session(req)
	if err != nil {
		return out, err
	}

	resp, err := cs.SendMessage(ctx, last)
	if err != nil {
		return out, toServiceError(err)
	}

	out.Raw = resp
	out.Text = parseContentResponse(resp)
	return out, nil
}

// Stream sends text chunks to onDelta as they arrive and returns the
// concatenated reply.
func (a *Adapter) Stream(ctx context.Context, req dto.LLMRequest, onDelta func(string) error) (dto.LLMResponse, error) {
	out := dto.LLMResponse{}

	cs, last, err := a.session(req)
	if err != nil {
		return out, err
	}

	var text strings.Builder
	iter := cs.SendMessageStream(ctx, last)
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return out, toServiceError(err)
		}
		chunk := parseContentResponse(resp)
		if chunk == "" {
			continue
		}
		text.WriteString(chunk)
		if onDelta != nil {
			if err := onDelta(chunk); err != nil {
				return out, err
			}
		}
	}

	out.Text = text.String()
	return out, nil
}

// session prepares a chat whose history holds every message but the last,
// which is returned separately for sending.
func (a *Adapter) session(req dto.LLMRequest) (*genai.ChatSession, genai.Part, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = a.model
	}
	if modelName == "" {
		return nil, nil, fmt.Errorf("vertex model is required")
	}
	if len(req.Messages) == 0 {
		return nil, nil, fmt.Errorf("vertex generate request has no content")
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != dto.LLMRoleUser {
		return nil, nil, fmt.Errorf("vertex request must end with a user message")
	}

	model := a.client.GenerativeModel(modelName)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	if req.Temperature != nil {
		model.SetTemperature(*req.Temperature)
	}
	if req.MaxOutputTokens != nil {
		model.SetMaxOutputTokens(*req.MaxOutputTokens)
	}

	cs := model.StartChat()
	cs.History = toContents(req.Messages[:len(req.Messages)-1])
	return cs, genai.Text(last.Content), nil
}

func toContents(msgs []dto.LLMMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Content == "" {
			continue
		}
		role := "user"
		if msg.Role == dto.LLMRoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return contents
}

func parseContentResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	var text strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if p, ok := part.(genai.Text); ok {
				text.WriteString(string(p))
			}
		}
	}
	return text.String()
}

func toServiceError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	transient := errors.Is(err, context.DeadlineExceeded)
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted:
		transient = true
	}
	return errs.NewExternalServiceError(serviceName, "vertex request failed", transient, err)
}
