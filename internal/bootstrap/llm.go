package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"

	anthropicclient "github.com/aprendu/aprendu-backend/internal/client/anthropic"
	openaiclient "github.com/aprendu/aprendu-backend/internal/client/openai"
	vertexclient "github.com/aprendu/aprendu-backend/internal/client/vertex"
	"github.com/aprendu/aprendu-backend/internal/config"
	"github.com/aprendu/aprendu-backend/internal/dto"
	"github.com/aprendu/aprendu-backend/internal/store"
)

// LLMClient is the provider-neutral surface the copilot uses.
type LLMClient interface {
	Generate(ctx context.Context, req dto.LLMRequest) (dto.LLMResponse, error)
	Stream(ctx context.Context, req dto.LLMRequest, onDelta func(string) error) (dto.LLMResponse, error)
}

func InitLLM(ctx context.Context, log *slog.Logger, cfg *config.Config, onClose func(func() error)) (LLMClient, error) {
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		key, err := apiKey(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return anthropicclient.NewAdapter(log, key, cfg.LLMModel), nil
	case config.ProviderOpenAI:
		key, err := apiKey(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return openaiclient.NewAdapter(log, key, cfg.LLMModel), nil
	default:
		adapter, err := vertexclient.NewAdapter(ctx, log, cfg.ProjectID, cfg.Region, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		onClose(adapter.Close)
		return adapter, nil
	}
}

// apiKey prefers LLMAPIKEY and falls back to Secret Manager.
func apiKey(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.LLMAPIKey != "" {
		return cfg.LLMAPIKey, nil
	}
	if cfg.LLMAPIKeySecret == "" {
		return "", fmt.Errorf("%s provider needs LLMAPIKEY or LLMAPIKEYSECRET", cfg.LLMProvider)
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	return store.NewSecretsStore(client, cfg.ProjectID).GetSecret(ctx, cfg.LLMAPIKeySecret)
}
