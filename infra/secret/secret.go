// Package secret provisions the hosted model API key the API reads at startup
// when LLMPROVIDER is anthropic or openai.
package secret

import (
	"fmt"

	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/projects"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/secretmanager"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/serviceaccount"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"
)

// LLMKeySecretID is the Secret Manager id bootstrap.InitLLM resolves through
// LLMAPIKEYSECRET.
const LLMKeySecretID = "llmApiKey"

// LLMKey is the outcome of SetupLLMKey. SecretID is empty when llm:apiKey is
// not configured, which is the case for the vertex provider.
type LLMKey struct {
	SecretID pulumi.StringOutput
	Service  *projects.Service
}

// SetupLLMKey stores llm:apiKey in Secret Manager and lets apiSA read that one
// secret. Nothing is created when the key is not configured.
func SetupLLMKey(ctx *pulumi.Context, prov *gcp.Provider, apiSA *serviceaccount.Account) (*LLMKey, error) {
	out := &LLMKey{SecretID: pulumi.String("").ToStringOutput()}

	llmCfg := config.New(ctx, "llm")
	if llmCfg.Get("apiKey") == "" {
		return out, nil
	}

	svc, err := projects.NewService(ctx, "secretManagerService", &projects.ServiceArgs{
		Service: pulumi.String("secretmanager.googleapis.com"),
	},
		pulumi.Provider(prov),
	)
	if err != nil {
		return nil, err
	}
	out.Service = svc

	s, err := secretmanager.NewSecret(ctx, "llmApiKeySecret", &secretmanager.SecretArgs{
		SecretId: pulumi.String(LLMKeySecretID),
		Labels:   pulumi.StringMap{"purpose": pulumi.String("llm-api-key")},
		Replication: &secretmanager.SecretReplicationArgs{
			Auto: &secretmanager.SecretReplicationAutoArgs{},
		},
	},
		pulumi.Provider(prov),
		pulumi.DependsOn([]pulumi.Resource{svc}),
	)
	if err != nil {
		return nil, err
	}

	if _, err := secretmanager.NewSecretVersion(ctx, "llmApiKeySecretVersion", &secretmanager.SecretVersionArgs{
		Secret:     s.ID(),
		SecretData: llmCfg.RequireSecret("apiKey"),
	},
		pulumi.Provider(prov),
	); err != nil {
		return nil, err
	}

	if _, err := secretmanager.NewSecretIamMember(ctx, "llmApiKeyAccess", &secretmanager.SecretIamMemberArgs{
		SecretId: s.SecretId,
		Role:     pulumi.String("roles/secretmanager.secretAccessor"),
		Member: apiSA.Email.ApplyT(func(email string) string {
			return fmt.Sprintf("serviceAccount:%s", email)
		}).(pulumi.StringOutput),
	},
		pulumi.Provider(prov),
	); err != nil {
		return nil, err
	}

	out.SecretID = s.SecretId
	return out, nil
}
