package store

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aprendu/aprendu-backend/internal/errs"
)

// Secrets path
// projects/{project}/secrets/{secretID}/versions/latest

type secretsStore struct {
	client    *secretmanager.Client
	projectID string
}

func NewSecretsStore(client *secretmanager.Client, projectID string) *secretsStore {
	return &secretsStore{client: client, projectID: projectID}
}

// versionName accepts a bare secret id, a secret resource name or a full
// version resource name.
func (s *secretsStore) versionName(secret string) string {
	switch {
	case strings.Contains(secret, "/versions/"):
		return secret
	case strings.HasPrefix(secret, "projects/"):
		return secret + "/versions/latest"
	default:
		return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, secret)
	}
}

func (s *secretsStore) GetSecret(ctx context.Context, secret string) (string, error) {
	res, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: s.versionName(secret),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", errs.NewNotFoundError("secret not found")
		}
		return "", errs.NewExternalServiceError("secretmanager", "failed to access secret", false, err)
	}
	return strings.TrimSpace(string(res.Payload.Data)), nil
}
