package crypto

import (
	"context"
	"encoding/base64"

	gcpkms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"

	"github.com/aprendu/aprendu-backend/internal/errs"
)

// Cipher protects saved dashboard payloads at rest.
type Cipher interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

type kms struct {
	client  *gcpkms.KeyManagementClient
	keyName string
}

func NewKMS(client *gcpkms.KeyManagementClient, keyName string) *kms {
	return &kms{client: client, keyName: keyName}
}

// Encrypt encrypts plaintext using the configured KMS key name and returns base64 text.
func (k *kms) Encrypt(ctx context.Context, plaintext string) (string, error) {
	resp, err := k.client.Encrypt(ctx, &kmspb.EncryptRequest{
		Name:      k.keyName,
		Plaintext: []byte(plaintext),
	})
	if err != nil {
		return "", errs.NewEncryptionError("failed to encrypt dashboard payload", err)
	}
	return base64.StdEncoding.EncodeToString(resp.Ciphertext), nil
}

// Decrypt decrypts base64 ciphertext using the configured KMS key name.
func (k *kms) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errs.NewEncryptionError("saved dashboard payload is not base64", err)
	}
	resp, err := k.client.Decrypt(ctx, &kmspb.DecryptRequest{
		Name:       k.keyName,
		Ciphertext: raw,
	})
	if err != nil {
		return "", errs.NewEncryptionError("failed to decrypt dashboard payload", err)
	}
	return string(resp.Plaintext), nil
}

func (k *kms) Close() error {
	return k.client.Close()
}
