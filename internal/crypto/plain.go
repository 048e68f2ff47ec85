package crypto

import "context"

// plain stores payloads as-is. Used when no KMS key is configured.
type plain struct{}

func NewPlain() plain { return plain{} }

func (plain) Encrypt(_ context.Context, plaintext string) (string, error) {
	return plaintext, nil
}

func (plain) Decrypt(_ context.Context, ciphertext string) (string, error) {
	return ciphertext, nil
}
