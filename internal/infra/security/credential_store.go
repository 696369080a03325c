package security

import (
	"context"
	"fmt"
	"strings"

	"voicecoder/internal/domain"
	"voicecoder/internal/domain/ports/repository"
)

var _ repository.CredentialStore = (*CredentialStore)(nil)

// CredentialStore keeps one API key per provider under "<prefix>.<provider>".
// With a nil cipher values are stored as given.
type CredentialStore struct {
	kv     repository.KeyValueStore
	cipher Cipher
	prefix string
}

func NewCredentialStore(kv repository.KeyValueStore, c Cipher, prefix string) *CredentialStore {
	if prefix == "" {
		prefix = "voicecoder.apiKeys"
	}
	return &CredentialStore{kv: kv, cipher: c, prefix: strings.TrimSuffix(prefix, ".")}
}

func (s *CredentialStore) key(providerID string) string {
	return s.prefix + "." + providerID
}

func (s *CredentialStore) Get(ctx context.Context, providerID string) (string, error) {
	v, ok, err := s.kv.Get(ctx, s.key(providerID))
	if err != nil || !ok {
		return "", err
	}
	if s.cipher == nil {
		return v, nil
	}
	pt, err := s.cipher.Decrypt(v)
	if err != nil {
		return "", fmt.Errorf("decrypt credential for %s: %w", providerID, err)
	}
	return pt, nil
}

func (s *CredentialStore) Set(ctx context.Context, providerID, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return fmt.Errorf("%w: empty credential", domain.ErrInvalidArgument)
	}
	v := credential
	if s.cipher != nil {
		ct, err := s.cipher.Encrypt(credential)
		if err != nil {
			return fmt.Errorf("encrypt credential for %s: %w", providerID, err)
		}
		v = ct
	}
	return s.kv.Set(ctx, s.key(providerID), v)
}

func (s *CredentialStore) Delete(ctx context.Context, providerID string) error {
	return s.kv.Delete(ctx, s.key(providerID))
}

func (s *CredentialStore) Exists(ctx context.Context, providerID string) (bool, error) {
	_, ok, err := s.kv.Get(ctx, s.key(providerID))
	return ok, err
}
