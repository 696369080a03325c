//go:build !integration

package security

import (
	"context"
	"errors"
	"strings"
	"testing"

	"voicecoder/internal/domain"
	"voicecoder/internal/infra/memstore"
)

func TestEncryptionService_RoundTrip(t *testing.T) {
	t.Parallel()
	if _, err := NewEncryptionService("short"); err == nil {
		t.Fatalf("short key must be rejected")
	}
	svc, err := NewEncryptionService(strings.Repeat("k", 32))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a, _ := svc.Encrypt("sk-ant-secret")
	b, _ := svc.Encrypt("sk-ant-secret")
	if a == b {
		t.Fatalf("nonce must differ per message")
	}
	pt, err := svc.Decrypt(a)
	if err != nil || pt != "sk-ant-secret" {
		t.Fatalf("decrypt = %q %v", pt, err)
	}
	if _, err := svc.Decrypt("not-base64!"); err == nil {
		t.Fatalf("garbage must not decrypt")
	}
}

func TestCredentialStore_Encrypted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := memstore.New()
	svc, _ := NewEncryptionService(strings.Repeat("k", 16))
	s := NewCredentialStore(kv, svc, "voicecoder.apiKeys")

	if v, err := s.Get(ctx, "anthropic"); v != "" || err != nil {
		t.Fatalf("absent credential = %q %v", v, err)
	}
	if err := s.Set(ctx, "anthropic", " sk-ant-1 "); err != nil {
		t.Fatalf("set: %v", err)
	}
	raw, ok, _ := kv.Get(ctx, "voicecoder.apiKeys.anthropic")
	if !ok || strings.Contains(raw, "sk-ant-1") {
		t.Fatalf("stored value must be encrypted, got %q", raw)
	}
	if v, _ := s.Get(ctx, "anthropic"); v != "sk-ant-1" {
		t.Fatalf("get = %q", v)
	}
	if ok, _ := s.Exists(ctx, "anthropic"); !ok {
		t.Fatalf("exists = false")
	}
	_ = s.Delete(ctx, "anthropic")
	if ok, _ := s.Exists(ctx, "anthropic"); ok {
		t.Fatalf("exists after delete")
	}
}

func TestCredentialStore_Plaintext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := memstore.New()
	s := NewCredentialStore(kv, nil, "")

	if err := s.Set(ctx, "openai", "sk-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if raw, _, _ := kv.Get(ctx, "voicecoder.apiKeys.openai"); raw != "sk-1" {
		t.Fatalf("raw = %q", raw)
	}
	if err := s.Set(ctx, "openai", "   "); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("blank credential err = %v", err)
	}
}
