package repository

import "context"

// CredentialStore keeps one secret per provider id.
type CredentialStore interface {
	// Get returns "" with a nil error when nothing is stored.
	Get(ctx context.Context, providerID string) (string, error)
	Set(ctx context.Context, providerID, credential string) error
	Delete(ctx context.Context, providerID string) error
	Exists(ctx context.Context, providerID string) (bool, error)
}
