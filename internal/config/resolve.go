package config

import (
	"context"
	"fmt"

	"github.com/jinzhu/copier"
)

// SecretResolver looks up the plaintext value of a named secret.
type SecretResolver interface {
	GetSecretDecryptedValue(ctx context.Context, name string) (string, error)
}

// ResolveSecrets returns a deep copy of the spec with every secret-backed
// environment variable resolved to its plaintext value. The input spec is
// left untouched so encrypted references never leak into persisted copies.
func ResolveSecrets(ctx context.Context, spec TargetSpec, resolver SecretResolver) (TargetSpec, error) {
	var resolved TargetSpec
	if err := copier.CopyWithOption(&resolved, &spec, copier.Option{DeepCopy: true}); err != nil {
		return TargetSpec{}, fmt.Errorf("failed to copy spec for resolution: %w", err)
	}

	for i := range resolved.Env {
		ev := &resolved.Env[i]
		if ev.SecretName == nil {
			continue
		}
		value, err := resolver.GetSecretDecryptedValue(ctx, *ev.SecretName)
		if err != nil {
			return TargetSpec{}, fmt.Errorf("failed to resolve secret for '%s': %w", ev.Name, err)
		}
		ev.resolvedValue = &value
	}

	return resolved, nil
}
