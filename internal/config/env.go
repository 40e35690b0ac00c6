package config

import (
	"errors"
	"fmt"
)

// EnvVar represents an environment variable that can either have a plaintext value or be backed by a secret.
type EnvVar struct {
	Name string `json:"name" yaml:"name" toml:"name"`

	// Use pointers to ensure only one is provided.
	Value      *string `json:"value,omitempty" yaml:"value,omitempty" toml:"value,omitempty"`
	SecretName *string `json:"secretName,omitempty" yaml:"secret_name,omitempty" toml:"secret_name,omitempty"`

	// Internal field to hold the resolved value after secret lookup.
	resolvedValue *string `json:"-" yaml:"-" toml:"-"`
}

// GetValue returns the final value of the environment variable. It returns the resolved value if available;
// otherwise it returns the plaintext value. If neither is set, it returns an error.
func (ev *EnvVar) GetValue() (string, error) {
	if ev.resolvedValue != nil {
		return *ev.resolvedValue, nil
	}
	if ev.Value != nil {
		return *ev.Value, nil
	}
	return "", fmt.Errorf("environment variable '%s' has neither a plaintext nor a resolved value", ev.Name)
}

// Validate ensures the EnvVar is correctly configured.
func (ev *EnvVar) Validate() error {
	if ev.Name == "" {
		return errors.New("environment variable name cannot be empty")
	}
	if ev.Value != nil && ev.SecretName != nil {
		return fmt.Errorf("environment variable '%s': cannot provide both 'value' and 'secretName'", ev.Name)
	}
	if ev.Value == nil && ev.SecretName == nil {
		return fmt.Errorf("environment variable '%s': must provide either 'value' or 'secretName'", ev.Name)
	}
	return nil
}
