package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/evdal/switchback/internal/apitypes"
	"github.com/evdal/switchback/internal/store"
)

func (s *APIServer) handleSecretsList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secretsList, err := s.db.GetSecretsList(r.Context())
		if err != nil {
			s.logger.Error("Error fetching secrets", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		apiSecrets := make([]store.SecretAPIResponse, len(secretsList))
		for i, secret := range secretsList {
			apiSecrets[i] = secret.ToAPIResponse()
		}
		response := apitypes.SecretsListResponse{Secrets: apiSecrets}
		if err := writeJSON(w, http.StatusOK, response); err != nil {
			s.logger.Error("Error writing JSON response", "error", err)
		}
	}
}

func (s *APIServer) handleSetSecret() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req apitypes.SetSecretRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := validateSetSecretRequest(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := s.db.SetSecret(r.Context(), req.Name, req.Value); err != nil {
			s.logger.Error("Error setting secret", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *APIServer) handleDeleteSecret() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if name == "" {
			http.Error(w, "Secret name is required", http.StatusBadRequest)
			return
		}

		if err := s.db.DeleteSecret(r.Context(), name); err != nil {
			if strings.Contains(err.Error(), "not found") {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			s.logger.Error("Error deleting secret", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func validateSetSecretRequest(req apitypes.SetSecretRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("secret name is required")
	}

	if strings.TrimSpace(req.Value) == "" {
		return fmt.Errorf("secret value is required")
	}

	if len(req.Name) > 255 {
		return fmt.Errorf("secret name too long (max 255 characters)")
	}

	if !isValidSecretName(req.Name) {
		return fmt.Errorf("secret name can only contain letters, numbers, underscores, and hyphens")
	}

	if len(req.Value) > 10000 {
		return fmt.Errorf("secret value too long (max 10000 characters)")
	}

	return nil
}

func isValidSecretName(name string) bool {
	// Allow alphanumeric, underscore, hyphen, dot
	for _, char := range name {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_' || char == '-' || char == '.') {
			return false
		}
	}
	return true
}
