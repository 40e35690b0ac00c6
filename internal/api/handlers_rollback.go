package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/evdal/switchback/internal/apitypes"
	"github.com/evdal/switchback/internal/config"
	"github.com/evdal/switchback/internal/constants"
	"github.com/evdal/switchback/internal/deploytypes"
	"github.com/evdal/switchback/internal/logging"
	"github.com/evdal/switchback/internal/orchestrator"
)

// handleRollback redeploys a previously promoted artifact. Without an
// explicit artifact in the request it reverts to the one recorded before
// the current deployment.
func (s *APIServer) handleRollback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.PathValue("target")
		if target == "" {
			http.Error(w, "target is required", http.StatusBadRequest)
			return
		}

		var req apitypes.RollbackRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		record, err := s.db.GetRecord(r.Context(), target)
		if err != nil {
			s.logger.Error("Failed to load deployment record", "target", target, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if record == nil {
			http.Error(w, fmt.Sprintf("target '%s' has never been deployed", target), http.StatusNotFound)
			return
		}

		artifact := req.Artifact
		if artifact == "" {
			artifact = record.PreviousArtifact
		}
		if artifact == "" {
			http.Error(w, fmt.Sprintf("target '%s' has no previous artifact to roll back to", target), http.StatusConflict)
			return
		}

		raw, err := s.db.GetTargetSpec(r.Context(), target)
		if err != nil {
			s.logger.Error("Failed to load target spec", "target", target, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if raw == nil {
			http.Error(w, fmt.Sprintf("no spec stored for target '%s'", target), http.StatusConflict)
			return
		}
		var spec config.TargetSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			s.logger.Error("Failed to decode target spec", "target", target, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		admission, err := s.orch.Admit(target)
		if err != nil {
			if errors.Is(err, orchestrator.ErrDeploymentInProgress) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		deploymentID := orchestrator.CreateDeploymentID()
		deploymentLogger := logging.NewDeploymentLogger(deploymentID, s.logLevel, s.logBroker)

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), defaultContextTimeout)
			defer cancel()

			record, err := admission.Deploy(ctx, deploymentID, artifact, spec.ProbePolicy())
			if err != nil {
				logging.LogDeploymentFailed(deploymentLogger, target, "Rollback failed", err)
				return
			}
			logging.LogDeploymentComplete(deploymentLogger, target,
				fmt.Sprintf("Rollback complete, %s is live", record.CurrentArtifact))
		}()

		response := apitypes.RollbackResponse{
			DeploymentID: deploymentID,
			Target:       target,
			Artifact:     artifact,
		}
		if err := writeJSON(w, http.StatusAccepted, response); err != nil {
			s.logger.Error("Error writing JSON response", "error", err)
		}
	}
}

// handleRollbackTargets lists the artifacts a target can roll back to,
// derived from its deployment history.
func (s *APIServer) handleRollbackTargets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.PathValue("target")
		if target == "" {
			http.Error(w, "target is required", http.StatusBadRequest)
			return
		}

		record, err := s.db.GetRecord(r.Context(), target)
		if err != nil {
			s.logger.Error("Failed to load deployment record", "target", target, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		current := ""
		if record != nil {
			current = record.CurrentArtifact
		}

		history, err := s.db.GetDeploymentHistory(r.Context(), target, constants.DefaultHistoryLimit)
		if err != nil {
			s.logger.Error("Failed to load deployment history", "target", target, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		targets := make([]deploytypes.RollbackTarget, 0, len(history))
		for _, d := range history {
			if d.State != deploytypes.StateStable {
				continue
			}
			targets = append(targets, deploytypes.RollbackTarget{
				Artifact:     d.Artifact,
				DeploymentID: d.ID,
				CreatedAt:    d.CreatedAt,
				IsCurrent:    d.Artifact == current,
			})
		}

		writeJSON(w, http.StatusOK, apitypes.RollbackTargetsResponse{Targets: targets})
	}
}
