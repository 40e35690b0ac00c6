package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/evdal/switchback/internal/apitypes"
	"github.com/evdal/switchback/internal/logging"
	"github.com/evdal/switchback/internal/orchestrator"
)

// handleDeploy accepts a deployment request and runs the deploy, verify,
// rollback workflow in the background. The response carries the deployment
// ID so the client can follow progress over the log stream.
func (s *APIServer) handleDeploy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req apitypes.DeployRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		req.Spec.Normalize()
		if err := req.Spec.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		target := req.Spec.Name
		artifact := req.Artifact
		if artifact == "" {
			artifact = req.Spec.Image
		}

		// Claim the target before persisting anything, so a rejected
		// concurrent request cannot overwrite the spec the in-flight
		// deployment may still roll back with.
		admission, err := s.orch.Admit(target)
		if err != nil {
			if errors.Is(err, orchestrator.ErrDeploymentInProgress) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		// Persist the spec before starting so the runtime can recreate
		// containers for this target on rollback.
		specJSON, err := json.Marshal(req.Spec)
		if err != nil {
			admission.Release()
			http.Error(w, "failed to encode spec", http.StatusInternalServerError)
			return
		}
		if err := s.db.SaveTargetSpec(r.Context(), target, specJSON); err != nil {
			admission.Release()
			s.logger.Error("Failed to save target spec", "target", target, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		deploymentID := orchestrator.CreateDeploymentID()
		deploymentLogger := logging.NewDeploymentLogger(deploymentID, s.logLevel, s.logBroker)

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), defaultContextTimeout)
			defer cancel()

			record, err := admission.Deploy(ctx, deploymentID, artifact, req.Spec.ProbePolicy())
			if err != nil {
				logging.LogDeploymentFailed(deploymentLogger, target, "Deployment failed", err)
				return
			}
			logging.LogDeploymentComplete(deploymentLogger, target,
				fmt.Sprintf("Deployment complete, %s is live", record.CurrentArtifact))
		}()

		response := apitypes.DeployResponse{
			DeploymentID: deploymentID,
			Target:       target,
			Artifact:     artifact,
		}
		if err := writeJSON(w, http.StatusAccepted, response); err != nil {
			s.logger.Error("Error writing JSON response", "error", err)
		}
	}
}

// handleDeploymentLogs streams one deployment's logs over SSE.
func (s *APIServer) handleDeploymentLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deploymentID := r.PathValue("deploymentID")
		if deploymentID == "" {
			http.Error(w, "deployment ID is required", http.StatusBadRequest)
			return
		}

		logChan, subscriberID := s.logBroker.SubscribeDeployment(deploymentID)

		streamSSELogs(w, r, sseStreamConfig{
			logChan:        logChan,
			cleanup:        func() { s.logBroker.UnsubscribeDeployment(deploymentID, subscriberID) },
			stopOnTerminal: true,
		})
	}
}
