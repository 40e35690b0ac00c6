package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/evdal/switchback/internal/apitypes"
	"github.com/evdal/switchback/internal/constants"
	"github.com/evdal/switchback/internal/deploytypes"
)

func (s *APIServer) handleTargetStatus() http.HandlerFunc {
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
		if record == nil {
			http.Error(w, fmt.Sprintf("target '%s' has never been deployed", target), http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, s.statusFromRecord(r, *record))
	}
}

func (s *APIServer) handleStatusList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := s.db.ListRecords(r.Context())
		if err != nil {
			s.logger.Error("Failed to list deployment records", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		statuses := make([]apitypes.StatusResponse, 0, len(records))
		for _, record := range records {
			statuses = append(statuses, s.statusFromRecord(r, record))
		}
		writeJSON(w, http.StatusOK, apitypes.StatusListResponse{Targets: statuses})
	}
}

func (s *APIServer) statusFromRecord(r *http.Request, record deploytypes.DeploymentRecord) apitypes.StatusResponse {
	running := false
	if record.CurrentArtifact != "" {
		var err error
		running, err = s.controller.IsRunning(r.Context(), record.Target, record.CurrentArtifact)
		if err != nil {
			s.logger.Warn("Failed to check runtime state", "target", record.Target, "error", err)
		}
	}
	return apitypes.StatusResponse{
		Target:           record.Target,
		State:            string(record.State),
		CurrentArtifact:  record.CurrentArtifact,
		PreviousArtifact: record.PreviousArtifact,
		Running:          running,
		StartedAt:        record.StartedAt,
		LastTransition:   record.LastTransition,
	}
}

func (s *APIServer) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.PathValue("target")
		if target == "" {
			http.Error(w, "target is required", http.StatusBadRequest)
			return
		}

		limit := constants.DefaultHistoryLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed <= 0 {
				http.Error(w, "limit must be a positive number", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		history, err := s.db.GetDeploymentHistory(r.Context(), target, limit)
		if err != nil {
			s.logger.Error("Failed to load deployment history", "target", target, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, apitypes.HistoryResponse{Deployments: history})
	}
}
