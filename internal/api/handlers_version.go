package api

import (
	"net/http"

	"github.com/evdal/switchback/internal/apitypes"
	"github.com/evdal/switchback/internal/constants"
)

func (s *APIServer) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := apitypes.HealthResponse{
			Status:  "ok",
			Version: constants.Version,
			Service: "switchbackd",
		}
		writeJSON(w, http.StatusOK, response)
	}
}

func (s *APIServer) handleVersion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := apitypes.VersionResponse{
			Version: constants.Version,
		}
		writeJSON(w, http.StatusOK, response)
	}
}
