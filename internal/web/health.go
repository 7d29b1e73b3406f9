package web

import (
	"net/http"

	"github.com/qvox/qvox-server/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, model.HealthResponse{
		Status:       "healthy",
		EngineReady:  true,
		LoadedModels: s.engine.Variants(),
	})
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, model.CapabilitiesResponse{
		Models:   s.engine.Variants(),
		Speakers: model.SupportedSpeakers,
	})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, model.LanguagesResponse{
		Languages: model.SupportedLanguages,
	})
}
