package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/qvox/qvox-server/internal/storage"
	"github.com/qvox/qvox-server/internal/util"
	"github.com/qvox/qvox-server/model"
)

func (s *Server) handleListGenerated(w http.ResponseWriter, r *http.Request) {
	items, err := s.storage.ListGenerated(r.Context())
	if err != nil {
		http.Error(w, "failed to list generated audio: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []model.GeneratedMeta{}
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleDeleteGenerated(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.storage.DeleteGenerated(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "generated audio not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to delete generated audio: "+err.Error(), http.StatusInternalServerError)
		return
	}

	_ = s.cache.Del(r.Context(), util.GetGeneratedAudioKey(id))
	respondJSON(w, http.StatusOK, model.MessageResponse{Message: "Generated audio deleted successfully"})
}
