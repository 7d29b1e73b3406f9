package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/qvox/qvox-server/internal/service/logger"
	"github.com/qvox/qvox-server/internal/storage"
	"github.com/qvox/qvox-server/internal/util"
	"github.com/qvox/qvox-server/model"
)

func (s *Server) handleListReferences(w http.ResponseWriter, r *http.Request) {
	refs, err := s.storage.ListReferences(r.Context())
	if err != nil {
		http.Error(w, "failed to list references: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if refs == nil {
		refs = []model.ReferenceMeta{}
	}
	respondJSON(w, http.StatusOK, refs)
}

func (s *Server) handleUploadReference(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing audio file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioBytes, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "reading audio file: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(audioBytes) == 0 {
		http.Error(w, "empty audio file", http.StatusBadRequest)
		return
	}

	originalName := header.Filename
	if originalName == "" {
		originalName = "unknown.wav"
	}

	meta, err := s.storage.SaveReference(r.Context(), audioBytes, originalName, r.FormValue("ref_text"))
	if err != nil {
		http.Error(w, "failed to save reference: "+err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, meta)
}

func (s *Server) handleReferenceAudio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	key := util.GetReferenceAudioKey(id)
	var data []byte
	if err := s.cache.Get(r.Context(), key, &data); err == nil {
		respondWAV(w, data)
		return
	}

	data, err := s.storage.GetReferenceAudio(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "reference audio not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to read audio: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := s.cache.Put(r.Context(), key, data, s.cache.GetDefaultTTL()); err != nil {
		logger.Log.Error().Err(err).Msg("unable to cache reference audio")
	}
	respondWAV(w, data)
}

func (s *Server) handleDeleteReference(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.storage.DeleteReference(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "reference audio not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to delete reference: "+err.Error(), http.StatusInternalServerError)
		return
	}

	_ = s.cache.Del(r.Context(), util.GetReferenceAudioKey(id))
	respondJSON(w, http.StatusOK, model.MessageResponse{Message: "Reference audio deleted successfully"})
}

func (s *Server) handleRenameReference(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" || len(req.Name) > maxNameLen {
		http.Error(w, "name must be between 1 and 200 characters", http.StatusBadRequest)
		return
	}

	_, err := s.storage.RenameReference(r.Context(), id, req.Name)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "reference audio not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to rename reference: "+err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, model.RenameResponse{
		Message: "Reference audio renamed successfully",
		Name:    req.Name,
	})
}
