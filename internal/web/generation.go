package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/qvox/qvox-server/internal/storage"
	"github.com/qvox/qvox-server/model"
)

func (s *Server) handleClone(w http.ResponseWriter, r *http.Request) {
	var req model.CloneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateCloneRequest(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	taskID, err := s.gen.StartClone(r.Context(), req)
	if err != nil {
		s.generationError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, model.GenerationResponse{
		TaskID:  taskID,
		Status:  "running",
		Message: "Voice cloning started",
	})
}

func (s *Server) handleCloneWithUpload(w http.ResponseWriter, r *http.Request) {
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

	req := model.CloneRequest{
		Text:     r.FormValue("text"),
		RefText:  r.FormValue("ref_text"),
		Language: r.FormValue("language"),
	}

	refMeta, err := s.storage.SaveReference(r.Context(), audioBytes, originalName, req.RefText)
	if err != nil {
		http.Error(w, "failed to save reference: "+err.Error(), http.StatusInternalServerError)
		return
	}
	req.RefAudioID = refMeta.ID

	if err := validateCloneRequest(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	taskID, err := s.gen.StartClone(r.Context(), req)
	if err != nil {
		s.generationError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, model.GenerationResponse{
		TaskID:  taskID,
		Status:  "running",
		Message: "Voice cloning started",
	})
}

func (s *Server) handleCloneMultiSpeaker(w http.ResponseWriter, r *http.Request) {
	var req model.MultiSpeakerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateMultiSpeakerRequest(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	taskID, err := s.gen.StartMultiSpeaker(r.Context(), req)
	if err != nil {
		s.generationError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, model.GenerationResponse{
		TaskID:  taskID,
		Status:  "running",
		Message: "Multi-speaker cloning started",
	})
}

func (s *Server) handleVoiceDesign(w http.ResponseWriter, r *http.Request) {
	var req model.VoiceDesignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateVoiceDesignRequest(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	taskID, err := s.gen.StartVoiceDesign(r.Context(), req)
	if err != nil {
		s.generationError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, model.GenerationResponse{
		TaskID:  taskID,
		Status:  "running",
		Message: "Voice design started",
	})
}

func (s *Server) handleCustomVoice(w http.ResponseWriter, r *http.Request) {
	var req model.CustomVoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateCustomVoiceRequest(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	taskID, err := s.gen.StartCustomVoice(r.Context(), req)
	if err != nil {
		s.generationError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, model.GenerationResponse{
		TaskID:  taskID,
		Status:  "running",
		Message: "Custom voice generation started",
	})
}

func (s *Server) generationError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "reference audio not found", http.StatusNotFound)
		return
	}
	http.Error(w, "failed to start task: "+err.Error(), http.StatusInternalServerError)
}
