package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/qvox/qvox-server/internal/service/logger"
	"github.com/qvox/qvox-server/internal/storage"
	taskmanager "github.com/qvox/qvox-server/internal/task_manager"
	"github.com/qvox/qvox-server/internal/util"
	"github.com/qvox/qvox-server/model"
)

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, ok := s.tasks.Get(id)
	if !ok {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}

	snap := t.Snapshot()
	respondJSON(w, http.StatusOK, model.TaskStatusResponse{
		Status:            string(snap.Status),
		Progress:          snap.Progress,
		OutputPath:        snap.OutputPath,
		RefAudioID:        snap.RefAudioID,
		GenerationSeconds: snap.GenerationSeconds,
		Error:             snap.Error,
		MultiSpeaker:      snap.MultiSpeaker,
		TotalSegments:     snap.TotalSegments,
		CurrentSegment:    snap.CurrentSegment,
	})
}

func (s *Server) handleTaskCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, ok := s.tasks.Get(id); !ok {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}

	s.tasks.Cancel(id)
	respondJSON(w, http.StatusOK, model.MessageResponse{Message: "Task cancelled successfully"})
}

func (s *Server) handleTaskAudio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Task state is ephemeral but files persist, so a missing task record
	// only falls through to storage.
	if t, ok := s.tasks.Get(id); ok && t.Snapshot().Status != taskmanager.StatusCompleted {
		http.Error(w, "task not completed", http.StatusBadRequest)
		return
	}

	key := util.GetGeneratedAudioKey(id)
	var data []byte
	if err := s.cache.Get(r.Context(), key, &data); err == nil {
		respondWAV(w, data)
		return
	}

	data, err := s.storage.GetGeneratedAudio(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "audio file not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to read audio: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := s.cache.Put(r.Context(), key, data, s.cache.GetDefaultTTL()); err != nil {
		logger.Log.Error().Err(err).Msg("unable to cache generated audio")
	}
	respondWAV(w, data)
}
