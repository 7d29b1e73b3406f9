package web

import (
	"encoding/json"
	"net/http"

	"github.com/qvox/qvox-server/internal/service/logger"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondWAV(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Log.Error().Err(err).Msg("failed to write audio response")
	}
}
