// Package fs implements audio storage on the local filesystem, one .wav per
// recording with a .json metadata sidecar. This is the default backend and
// mirrors what a single-node deployment needs.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/qvox/qvox-server/internal/audio"
	"github.com/qvox/qvox-server/internal/service/logger"
	"github.com/qvox/qvox-server/internal/storage"
	"github.com/qvox/qvox-server/model"
)

type FileStorage struct {
	refDir string
	genDir string
}

// NewFileStorage creates the references/ and generated/ directories under
// dataDir.
func NewFileStorage(dataDir string) (storage.Storage, error) {
	s := &FileStorage{
		refDir: filepath.Join(dataDir, "references"),
		genDir: filepath.Join(dataDir, "generated"),
	}
	for _, dir := range []string{s.refDir, s.genDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return s, nil
}

func (s *FileStorage) SaveReference(ctx context.Context, data []byte, originalName, refText string) (model.ReferenceMeta, error) {
	id := uuid.NewString()
	meta := model.ReferenceMeta{
		ID:           id,
		Filename:     id + ".wav",
		OriginalName: originalName,
		RefText:      refText,
		CreatedAt:    nowStamp(),
	}

	if err := os.WriteFile(filepath.Join(s.refDir, meta.Filename), data, 0o644); err != nil {
		return model.ReferenceMeta{}, fmt.Errorf("writing reference audio: %w", err)
	}
	if err := writeMeta(filepath.Join(s.refDir, id+".json"), meta); err != nil {
		return model.ReferenceMeta{}, err
	}
	return meta, nil
}

func (s *FileStorage) ListReferences(ctx context.Context) ([]model.ReferenceMeta, error) {
	var out []model.ReferenceMeta
	err := eachMeta(s.refDir, func(path string) {
		var meta model.ReferenceMeta
		if readMeta(path, &meta) {
			out = append(out, meta)
		}
	})
	return out, err
}

func (s *FileStorage) GetReference(ctx context.Context, id string) (model.ReferenceMeta, error) {
	var meta model.ReferenceMeta
	if !readMeta(filepath.Join(s.refDir, id+".json"), &meta) {
		return model.ReferenceMeta{}, fmt.Errorf("reference %s: %w", id, storage.ErrNotFound)
	}
	return meta, nil
}

func (s *FileStorage) GetReferenceAudio(ctx context.Context, id string) ([]byte, error) {
	return readAudio(filepath.Join(s.refDir, id+".wav"), id)
}

func (s *FileStorage) DeleteReference(ctx context.Context, id string) error {
	return deletePair(s.refDir, id)
}

func (s *FileStorage) RenameReference(ctx context.Context, id, name string) (model.ReferenceMeta, error) {
	meta, err := s.GetReference(ctx, id)
	if err != nil {
		return model.ReferenceMeta{}, err
	}
	meta.Name = name
	if err := writeMeta(filepath.Join(s.refDir, id+".json"), meta); err != nil {
		return model.ReferenceMeta{}, err
	}
	return meta, nil
}

func (s *FileStorage) SaveGenerated(ctx context.Context, taskID string, clip audio.Clip, meta model.GeneratedMeta) (string, error) {
	data, err := audio.EncodeWAV(clip)
	if err != nil {
		return "", err
	}

	filename := taskID + ".wav"
	if err := os.WriteFile(filepath.Join(s.genDir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("writing generated audio: %w", err)
	}
	if err := writeMeta(filepath.Join(s.genDir, taskID+".json"), meta); err != nil {
		return "", err
	}
	return filename, nil
}

func (s *FileStorage) ListGenerated(ctx context.Context) ([]model.GeneratedMeta, error) {
	var out []model.GeneratedMeta
	err := eachMeta(s.genDir, func(path string) {
		var meta model.GeneratedMeta
		if readMeta(path, &meta) {
			out = append(out, meta)
		}
	})
	return out, err
}

func (s *FileStorage) GetGeneratedAudio(ctx context.Context, taskID string) ([]byte, error) {
	return readAudio(filepath.Join(s.genDir, taskID+".wav"), taskID)
}

func (s *FileStorage) DeleteGenerated(ctx context.Context, id string) error {
	return deletePair(s.genDir, id)
}

func (s *FileStorage) ShutDown(ctx context.Context) {}

func nowStamp() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}

func writeMeta(path string, meta any) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// readMeta returns false when the sidecar is missing or unparseable.
// Corrupted sidecars are skipped rather than failing a whole listing.
func readMeta(path string, out any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.Log.Warn().Str("path", path).Msg("skipping invalid metadata")
		return false
	}
	return true
}

func eachMeta(dir string, visit func(path string)) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("listing %s: %w", dir, err)
	}
	sort.Strings(paths)
	for _, p := range paths {
		visit(p)
	}
	return nil
}

func readAudio(path, id string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("audio %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	return data, nil
}

func deletePair(dir, id string) error {
	audioPath := filepath.Join(dir, id+".wav")
	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return fmt.Errorf("audio %s: %w", id, storage.ErrNotFound)
	}
	if err := os.Remove(audioPath); err != nil {
		return fmt.Errorf("deleting audio: %w", err)
	}
	_ = os.Remove(filepath.Join(dir, id+".json"))
	return nil
}
