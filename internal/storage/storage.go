package storage

import (
	"context"
	"errors"

	"github.com/qvox/qvox-server/internal/audio"
	"github.com/qvox/qvox-server/model"
)

// ErrNotFound is returned when the requested audio or metadata does not exist.
var ErrNotFound = errors.New("not found")

// Storage persists reference recordings and generated audio. Every audio
// file has a companion JSON metadata record.
type Storage interface {
	SaveReference(ctx context.Context, data []byte, originalName, refText string) (model.ReferenceMeta, error)
	ListReferences(ctx context.Context) ([]model.ReferenceMeta, error)
	GetReference(ctx context.Context, id string) (model.ReferenceMeta, error)
	GetReferenceAudio(ctx context.Context, id string) ([]byte, error)
	DeleteReference(ctx context.Context, id string) error
	RenameReference(ctx context.Context, id, name string) (model.ReferenceMeta, error)

	SaveGenerated(ctx context.Context, taskID string, clip audio.Clip, meta model.GeneratedMeta) (string, error)
	ListGenerated(ctx context.Context) ([]model.GeneratedMeta, error)
	GetGeneratedAudio(ctx context.Context, taskID string) ([]byte, error)
	DeleteGenerated(ctx context.Context, id string) error

	ShutDown(ctx context.Context)
}
