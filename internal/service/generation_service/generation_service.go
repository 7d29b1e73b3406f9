package generationservice

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qvox/qvox-server/internal/audio"
	"github.com/qvox/qvox-server/internal/engine"
	"github.com/qvox/qvox-server/internal/storage"
	taskmanager "github.com/qvox/qvox-server/internal/task_manager"
	"github.com/qvox/qvox-server/model"
)

// Progress checkpoints shared by all generation bodies: 10 after input
// resolution, 90 after synthesis, 100 after persistence.
const (
	progressResolved    = 10
	progressSynthesized = 90
)

// Service launches generation tasks. Each Start* call registers a task,
// spawns its body and returns the task id immediately; the caller polls the
// task manager for progress.
type Service struct {
	engine  *engine.Engine
	storage storage.Storage
	tasks   *taskmanager.Manager
}

func NewService(e *engine.Engine, s storage.Storage, tm *taskmanager.Manager) *Service {
	return &Service{engine: e, storage: s, tasks: tm}
}

// StartClone begins a voice cloning task. The reference recording must
// already exist; a missing one fails synchronously with storage.ErrNotFound.
func (s *Service) StartClone(ctx context.Context, req model.CloneRequest) (string, error) {
	if _, err := s.storage.GetReference(ctx, req.RefAudioID); err != nil {
		return "", err
	}

	taskID := uuid.NewString()
	t := s.tasks.Register(taskID, taskmanager.Meta{RefAudioID: req.RefAudioID})
	if err := s.tasks.Start(t, func(ctx context.Context, t *taskmanager.Task) error {
		return s.runClone(ctx, t, req)
	}); err != nil {
		return "", err
	}
	return taskID, nil
}

// StartVoiceDesign begins a generation task for a described voice.
func (s *Service) StartVoiceDesign(ctx context.Context, req model.VoiceDesignRequest) (string, error) {
	taskID := uuid.NewString()
	t := s.tasks.Register(taskID, taskmanager.Meta{})
	if err := s.tasks.Start(t, func(ctx context.Context, t *taskmanager.Task) error {
		return s.runVoiceDesign(ctx, t, req)
	}); err != nil {
		return "", err
	}
	return taskID, nil
}

// StartCustomVoice begins a generation task with a built-in speaker.
func (s *Service) StartCustomVoice(ctx context.Context, req model.CustomVoiceRequest) (string, error) {
	taskID := uuid.NewString()
	t := s.tasks.Register(taskID, taskmanager.Meta{})
	if err := s.tasks.Start(t, func(ctx context.Context, t *taskmanager.Task) error {
		return s.runCustomVoice(ctx, t, req)
	}); err != nil {
		return "", err
	}
	return taskID, nil
}

// StartMultiSpeaker begins a composite cloning task over ordered segments.
// Every segment's reference is checked up front so a bad request fails
// synchronously.
func (s *Service) StartMultiSpeaker(ctx context.Context, req model.MultiSpeakerRequest) (string, error) {
	for i, seg := range req.Segments {
		if _, err := s.storage.GetReference(ctx, seg.RefAudioID); err != nil {
			return "", fmt.Errorf("segment %d: %w", i, err)
		}
	}

	taskID := uuid.NewString()
	t := s.tasks.Register(taskID, taskmanager.Meta{
		MultiSpeaker:  true,
		TotalSegments: len(req.Segments),
	})
	if err := s.tasks.Start(t, func(ctx context.Context, t *taskmanager.Task) error {
		return s.runMultiSpeaker(ctx, t, req.Segments)
	}); err != nil {
		return "", err
	}
	return taskID, nil
}

func (s *Service) runClone(ctx context.Context, t *taskmanager.Task, req model.CloneRequest) error {
	refMeta, err := s.storage.GetReference(ctx, req.RefAudioID)
	if err != nil {
		return fmt.Errorf("reference audio not found")
	}
	refAudio, err := s.storage.GetReferenceAudio(ctx, req.RefAudioID)
	if err != nil {
		return fmt.Errorf("reference audio not found")
	}

	t.SetProgress(progressResolved)
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	clip, err := s.engine.GenerateClone(ctx, req.Text, refAudio, req.RefText, req.Language)
	if err != nil {
		return err
	}
	elapsed := roundSeconds(time.Since(start))
	t.SetProgress(progressSynthesized)

	refName := refMeta.Name
	if refName == "" {
		refName = refMeta.OriginalName
	}

	return s.persist(ctx, t, clip, model.GeneratedMeta{
		ID:                t.ID(),
		Filename:          t.ID() + ".wav",
		RefAudioID:        req.RefAudioID,
		RefAudioName:      refName,
		GeneratedText:     req.Text,
		CreatedAt:         nowStamp(),
		GenerationSeconds: elapsed,
	}, elapsed)
}

func (s *Service) runVoiceDesign(ctx context.Context, t *taskmanager.Task, req model.VoiceDesignRequest) error {
	t.SetProgress(progressResolved)
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	clip, err := s.engine.GenerateVoiceDesign(ctx, req.Text, req.Instruct, req.Language)
	if err != nil {
		return err
	}
	elapsed := roundSeconds(time.Since(start))
	t.SetProgress(progressSynthesized)

	return s.persist(ctx, t, clip, model.GeneratedMeta{
		ID:                t.ID(),
		Filename:          t.ID() + ".wav",
		GeneratedText:     req.Text,
		CreatedAt:         nowStamp(),
		GenerationSeconds: elapsed,
	}, elapsed)
}

func (s *Service) runCustomVoice(ctx context.Context, t *taskmanager.Task, req model.CustomVoiceRequest) error {
	t.SetProgress(progressResolved)
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	clip, err := s.engine.GenerateCustomVoice(ctx, req.Text, req.Speaker, req.Language, req.Instruct)
	if err != nil {
		return err
	}
	elapsed := roundSeconds(time.Since(start))
	t.SetProgress(progressSynthesized)

	return s.persist(ctx, t, clip, model.GeneratedMeta{
		ID:                t.ID(),
		Filename:          t.ID() + ".wav",
		GeneratedText:     req.Text,
		CreatedAt:         nowStamp(),
		GenerationSeconds: elapsed,
	}, elapsed)
}

// runMultiSpeaker synthesizes every segment in order and persists the
// concatenation as one recording. Any missing segment reference aborts the
// whole task; partial output is never persisted.
func (s *Service) runMultiSpeaker(ctx context.Context, t *taskmanager.Task, segments []model.MultiSpeakerSegment) error {
	var (
		clips     []audio.Clip
		textParts []string
	)
	total := len(segments)
	start := time.Now()

	for i, seg := range segments {
		t.SetCurrentSegment(i + 1)
		t.SetProgress(i * progressSynthesized / total)

		if err := ctx.Err(); err != nil {
			return err
		}

		if seg.RefAudioID == "" {
			return fmt.Errorf("segment %d: missing ref_audio_id", i)
		}
		refAudio, err := s.storage.GetReferenceAudio(ctx, seg.RefAudioID)
		if err != nil {
			return fmt.Errorf("segment %d: reference audio not found", i)
		}

		clip, err := s.engine.GenerateClone(ctx, seg.Text, refAudio, seg.RefText, seg.Language)
		if err != nil {
			return err
		}
		clips = append(clips, clip)
		textParts = append(textParts, seg.Text)
	}

	elapsed := roundSeconds(time.Since(start))
	t.SetProgress(progressSynthesized)

	if len(clips) == 0 {
		return fmt.Errorf("no audio generated")
	}

	combined, err := audio.Concat(clips)
	if err != nil {
		return err
	}

	return s.persist(ctx, t, combined, model.GeneratedMeta{
		ID:                t.ID(),
		Filename:          t.ID() + ".wav",
		GeneratedText:     strings.Join(textParts, " "),
		CreatedAt:         nowStamp(),
		GenerationSeconds: elapsed,
	}, elapsed)
}

// persist is the final step of every body: one cancellation check, one
// storage write, then the terminal transition.
func (s *Service) persist(ctx context.Context, t *taskmanager.Task, clip audio.Clip, meta model.GeneratedMeta, elapsed float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	filename, err := s.storage.SaveGenerated(ctx, t.ID(), clip, meta)
	if err != nil {
		return fmt.Errorf("persisting generated audio: %w", err)
	}
	t.Complete(filename, elapsed)
	return nil
}

func nowStamp() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
