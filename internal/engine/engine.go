package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/qvox/qvox-server/internal/audio"
	"github.com/qvox/qvox-server/internal/service/logger"
	"github.com/qvox/qvox-server/internal/telemetry"
)

var (
	// ErrUnknownModel is returned when a variant is outside the configured set.
	ErrUnknownModel = errors.New("unknown model")
	// ErrModelUnavailable is returned when loading a checkpoint fails.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrSynthesisFailed wraps errors from the loaded model's synthesis call.
	ErrSynthesisFailed = errors.New("synthesis failed")
)

// SynthesisInput is the request handed to a loaded model.
type SynthesisInput struct {
	Text     string
	RefAudio []byte // reference recording, clone variant only
	RefText  string
	Language string // empty or "auto" lets the backend detect
	Speaker  string
	Instruct string
}

// Model is one loaded checkpoint. Close releases its device memory.
type Model interface {
	Synthesize(ctx context.Context, in SynthesisInput) (audio.Clip, error)
	Close() error
}

// Synthesizer is the compute backend that materializes checkpoints.
type Synthesizer interface {
	Load(ctx context.Context, modelName string) (Model, error)
}

// Engine owns the single synthesis model slot. At most one variant is loaded
// at a time; requesting a different variant unloads the current one before
// loading the new one. A mutex serializes the swap and the synthesis call,
// so concurrent generation tasks queue here.
type Engine struct {
	backend  Synthesizer
	variants []string
	size     string

	mu      sync.Mutex
	current string
	model   Model
}

// New builds an engine restricted to the given variants. Nothing is loaded
// until the first generation call.
func New(backend Synthesizer, variants []string, size string) *Engine {
	return &Engine{
		backend:  backend,
		variants: slices.Clone(variants),
		size:     size,
	}
}

// Variants returns the configured variant set.
func (e *Engine) Variants() []string {
	return slices.Clone(e.variants)
}

// ActiveVariant returns the currently loaded variant, or "" when none is.
func (e *Engine) ActiveVariant() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// GenerateClone synthesizes text in the voice of the reference recording.
func (e *Engine) GenerateClone(ctx context.Context, text string, refAudio []byte, refText, language string) (audio.Clip, error) {
	return e.generate(ctx, VariantBase, SynthesisInput{
		Text:     text,
		RefAudio: refAudio,
		RefText:  refText,
		Language: language,
	})
}

// GenerateVoiceDesign synthesizes text in a voice described by instruct.
func (e *Engine) GenerateVoiceDesign(ctx context.Context, text, instruct, language string) (audio.Clip, error) {
	return e.generate(ctx, VariantVoiceDesign, SynthesisInput{
		Text:     text,
		Instruct: instruct,
		Language: language,
	})
}

// GenerateCustomVoice synthesizes text with one of the built-in speakers.
func (e *Engine) GenerateCustomVoice(ctx context.Context, text, speaker, language, instruct string) (audio.Clip, error) {
	return e.generate(ctx, VariantCustomVoice, SynthesisInput{
		Text:     text,
		Speaker:  speaker,
		Language: language,
		Instruct: instruct,
	})
}

func (e *Engine) generate(ctx context.Context, variant string, in SynthesisInput) (audio.Clip, error) {
	tracer := telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "Engine/Generate")
	defer span.End()

	if !slices.Contains(e.variants, variant) {
		err := fmt.Errorf("%w: variant %q not configured (configured: %v)", ErrUnknownModel, variant, e.variants)
		telemetry.RecordSpanError(span, err)
		return audio.Clip{}, err
	}

	// The lock covers the swap and the synthesis itself. The model handle
	// never leaves this critical section.
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.ensureModel(ctx, variant)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return audio.Clip{}, err
	}

	clip, err := m.Synthesize(ctx, in)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
		telemetry.RecordSpanError(span, err)
		return audio.Clip{}, err
	}
	return clip, nil
}

// ensureModel loads variant into the slot, swapping out whatever is loaded.
// A load that matches the active variant is free. Must hold e.mu.
func (e *Engine) ensureModel(ctx context.Context, variant string) (Model, error) {
	if e.current == variant && e.model != nil {
		return e.model, nil
	}

	if e.model != nil {
		logger.Log.Info().Str("variant", e.current).Msg("unloading model")
		if err := e.model.Close(); err != nil {
			logger.Log.Error().Err(err).Str("variant", e.current).Msg("model unload failed")
		}
		e.model = nil
		e.current = ""
	}

	name, err := ResolveModelName(variant, e.size)
	if err != nil {
		return nil, err
	}

	logger.Log.Info().Str("variant", variant).Str("model", name).Msg("loading model")
	m, err := e.backend.Load(ctx, name)
	if err != nil {
		// The slot stays empty so the next caller retries the load instead
		// of trusting stale state.
		return nil, fmt.Errorf("%w: loading %s: %v", ErrModelUnavailable, name, err)
	}

	e.model = m
	e.current = variant
	return m, nil
}
