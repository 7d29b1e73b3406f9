// Package dev provides a synthesis backend that fabricates deterministic
// tone audio instead of running a real model. It keeps the server fully
// functional on machines without the model runtime and is the backend the
// tests run against.
package dev

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/qvox/qvox-server/internal/audio"
	"github.com/qvox/qvox-server/internal/engine"
)

const (
	sampleRate     = 24000
	secondsPerRune = 0.075
	minSeconds     = 0.2
)

type synthesizer struct{}

// NewSynthesizer returns the development backend.
func NewSynthesizer() engine.Synthesizer {
	return synthesizer{}
}

func (synthesizer) Load(ctx context.Context, modelName string) (engine.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &devModel{name: modelName}, nil
}

type devModel struct {
	name string
}

// Synthesize produces a sine tone whose length tracks the input text and
// whose pitch is derived from the model, speaker and instruct, so distinct
// requests yield distinct audio.
func (m *devModel) Synthesize(ctx context.Context, in engine.SynthesisInput) (audio.Clip, error) {
	if err := ctx.Err(); err != nil {
		return audio.Clip{}, err
	}

	seconds := float64(len([]rune(in.Text))) * secondsPerRune
	if seconds < minSeconds {
		seconds = minSeconds
	}

	h := fnv.New32a()
	h.Write([]byte(m.name))
	h.Write([]byte(in.Speaker))
	h.Write([]byte(in.Instruct))
	freq := 220 + float64(h.Sum32()%660)

	n := int(seconds * sampleRate)
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.3 * float32(math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
	}

	return audio.Clip{Samples: samples, SampleRate: sampleRate}, nil
}

func (m *devModel) Close() error {
	return nil
}
