package audio

import (
	"bytes"
	"fmt"
	"io"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Clip is a mono float32 PCM buffer produced by the synthesis engine.
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Seconds returns the clip duration in seconds.
func (c Clip) Seconds() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Concat joins clips in order. The first clip's sample rate is used for the
// combined clip.
func Concat(clips []Clip) (Clip, error) {
	if len(clips) == 0 {
		return Clip{}, fmt.Errorf("no clips to concatenate")
	}

	total := 0
	for _, c := range clips {
		total += len(c.Samples)
	}

	out := Clip{
		Samples:    make([]float32, 0, total),
		SampleRate: clips[0].SampleRate,
	}
	for _, c := range clips {
		out.Samples = append(out.Samples, c.Samples...)
	}
	return out, nil
}

// EncodeWAV serializes a clip as 16-bit PCM WAV.
func EncodeWAV(c Clip) ([]byte, error) {
	if c.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", c.SampleRate)
	}

	ws := &seekBuffer{}
	enc := wav.NewEncoder(ws, c.SampleRate, 16, 1, 1)

	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: c.SampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(c.Samples)),
	}
	for i, s := range c.Samples {
		buf.Data[i] = int(clamp(s) * 32767)
	}

	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("wav encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("wav finalize: %w", err)
	}
	return ws.data, nil
}

// DecodeWAV parses a WAV file back into a clip.
func DecodeWAV(data []byte) (Clip, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return Clip{}, fmt.Errorf("not a valid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("wav decode: %w", err)
	}

	c := Clip{
		Samples:    make([]float32, len(buf.Data)),
		SampleRate: buf.Format.SampleRate,
	}
	for i, s := range buf.Data {
		c.Samples[i] = float32(s) / 32768
	}
	return c, nil
}

func clamp(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

// seekBuffer is an in-memory io.WriteSeeker for the wav encoder, which
// rewinds to patch chunk sizes on Close.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if b.pos+len(p) > len(b.data) {
		grown := make([]byte, b.pos+len(p))
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(b.pos) + offset
	case io.SeekEnd:
		pos = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("negative seek position: %d", pos)
	}
	b.pos = int(pos)
	return pos, nil
}
