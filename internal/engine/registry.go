package engine

import "fmt"

// Model variants the engine can load. Each variant is a differently
// fine-tuned checkpoint of the same synthesis model.
const (
	VariantBase        = "base"
	VariantVoiceDesign = "voice_design"
	VariantCustomVoice = "custom_voice"
)

// modelRegistry maps model size -> variant -> backend checkpoint name.
// The voice-design checkpoint ships only in the 1.7B size.
var modelRegistry = map[string]map[string]string{
	"1.7B": {
		VariantBase:        "Qwen/Qwen3-TTS-12Hz-1.7B-Base",
		VariantVoiceDesign: "Qwen/Qwen3-TTS-12Hz-1.7B-VoiceDesign",
		VariantCustomVoice: "Qwen/Qwen3-TTS-12Hz-1.7B-CustomVoice",
	},
	"0.6B": {
		VariantBase:        "Qwen/Qwen3-TTS-12Hz-0.6B-Base",
		VariantVoiceDesign: "Qwen/Qwen3-TTS-12Hz-1.7B-VoiceDesign",
		VariantCustomVoice: "Qwen/Qwen3-TTS-12Hz-0.6B-CustomVoice",
	},
}

// ResolveModelName maps a variant and size to the backend checkpoint name.
func ResolveModelName(variant, size string) (string, error) {
	sizeMap, ok := modelRegistry[size]
	if !ok {
		return "", fmt.Errorf("%w: unknown model size %q", ErrUnknownModel, size)
	}
	name, ok := sizeMap[variant]
	if !ok {
		return "", fmt.Errorf("%w: unknown model variant %q", ErrUnknownModel, variant)
	}
	return name, nil
}
