package web

import (
	"fmt"
	"slices"

	"github.com/qvox/qvox-server/model"
)

// Validation limits, matching what clients are told in the API docs.
const (
	maxTextLen     = 10000
	maxRefTextLen  = 10000
	maxInstructLen = 1000
	maxRefIDLen    = 200
	maxNameLen     = 200
	maxSegments    = 100
)

func validateText(text string) error {
	if text == "" {
		return fmt.Errorf("text is required")
	}
	if len(text) > maxTextLen {
		return fmt.Errorf("text exceeds maximum length of %d", maxTextLen)
	}
	return nil
}

func validateRefAudioID(id string) error {
	if id == "" {
		return fmt.Errorf("ref_audio_id is required")
	}
	if len(id) > maxRefIDLen {
		return fmt.Errorf("ref_audio_id exceeds maximum length of %d", maxRefIDLen)
	}
	return nil
}

// normalizeLanguage defaults empty to "auto" and rejects anything outside
// the supported set.
func normalizeLanguage(lang string) (string, error) {
	if lang == "" {
		return "auto", nil
	}
	if !slices.Contains(model.SupportedLanguages, lang) {
		return "", fmt.Errorf("unsupported language: %s", lang)
	}
	return lang, nil
}

func validateSpeaker(speaker string) error {
	if speaker == "" {
		return fmt.Errorf("speaker is required")
	}
	if !slices.Contains(model.SupportedSpeakers, speaker) {
		return fmt.Errorf("unsupported speaker: %s", speaker)
	}
	return nil
}

func validateCloneRequest(req *model.CloneRequest) error {
	if err := validateText(req.Text); err != nil {
		return err
	}
	if err := validateRefAudioID(req.RefAudioID); err != nil {
		return err
	}
	if len(req.RefText) > maxRefTextLen {
		return fmt.Errorf("ref_text exceeds maximum length of %d", maxRefTextLen)
	}
	lang, err := normalizeLanguage(req.Language)
	if err != nil {
		return err
	}
	req.Language = lang
	return nil
}

func validateMultiSpeakerRequest(req *model.MultiSpeakerRequest) error {
	if len(req.Segments) == 0 {
		return fmt.Errorf("segments must not be empty")
	}
	if len(req.Segments) > maxSegments {
		return fmt.Errorf("segments exceed maximum of %d", maxSegments)
	}
	for i := range req.Segments {
		seg := &req.Segments[i]
		if err := validateText(seg.Text); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		if err := validateRefAudioID(seg.RefAudioID); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		lang, err := normalizeLanguage(seg.Language)
		if err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		seg.Language = lang
	}
	return nil
}

func validateVoiceDesignRequest(req *model.VoiceDesignRequest) error {
	if err := validateText(req.Text); err != nil {
		return err
	}
	if req.Instruct == "" {
		return fmt.Errorf("instruct is required")
	}
	if len(req.Instruct) > maxInstructLen {
		return fmt.Errorf("instruct exceeds maximum length of %d", maxInstructLen)
	}
	lang, err := normalizeLanguage(req.Language)
	if err != nil {
		return err
	}
	req.Language = lang
	return nil
}

func validateCustomVoiceRequest(req *model.CustomVoiceRequest) error {
	if err := validateText(req.Text); err != nil {
		return err
	}
	if err := validateSpeaker(req.Speaker); err != nil {
		return err
	}
	if len(req.Instruct) > maxInstructLen {
		return fmt.Errorf("instruct exceeds maximum length of %d", maxInstructLen)
	}
	lang, err := normalizeLanguage(req.Language)
	if err != nil {
		return err
	}
	req.Language = lang
	return nil
}
