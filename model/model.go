package model

// Languages the synthesis backend accepts. "auto" lets the backend detect
// the language from the input text.
var SupportedLanguages = []string{
	"auto",
	"Chinese",
	"English",
	"Japanese",
	"Korean",
	"German",
	"French",
	"Russian",
	"Portuguese",
	"Spanish",
	"Italian",
}

// Built-in speakers usable by the custom-voice endpoint.
var SupportedSpeakers = []string{
	"Vivian",
	"Serena",
	"Uncle_Fu",
	"Dylan",
	"Eric",
	"Ryan",
	"Aiden",
	"Ono_Anna",
	"Sohee",
}

// ReferenceMeta is the metadata sidecar stored next to a reference audio file.
type ReferenceMeta struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	Name         string `json:"name,omitempty"`
	RefText      string `json:"ref_text,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// GeneratedMeta is the metadata sidecar stored next to a generated audio file.
type GeneratedMeta struct {
	ID                string  `json:"id"`
	Filename          string  `json:"filename"`
	RefAudioID        string  `json:"ref_audio_id,omitempty"`
	RefAudioName      string  `json:"ref_audio_name,omitempty"`
	GeneratedText     string  `json:"generated_text"`
	CreatedAt         string  `json:"created_at"`
	GenerationSeconds float64 `json:"generation_time_seconds,omitempty"`
}

// CloneRequest is the payload for POST /clone.
type CloneRequest struct {
	Text       string `json:"text"`
	RefAudioID string `json:"ref_audio_id"`
	RefText    string `json:"ref_text,omitempty"`
	Language   string `json:"language,omitempty"`
}

// MultiSpeakerSegment is one segment of a multi-speaker request.
type MultiSpeakerSegment struct {
	Text       string `json:"text"`
	RefAudioID string `json:"ref_audio_id"`
	RefText    string `json:"ref_text,omitempty"`
	Language   string `json:"language,omitempty"`
}

// MultiSpeakerRequest is the payload for POST /clone-multi-speaker.
type MultiSpeakerRequest struct {
	Segments []MultiSpeakerSegment `json:"segments"`
}

// VoiceDesignRequest is the payload for POST /voice-design.
type VoiceDesignRequest struct {
	Text     string `json:"text"`
	Instruct string `json:"instruct"`
	Language string `json:"language,omitempty"`
}

// CustomVoiceRequest is the payload for POST /custom-voice.
type CustomVoiceRequest struct {
	Text     string `json:"text"`
	Speaker  string `json:"speaker"`
	Language string `json:"language,omitempty"`
	Instruct string `json:"instruct,omitempty"`
}

// RenameRequest is the payload for PUT /references/{id}/name.
type RenameRequest struct {
	Name string `json:"name"`
}

// GenerationResponse is the shared response for all generation endpoints.
type GenerationResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TaskStatusResponse is the response for GET /tasks/{id}.
type TaskStatusResponse struct {
	Status            string  `json:"status"`
	Progress          int     `json:"progress"`
	OutputPath        string  `json:"output_path,omitempty"`
	RefAudioID        string  `json:"ref_audio_id,omitempty"`
	GenerationSeconds float64 `json:"generation_time_seconds,omitempty"`
	Error             string  `json:"error,omitempty"`
	MultiSpeaker      bool    `json:"is_multi_speaker,omitempty"`
	TotalSegments     int     `json:"total_segments,omitempty"`
	CurrentSegment    int     `json:"current_segment,omitempty"`
}

// MessageResponse is the shared response for cancel, delete and similar
// acknowledgement-only endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// RenameResponse is the response for PUT /references/{id}/name.
type RenameResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status       string   `json:"status"`
	EngineReady  bool     `json:"engine_ready"`
	LoadedModels []string `json:"loaded_models"`
}

// CapabilitiesResponse is the response for GET /capabilities.
type CapabilitiesResponse struct {
	Models   []string `json:"models"`
	Speakers []string `json:"speakers"`
}

// LanguagesResponse is the response for GET /languages.
type LanguagesResponse struct {
	Languages []string `json:"languages"`
}
