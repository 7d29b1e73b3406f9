package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qvox/qvox-server/internal/cache/freecache"
	"github.com/qvox/qvox-server/internal/config"
	"github.com/qvox/qvox-server/internal/engine"
	"github.com/qvox/qvox-server/internal/service/logger"
	"github.com/qvox/qvox-server/internal/storage/fs"
	"github.com/qvox/qvox-server/internal/synth/dev"
	taskmanager "github.com/qvox/qvox-server/internal/task_manager"
	"github.com/qvox/qvox-server/model"
)

func TestMain(m *testing.M) {
	logger.Init("web_test")
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := fs.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	e := engine.New(dev.NewSynthesizer(), []string{
		engine.VariantBase, engine.VariantVoiceDesign, engine.VariantCustomVoice,
	}, "1.7B")
	c := freecache.NewFreeCache(1024*1024, 60)
	tm := taskmanager.NewManager()

	srv := NewServer(e, store, c, tm, &config.WebConfig{
		GEN_QUEUE_SIZE:   16,
		GEN_MAX_INFLIGHT: 4,
	})

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		tm.CancelAll()
	})
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func uploadReference(t *testing.T, ts *httptest.Server, filename, refText string) model.ReferenceMeta {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake-reference-audio"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("ref_text", refText))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/upload-reference", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeJSON[model.ReferenceMeta](t, resp)
}

func pollUntilTerminal(t *testing.T, ts *httptest.Server, taskID string) model.TaskStatusResponse {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.URL + "/tasks/" + taskID)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		status := decodeJSON[model.TaskStatusResponse](t, resp)
		if status.Status != "running" {
			return status
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal status", taskID)
	return model.TaskStatusResponse{}
}

func TestCloneEndToEnd(t *testing.T) {
	ts := newTestServer(t)

	ref := uploadReference(t, ts, "narrator.wav", "hello")
	require.NotEmpty(t, ref.ID)
	require.Equal(t, "narrator.wav", ref.OriginalName)

	resp := postJSON(t, ts, "/clone", model.CloneRequest{
		Text:       "it was a dark and stormy night",
		RefAudioID: ref.ID,
		Language:   "English",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	gen := decodeJSON[model.GenerationResponse](t, resp)
	require.NotEmpty(t, gen.TaskID)
	require.Equal(t, "running", gen.Status)

	status := pollUntilTerminal(t, ts, gen.TaskID)
	require.Equal(t, "completed", status.Status)
	require.Equal(t, 100, status.Progress)
	require.Equal(t, gen.TaskID+".wav", status.OutputPath)
	require.Equal(t, ref.ID, status.RefAudioID)

	// Audio downloads twice: once from storage, once from cache.
	for i := 0; i < 2; i++ {
		resp, err := http.Get(ts.URL + "/tasks/" + gen.TaskID + "/audio")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		require.Equal(t, "RIFF", string(data[:4]))
	}

	resp2, err := http.Get(ts.URL + "/generated")
	require.NoError(t, err)
	list := decodeJSON[[]model.GeneratedMeta](t, resp2)
	require.Len(t, list, 1)
	require.Equal(t, gen.TaskID, list[0].ID)
}

func TestCloneWithUpload(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "speaker.wav")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake-audio"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("text", "hello from upload"))
	require.NoError(t, mw.WriteField("ref_text", "transcript"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/clone-with-upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	gen := decodeJSON[model.GenerationResponse](t, resp)

	status := pollUntilTerminal(t, ts, gen.TaskID)
	require.Equal(t, "completed", status.Status)

	resp2, err := http.Get(ts.URL + "/references")
	require.NoError(t, err)
	refs := decodeJSON[[]model.ReferenceMeta](t, resp2)
	require.Len(t, refs, 1)
	require.Equal(t, "speaker.wav", refs[0].OriginalName)
}

func TestCloneWithUploadEmptyFile(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_, err := mw.CreateFormFile("file", "empty.wav")
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("text", "hello"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/clone-with-upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCloneUnknownReference(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/clone", model.CloneRequest{
		Text:       "hello",
		RefAudioID: "does-not-exist",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), "reference audio not found")
}

func TestCloneValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		req  model.CloneRequest
	}{
		{"missing text", model.CloneRequest{RefAudioID: "x"}},
		{"missing ref_audio_id", model.CloneRequest{Text: "hello"}},
		{"text too long", model.CloneRequest{Text: strings.Repeat("a", 10001), RefAudioID: "x"}},
		{"bad language", model.CloneRequest{Text: "hello", RefAudioID: "x", Language: "Klingon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts, "/clone", tt.req)
			defer resp.Body.Close()
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestVoiceDesignValidation(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/voice-design", model.VoiceDesignRequest{Text: "hello"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts, "/voice-design", model.VoiceDesignRequest{
		Text:     "hello",
		Instruct: strings.Repeat("a", 1001),
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCustomVoiceUnknownSpeaker(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/custom-voice", model.CustomVoiceRequest{
		Text:    "hello",
		Speaker: "Nobody",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCustomVoiceEndToEnd(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/custom-voice", model.CustomVoiceRequest{
		Text:    "good evening everyone",
		Speaker: "Serena",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	gen := decodeJSON[model.GenerationResponse](t, resp)

	status := pollUntilTerminal(t, ts, gen.TaskID)
	require.Equal(t, "completed", status.Status)
}

func TestMultiSpeakerEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	ref1 := uploadReference(t, ts, "alice.wav", "")
	ref2 := uploadReference(t, ts, "bob.wav", "")

	resp := postJSON(t, ts, "/clone-multi-speaker", model.MultiSpeakerRequest{
		Segments: []model.MultiSpeakerSegment{
			{Text: "hi bob", RefAudioID: ref1.ID},
			{Text: "hi alice", RefAudioID: ref2.ID},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	gen := decodeJSON[model.GenerationResponse](t, resp)

	status := pollUntilTerminal(t, ts, gen.TaskID)
	require.Equal(t, "completed", status.Status)
	require.True(t, status.MultiSpeaker)
	require.Equal(t, 2, status.TotalSegments)
}

func TestMultiSpeakerEmptySegments(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/clone-multi-speaker", model.MultiSpeakerRequest{})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTaskNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/tasks/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp2, err := http.Post(ts.URL+"/tasks/nope/cancel", "application/json", nil)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestTaskAudioBeforeCompletion(t *testing.T) {
	ts := newTestServer(t)
	ref := uploadReference(t, ts, "a.wav", "")

	resp := postJSON(t, ts, "/clone", model.CloneRequest{Text: "hello", RefAudioID: ref.ID})
	gen := decodeJSON[model.GenerationResponse](t, resp)

	// The task may already be done; only a non-terminal task yields 400.
	audioResp, err := http.Get(ts.URL + "/tasks/" + gen.TaskID + "/audio")
	require.NoError(t, err)
	defer audioResp.Body.Close()
	require.Contains(t, []int{http.StatusOK, http.StatusBadRequest}, audioResp.StatusCode)

	pollUntilTerminal(t, ts, gen.TaskID)
	okResp, err := http.Get(ts.URL + "/tasks/" + gen.TaskID + "/audio")
	require.NoError(t, err)
	defer okResp.Body.Close()
	require.Equal(t, http.StatusOK, okResp.StatusCode)
}

func TestTaskCancel(t *testing.T) {
	ts := newTestServer(t)
	ref := uploadReference(t, ts, "a.wav", "")

	resp := postJSON(t, ts, "/clone", model.CloneRequest{Text: "hello", RefAudioID: ref.ID})
	gen := decodeJSON[model.GenerationResponse](t, resp)

	cancelResp, err := http.Post(ts.URL+"/tasks/"+gen.TaskID+"/cancel", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, cancelResp.StatusCode)
	msg := decodeJSON[model.MessageResponse](t, cancelResp)
	require.Equal(t, "Task cancelled successfully", msg.Message)

	status := pollUntilTerminal(t, ts, gen.TaskID)
	require.Contains(t, []string{"cancelled", "completed"}, status.Status)
}

func TestReferenceLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ref := uploadReference(t, ts, "voice.wav", "some text")

	audioResp, err := http.Get(ts.URL + "/references/" + ref.ID + "/audio")
	require.NoError(t, err)
	data, err := io.ReadAll(audioResp.Body)
	audioResp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, audioResp.StatusCode)
	require.Equal(t, []byte("fake-reference-audio"), data)

	renameBody, _ := json.Marshal(model.RenameRequest{Name: "studio"})
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/references/"+ref.ID+"/name", bytes.NewReader(renameBody))
	require.NoError(t, err)
	renameResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, renameResp.StatusCode)
	renamed := decodeJSON[model.RenameResponse](t, renameResp)
	require.Equal(t, "studio", renamed.Name)

	delReq, err := http.NewRequest(http.MethodDelete, ts.URL+"/references/"+ref.ID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(delReq)
	require.NoError(t, err)
	delResp.Body.Close()
	require.Equal(t, http.StatusOK, delResp.StatusCode)

	// Deletion invalidates the cached audio too.
	goneResp, err := http.Get(ts.URL + "/references/" + ref.ID + "/audio")
	require.NoError(t, err)
	goneResp.Body.Close()
	require.Equal(t, http.StatusNotFound, goneResp.StatusCode)

	listResp, err := http.Get(ts.URL + "/references")
	require.NoError(t, err)
	refs := decodeJSON[[]model.ReferenceMeta](t, listResp)
	require.Empty(t, refs)
}

func TestRenameUnknownReference(t *testing.T) {
	ts := newTestServer(t)

	body, _ := json.Marshal(model.RenameRequest{Name: "x"})
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/references/nope/name", bytes.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteGenerated(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/voice-design", model.VoiceDesignRequest{
		Text:     "hello",
		Instruct: "bright voice",
	})
	gen := decodeJSON[model.GenerationResponse](t, resp)
	pollUntilTerminal(t, ts, gen.TaskID)

	delReq, err := http.NewRequest(http.MethodDelete, ts.URL+"/generated/"+gen.TaskID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(delReq)
	require.NoError(t, err)
	delResp.Body.Close()
	require.Equal(t, http.StatusOK, delResp.StatusCode)

	delAgain, err := http.NewRequest(http.MethodDelete, ts.URL+"/generated/"+gen.TaskID, nil)
	require.NoError(t, err)
	againResp, err := http.DefaultClient.Do(delAgain)
	require.NoError(t, err)
	againResp.Body.Close()
	require.Equal(t, http.StatusNotFound, againResp.StatusCode)

	listResp, err := http.Get(ts.URL + "/generated")
	require.NoError(t, err)
	list := decodeJSON[[]model.GeneratedMeta](t, listResp)
	require.Empty(t, list)
}

func TestHealthAndCapabilities(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	health := decodeJSON[model.HealthResponse](t, resp)
	require.Equal(t, "healthy", health.Status)
	require.True(t, health.EngineReady)
	require.Contains(t, health.LoadedModels, engine.VariantBase)

	resp2, err := http.Get(ts.URL + "/capabilities")
	require.NoError(t, err)
	caps := decodeJSON[model.CapabilitiesResponse](t, resp2)
	require.Contains(t, caps.Models, engine.VariantVoiceDesign)
	require.Contains(t, caps.Speakers, "Ryan")

	resp3, err := http.Get(ts.URL + "/languages")
	require.NoError(t, err)
	langs := decodeJSON[model.LanguagesResponse](t, resp3)
	require.Contains(t, langs.Languages, "auto")
	require.Contains(t, langs.Languages, "Japanese")
}

func TestInvalidJSONBody(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/clone", "application/json", strings.NewReader("{broken"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
