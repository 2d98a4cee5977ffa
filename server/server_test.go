package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebridge/core"
	"voicebridge/dialogue"
)

type fakeChat struct {
	reply string
	err   error
}

func (f *fakeChat) Complete(_ context.Context, _ []core.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeSTT struct {
	text        string
	err         error
	gotFilename string
	gotAudio    []byte
}

func (f *fakeSTT) Transcribe(_ context.Context, audio []byte, filename string) (string, error) {
	f.gotAudio = audio
	f.gotFilename = filename
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeTTS struct {
	audio   []byte
	err     error
	gotText []string
}

func (f *fakeTTS) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.gotText = append(f.gotText, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

type testEnv struct {
	server *Server
	store  *dialogue.ConversationStore
	chat   *fakeChat
	stt    *fakeSTT
	tts    *fakeTTS
}

func newTestEnv() *testEnv {
	chat := &fakeChat{reply: "canned reply"}
	sttSvc := &fakeSTT{text: "transcribed"}
	ttsSvc := &fakeTTS{audio: []byte("mp3-bytes")}
	store := dialogue.NewConversationStore("system prompt")
	orch := dialogue.NewOrchestrator(store, chat, 10)
	return &testEnv{
		server: NewServer(orch, store, sttSvc, ttsSvc),
		store:  store,
		chat:   chat,
		stt:    sttSvc,
		tts:    ttsSvc,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	env := newTestEnv()

	w := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"ok": true}, decodeJSON(t, w))
}

func TestChat_UnknownSessionCreatedOnDemand(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"session_id":"never-seen","text":"hello"}`))
	req.Header.Set("Content-Type", "application/json")

	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code, "unknown session must never 404")
	assert.Equal(t, "canned reply", decodeJSON(t, w)["reply"])

	history, ok := env.store.History("never-seen")
	require.True(t, ok)
	assert.Len(t, history, 3)
}

func TestChat_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"session_id":`},
		{name: "missing session_id", body: `{"text":"hello"}`},
		{name: "empty text", body: `{"session_id":"s1","text":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := env.do(req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeJSON(t, w)
			assert.Equal(t, "validation_error", body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestChat_UpstreamFailure(t *testing.T) {
	env := newTestEnv()
	env.chat.err = &core.UpstreamError{Service: "chat", Err: errors.New("timeout")}

	req := httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"session_id":"s1","text":"hello"}`))
	req.Header.Set("Content-Type", "application/json")

	w := env.do(req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "server_error", decodeJSON(t, w)["error"])

	// A failed turn persists nothing beyond the seeded system message.
	history, ok := env.store.History("s1")
	require.True(t, ok)
	assert.Len(t, history, 1)
}

func multipartBody(t *testing.T, fields map[string]string, fileField, filename string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestSTT(t *testing.T) {
	env := newTestEnv()

	body, contentType := multipartBody(t, nil, "file", "clip.webm", []byte("opus-audio"))
	req := httptest.NewRequest(http.MethodPost, "/stt", body)
	req.Header.Set("Content-Type", contentType)

	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "transcribed", decodeJSON(t, w)["text"])
	assert.Equal(t, "clip.webm", env.stt.gotFilename)
	assert.Equal(t, []byte("opus-audio"), env.stt.gotAudio)
}

func TestSTT_MissingFile(t *testing.T) {
	env := newTestEnv()

	body, contentType := multipartBody(t, map[string]string{"note": "no file"}, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/stt", body)
	req.Header.Set("Content-Type", contentType)

	w := env.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decodeJSON(t, w)["error"])
}

func TestSTT_UpstreamFailure(t *testing.T) {
	env := newTestEnv()
	env.stt.err = &core.UpstreamError{Service: "stt", Err: errors.New("bad gateway")}

	body, contentType := multipartBody(t, nil, "file", "clip.webm", []byte("audio"))
	req := httptest.NewRequest(http.MethodPost, "/stt", body)
	req.Header.Set("Content-Type", contentType)

	w := env.do(req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "stt_error", decodeJSON(t, w)["error"])
}

func TestSTT_TelephoneEncodingNormalizedToWAV(t *testing.T) {
	env := newTestEnv()

	ulaw := bytes.Repeat([]byte{0xFF}, 160)
	body, contentType := multipartBody(t, map[string]string{"encoding": "pcmu"}, "file", "frame.raw", ulaw)
	req := httptest.NewRequest(http.MethodPost, "/stt", body)
	req.Header.Set("Content-Type", contentType)

	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio.wav", env.stt.gotFilename)
	assert.True(t, bytes.HasPrefix(env.stt.gotAudio, []byte("RIFF")))
}

func TestSTT_UnknownEncodingRejected(t *testing.T) {
	env := newTestEnv()

	body, contentType := multipartBody(t, map[string]string{"encoding": "gsm"}, "file", "frame.raw", []byte{1, 2})
	req := httptest.NewRequest(http.MethodPost, "/stt", body)
	req.Header.Set("Content-Type", contentType)

	w := env.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decodeJSON(t, w)["error"])
}

func TestTTS(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest(http.MethodPost, "/tts",
		strings.NewReader("text=hello+there"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, []byte("mp3-bytes"), w.Body.Bytes())
	assert.Equal(t, []string{"hello there"}, env.tts.gotText)
}

func TestTTS_EmptyTextIsForwardedOpaquely(t *testing.T) {
	// Pinned behavior: empty text is not special-cased here; it goes to the
	// synthesis service as-is and its verdict (audio or error) is passed
	// through.
	env := newTestEnv()

	req := httptest.NewRequest(http.MethodPost, "/tts", strings.NewReader("text="))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{""}, env.tts.gotText)

	env.tts.err = &core.UpstreamError{Service: "tts", Err: errors.New("empty input")}
	req = httptest.NewRequest(http.MethodPost, "/tts", strings.NewReader("text="))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = env.do(req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "tts_error", decodeJSON(t, w)["error"])
}

func TestTTS_UpstreamFailure(t *testing.T) {
	env := newTestEnv()
	env.tts.err = &core.UpstreamError{Service: "tts", Err: errors.New("voice not found")}

	req := httptest.NewRequest(http.MethodPost, "/tts", strings.NewReader("text=hi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := env.do(req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "tts_error", decodeJSON(t, w)["error"])
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv()

	w := env.do(httptest.NewRequest(http.MethodOptions, "/chat", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
