package conversation

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func newTestServer(t *testing.T) (*httptest.Server, *fixture) {
	t.Helper()
	f := newFixture(t)

	r := chi.NewRouter()
	h := NewHandler(f.svc, t.TempDir())
	r.Route("/api", func(r chi.Router) {
		RegisterRoutes(r, h)
	})
	r.Get("/audio/{name}", h.ServeAudio)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, f
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeMap(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return out
}

func createSession(t *testing.T, server *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, server.URL+"/api/session", map[string]string{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create session status %d", resp.StatusCode)
	}
	out := decodeMap(t, resp)
	if _, err := uuid.Parse(out["session_id"]); err != nil {
		t.Fatalf("session_id not a uuid: %q", out["session_id"])
	}
	return out["session_id"]
}

func TestChatRoundTrip(t *testing.T) {
	server, _ := newTestServer(t)
	id := createSession(t, server)

	resp := postJSON(t, server.URL+"/api/session/chat", map[string]string{
		"session_id": id,
		"text":       "hello",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status %d", resp.StatusCode)
	}
	out := decodeMap(t, resp)
	if out["response"] != "dispatched reply" {
		t.Fatalf("unexpected response: %q", out["response"])
	}
	if out["audio_url"] != "/audio/tts_x.mp3" {
		t.Fatalf("unexpected audio_url: %q", out["audio_url"])
	}
}

func TestChatUnknownSession(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/session/chat", map[string]string{
		"session_id": uuid.NewString(),
		"text":       "hello",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestChatInvalidSessionID(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/session/chat", map[string]string{
		"session_id": "not-a-uuid",
		"text":       "hello",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHistoryAfterChat(t *testing.T) {
	server, _ := newTestServer(t)
	id := createSession(t, server)
	postJSON(t, server.URL+"/api/session/chat", map[string]string{"session_id": id, "text": "hello"}).Body.Close()

	resp, err := http.Get(server.URL + "/api/session/history?session_id=" + id)
	if err != nil {
		t.Fatalf("GET history failed: %v", err)
	}
	defer resp.Body.Close()

	var out struct {
		Messages []Message `json:"messages"`
		Mode     string    `json:"mode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode history failed: %v", err)
	}
	if len(out.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out.Messages))
	}
	if out.Mode != "customer_service" {
		t.Fatalf("unexpected mode: %q", out.Mode)
	}
}

func TestModeSwitchAffectsDispatch(t *testing.T) {
	server, f := newTestServer(t)
	id := createSession(t, server)

	resp := postJSON(t, server.URL+"/api/session/mode", map[string]string{
		"session_id": id,
		"mode":       "lead_generation",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mode status %d", resp.StatusCode)
	}
	resp.Body.Close()

	postJSON(t, server.URL+"/api/session/chat", map[string]string{"session_id": id, "text": "hi"}).Body.Close()
	if !strings.Contains(f.dispatcher.gotPersona, "lead-gen assistant") {
		t.Fatalf("mode switch not threaded into dispatch: %q", f.dispatcher.gotPersona)
	}
}

func TestModeRejectsUnknown(t *testing.T) {
	server, _ := newTestServer(t)
	id := createSession(t, server)

	resp := postJSON(t, server.URL+"/api/session/mode", map[string]string{
		"session_id": id,
		"mode":       "pirate",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestResetClearsHistory(t *testing.T) {
	server, _ := newTestServer(t)
	id := createSession(t, server)
	postJSON(t, server.URL+"/api/session/chat", map[string]string{"session_id": id, "text": "hello"}).Body.Close()

	resp := postJSON(t, server.URL+"/api/session/reset", map[string]string{"session_id": id})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status %d", resp.StatusCode)
	}
	resp.Body.Close()

	histResp, err := http.Get(server.URL + "/api/session/history?session_id=" + id)
	if err != nil {
		t.Fatalf("GET history failed: %v", err)
	}
	defer histResp.Body.Close()
	var out struct {
		Messages []Message `json:"messages"`
	}
	if err := json.NewDecoder(histResp.Body).Decode(&out); err != nil {
		t.Fatalf("decode history failed: %v", err)
	}
	if len(out.Messages) != 0 {
		t.Fatalf("expected empty history, got %d", len(out.Messages))
	}
}

func TestAnalyzeEmptyIsBadRequest(t *testing.T) {
	server, _ := newTestServer(t)
	id := createSession(t, server)

	resp := postJSON(t, server.URL+"/api/session/analyze", map[string]string{"session_id": id})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty history, got %d", resp.StatusCode)
	}
}

func TestAnalyzeReturnsText(t *testing.T) {
	server, _ := newTestServer(t)
	id := createSession(t, server)
	postJSON(t, server.URL+"/api/session/chat", map[string]string{"session_id": id, "text": "hello"}).Body.Close()

	resp := postJSON(t, server.URL+"/api/session/analyze", map[string]string{"session_id": id})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("analyze status %d", resp.StatusCode)
	}
	out := decodeMap(t, resp)
	if out["analysis"] != "analysis text" {
		t.Fatalf("unexpected analysis: %q", out["analysis"])
	}
}

func TestAudioUploadRoundTrip(t *testing.T) {
	server, _ := newTestServer(t)
	id := createSession(t, server)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("session_id", id); err != nil {
		t.Fatalf("write field failed: %v", err)
	}
	part, err := writer.CreateFormFile("audio", "clip.webm")
	if err != nil {
		t.Fatalf("create form file failed: %v", err)
	}
	if _, err := part.Write([]byte("webm-bytes")); err != nil {
		t.Fatalf("write part failed: %v", err)
	}
	writer.Close()

	resp, err := http.Post(server.URL+"/api/session/audio", writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST audio failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("audio status %d", resp.StatusCode)
	}
	out := decodeMap(t, resp)
	if out["text"] != "spoken words" {
		t.Fatalf("unexpected transcript: %q", out["text"])
	}
	if out["response"] != "dispatched reply" {
		t.Fatalf("unexpected response: %q", out["response"])
	}
}

func TestAudioUploadConversionFailureIs422(t *testing.T) {
	server, f := newTestServer(t)
	f.converter.err = os.ErrPermission
	id := createSession(t, server)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("session_id", id)
	part, _ := writer.CreateFormFile("audio", "clip.webm")
	part.Write([]byte("x"))
	writer.Close()

	resp, err := http.Post(server.URL+"/api/session/audio", writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST audio failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestTTSEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/tts", map[string]string{"text": "say this"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tts status %d", resp.StatusCode)
	}
	out := decodeMap(t, resp)
	if out["audio_url"] != "/audio/tts_x.mp3" {
		t.Fatalf("unexpected audio_url: %q", out["audio_url"])
	}
}

func TestServeAudioSanitizesName(t *testing.T) {
	f := newFixture(t)
	audioDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(audioDir, "tts_ok.mp3"), []byte("mp3"), 0o644); err != nil {
		t.Fatalf("seed artifact failed: %v", err)
	}

	r := chi.NewRouter()
	h := NewHandler(f.svc, audioDir)
	r.Get("/audio/{name}", h.ServeAudio)
	server := httptest.NewServer(r)
	defer server.Close()

	resp, err := http.Get(server.URL + "/audio/tts_ok.mp3")
	if err != nil {
		t.Fatalf("GET artifact failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("artifact status %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/audio/..%2F..%2Fetc%2Fpasswd")
	if err != nil {
		t.Fatalf("GET traversal failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Fatalf("path traversal must not serve files")
	}
}
