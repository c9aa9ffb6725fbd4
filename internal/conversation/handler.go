package conversation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	svc      Service
	audioDir string
}

func NewHandler(svc Service, audioDir string) *Handler {
	return &Handler{svc: svc, audioDir: audioDir}
}

type CreateSessionRequest struct {
	Mode string `json:"mode"`
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type ModeRequest struct {
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
}

type TTSRequest struct {
	Text string `json:"text"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	persona := PersonaCustomerService
	if req.Mode != "" {
		p, err := ParsePersona(req.Mode)
		if err != nil {
			http.Error(w, "Invalid mode", http.StatusBadRequest)
			return
		}
		persona = p
	}

	s := h.svc.CreateSession(persona)
	json.NewEncoder(w).Encode(map[string]string{
		"session_id": s.ID.String(),
		"mode":       string(persona),
	})
}

// session resolves the id carried in a request body or query string,
// writing the error response itself when resolution fails.
func (h *Handler) session(w http.ResponseWriter, id string) (*Session, bool) {
	sid, err := uuid.Parse(id)
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return nil, false
	}
	s, ok := h.svc.GetSession(sid)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return s, true
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	s, ok := h.session(w, req.SessionID)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "Missing text", http.StatusBadRequest)
		return
	}

	reply, audioName := h.svc.ProcessText(r.Context(), s, req.Text)

	resp := map[string]string{"response": reply}
	if audioName != "" {
		resp["audio_url"] = "/audio/" + audioName
	}
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) HandleAudioUpload(w http.ResponseWriter, r *http.Request) {
	// Voice clips are short; 10MB is plenty.
	r.ParseMultipartForm(10 << 20)

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		http.Error(w, "Missing session_id", http.StatusBadRequest)
		return
	}
	s, ok := h.session(w, sessionID)
	if !ok {
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "Error retrieving audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		http.Error(w, "Failed to read audio file", http.StatusInternalServerError)
		return
	}

	ext := strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	if ext == "" {
		ext = "webm"
	}

	res, err := h.svc.ProcessAudio(r.Context(), s, buf.Bytes(), ext)
	if err != nil {
		var convErr *ConversionError
		if errors.As(err, &convErr) || errors.Is(err, ErrNoAudio) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "Processing failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := map[string]string{
		"text":     res.Transcript,
		"response": res.Reply,
	}
	if res.AudioName != "" {
		resp["audio_url"] = "/audio/" + res.AudioName
	}
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	s, ok := h.session(w, req.SessionID)
	if !ok {
		return
	}

	analysis, err := h.svc.Analyze(r.Context(), s)
	if err != nil {
		if errors.Is(err, ErrEmptyConversation) {
			http.Error(w, "Conversation history is empty, cannot perform analysis", http.StatusBadRequest)
			return
		}
		http.Error(w, "Analysis failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"analysis": analysis})
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	s, ok := h.session(w, req.SessionID)
	if !ok {
		return
	}

	s.Reset()
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) HandleMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	s, ok := h.session(w, req.SessionID)
	if !ok {
		return
	}

	p, err := ParsePersona(req.Mode)
	if err != nil {
		http.Error(w, "Invalid mode", http.StatusBadRequest)
		return
	}

	s.SetPersona(p)
	json.NewEncoder(w).Encode(map[string]string{"mode": string(p)})
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r.URL.Query().Get("session_id"))
	if !ok {
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"messages": s.History(),
		"mode":     string(s.Persona()),
	})
}

func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r.URL.Query().Get("session_id"))
	if !ok {
		return
	}

	pdf, err := h.svc.Report(r.Context(), s)
	if err != nil {
		if errors.Is(err, ErrEmptyConversation) {
			http.Error(w, "Conversation history is empty, cannot build a report", http.StatusBadRequest)
			return
		}
		http.Error(w, "Report failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report_%s.pdf"`, s.ID))
	w.Write(pdf)
}

func (h *Handler) HandleTTS(w http.ResponseWriter, r *http.Request) {
	var req TTSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "Missing text", http.StatusBadRequest)
		return
	}

	name, err := h.svc.Synthesize(r.Context(), req.Text)
	if err != nil {
		http.Error(w, "TTS failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"audio_url": "/audio/" + name})
}

// ServeAudio serves one synthesized or converted artifact by base name.
func (h *Handler) ServeAudio(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(chi.URLParam(r, "name"))
	if name == "." || name == "/" {
		http.Error(w, "Invalid artifact name", http.StatusBadRequest)
		return
	}
	http.ServeFile(w, r, filepath.Join(h.audioDir, name))
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/session", h.CreateSession)
	r.Post("/session/chat", h.HandleChat)
	r.Post("/session/audio", h.HandleAudioUpload)
	r.Post("/session/analyze", h.HandleAnalyze)
	r.Post("/session/reset", h.HandleReset)
	r.Post("/session/mode", h.HandleMode)
	r.Get("/session/history", h.HandleHistory)
	r.Get("/session/report", h.HandleReport)
	r.Post("/tts", h.HandleTTS)
}
