package conversation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	log "log/slog"
)

// Converted captures below this size carry no usable speech.
const minWAVBytes = 2000

// Dispatcher turns one utterance plus history into one reply. It never
// fails; every error becomes reply text.
type Dispatcher interface {
	RunStep(ctx context.Context, personaPrompt string, history []Message, utterance string) string
}

// TextClient is the raw completion boundary, used here for the analysis
// step only. The dispatcher owns its own calls.
type TextClient interface {
	Complete(ctx context.Context, system string, history []Message, user string, temperature float64, maxTokens int64) (string, error)
}

// Transcriber converts WAV bytes into text, empty when nothing was heard.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Synthesizer renders reply text into an audio artifact and returns its
// file name.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// AudioConverter normalizes an uploaded recording into mono WAV.
type AudioConverter interface {
	ToWAV(ctx context.Context, inputPath string) (string, error)
}

// Reporter renders an analysis plus transcript into a downloadable
// document.
type Reporter interface {
	Render(analysis string, history []Message) ([]byte, error)
}

// ErrEmptyConversation is returned when analysis is requested before any
// messages exist.
var ErrEmptyConversation = errors.New("conversation history is empty")

// ErrNoAudio marks uploads whose converted form is too small to contain
// speech.
var ErrNoAudio = errors.New("no audio captured (file too small)")

// ConversionError marks a failure in the external conversion step, as
// opposed to a fault inside this service.
type ConversionError struct {
	Err error
}

func (e *ConversionError) Error() string {
	return "audio conversion failed: " + e.Err.Error()
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

const analysisTemplate = `Analyze the following conversation and extract:
1. Customer's main issues
2. Customer's emotional state
3. Key info points
4. Suggested follow-up actions

`

type Service interface {
	CreateSession(p Persona) *Session
	GetSession(id uuid.UUID) (*Session, bool)
	ProcessText(ctx context.Context, sess *Session, text string) (string, string)
	ProcessAudio(ctx context.Context, sess *Session, upload []byte, ext string) (*AudioResult, error)
	Analyze(ctx context.Context, sess *Session) (string, error)
	Report(ctx context.Context, sess *Session) ([]byte, error)
	Synthesize(ctx context.Context, text string) (string, error)
}

type service struct {
	sessions   *Sessions
	dispatcher Dispatcher
	llm        TextClient
	stt        Transcriber
	tts        Synthesizer
	converter  AudioConverter
	reporter   Reporter
	audioDir   string
}

func NewService(sessions *Sessions, dispatcher Dispatcher, llm TextClient, stt Transcriber, tts Synthesizer, converter AudioConverter, reporter Reporter, audioDir string) Service {
	return &service{
		sessions:   sessions,
		dispatcher: dispatcher,
		llm:        llm,
		stt:        stt,
		tts:        tts,
		converter:  converter,
		reporter:   reporter,
		audioDir:   audioDir,
	}
}

func (s *service) CreateSession(p Persona) *Session {
	return s.sessions.Create(p)
}

func (s *service) GetSession(id uuid.UUID) (*Session, bool) {
	return s.sessions.Get(id)
}

// ProcessText runs the text-turn chain: dispatch against the history as it
// stood before this turn, record both sides, then try to voice the reply.
// The second return value is the audio artifact name, empty when synthesis
// failed or produced nothing.
func (s *service) ProcessText(ctx context.Context, sess *Session, text string) (string, string) {
	history := sess.History()
	reply := s.dispatcher.RunStep(ctx, sess.Persona().SystemPrompt(), history, text)

	sess.Append("user", text)
	sess.Append("assistant", reply)

	audioName, err := s.tts.Synthesize(ctx, reply)
	if err != nil {
		log.Warn("Speech synthesis failed", "err", err)
		audioName = ""
	}
	return reply, audioName
}

// ProcessAudio runs the voice-turn chain: save the upload, convert it,
// guard against empty captures, transcribe, then hand off to ProcessText.
func (s *service) ProcessAudio(ctx context.Context, sess *Session, upload []byte, ext string) (*AudioResult, error) {
	inPath := filepath.Join(s.audioDir, fmt.Sprintf("input_%s.%s", uuid.NewString(), ext))
	if err := os.WriteFile(inPath, upload, 0o644); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	wavPath, err := s.converter.ToWAV(ctx, inPath)
	if err != nil {
		log.Warn("Audio conversion failed", "err", err)
		return nil, &ConversionError{Err: err}
	}

	info, err := os.Stat(wavPath)
	if err != nil {
		return nil, fmt.Errorf("inspect converted audio: %w", err)
	}
	if info.Size() < minWAVBytes {
		return nil, ErrNoAudio
	}

	wavBytes, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("read converted audio: %w", err)
	}

	transcript, err := s.stt.Transcribe(ctx, wavBytes)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	if transcript == "" {
		return &AudioResult{}, nil
	}

	reply, audioName := s.ProcessText(ctx, sess, transcript)
	return &AudioResult{Transcript: transcript, Reply: reply, AudioName: audioName}, nil
}

// Analyze runs one completion over the whole transcript using the fixed
// analysis template.
func (s *service) Analyze(ctx context.Context, sess *Session) (string, error) {
	history := sess.History()
	if len(history) == 0 {
		return "", ErrEmptyConversation
	}

	var b strings.Builder
	b.WriteString(analysisTemplate)
	for _, m := range history {
		who := "Assistant"
		if m.Role == "user" {
			who = "Customer"
		}
		fmt.Fprintf(&b, "%s: %s\n", who, m.Content)
	}

	analysis, err := s.llm.Complete(ctx, "", nil, b.String(), 0.5, 300)
	if err != nil {
		return "", fmt.Errorf("analysis failed: %w", err)
	}
	return analysis, nil
}

func (s *service) Report(ctx context.Context, sess *Session) ([]byte, error) {
	analysis, err := s.Analyze(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.reporter.Render(analysis, sess.History())
}

func (s *service) Synthesize(ctx context.Context, text string) (string, error) {
	return s.tts.Synthesize(ctx, text)
}
