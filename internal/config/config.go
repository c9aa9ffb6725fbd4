package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-multierror"
)

const defaultLLMBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// Config carries every runtime option the server reads from the
// environment. It is resolved once at startup and passed by value.
type Config struct {
	LLMModel   string
	LLMBaseURL string
	APIKey     string

	ProjectID      string
	SpeechLocation string
	STTModel       string
	STTLanguage    string
	TTSLanguage    string

	SampleRate int
	MockDir    string
	AudioDir   string
	Port       string
}

// FromEnv builds a Config from environment variables, applying defaults
// for everything optional. Call Validate before using the result.
func FromEnv() Config {
	cfg := Config{
		LLMModel:       os.Getenv("LLM_MODEL"),
		LLMBaseURL:     getenvDefault("LLM_BASE_URL", defaultLLMBaseURL),
		APIKey:         os.Getenv("GOOGLE_API_KEY"),
		ProjectID:      firstEnv("GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "PROJECT_ID"),
		SpeechLocation: getenvDefault("SPEECH_LOCATION", "us"),
		STTModel:       getenvDefault("STT_MODEL", "chirp_3"),
		STTLanguage:    getenvDefault("STT_LANGUAGE", "en-US"),
		TTSLanguage:    getenvDefault("TTS_LANGUAGE", "en"),
		SampleRate:     16000,
		MockDir:        getenvDefault("MOCK_DIR", "mock"),
		AudioDir:       getenvDefault("AUDIO_DIR", filepath.Join(os.TempDir(), "voicedesk")),
		Port:           getenvDefault("PORT", "8080"),
	}
	if v := os.Getenv("SAMPLE_RATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SampleRate = n
		}
	}
	return cfg
}

// Validate reports every missing required value, collected into one error.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.LLMModel == "" {
		result = multierror.Append(result, errors.New("LLM_MODEL is required (e.g. gemini-2.5-flash-lite)"))
	}
	if c.APIKey == "" {
		result = multierror.Append(result, errors.New("GOOGLE_API_KEY is required"))
	}
	if c.ProjectID == "" {
		result = multierror.Append(result, errors.New("one of GOOGLE_CLOUD_PROJECT, GCP_PROJECT or PROJECT_ID is required"))
	}
	return result.ErrorOrNil()
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
