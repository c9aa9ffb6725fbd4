package agent

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Transcriber is the transcription boundary: converted WAV bytes in, best
// single transcript out. An empty string with a nil error means the
// service recognized no speech.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type googleSTT struct {
	apiKey     string
	endpoint   string
	recognizer string
	model      string
	language   string
	httpClient *http.Client
}

// NewGoogleTranscriber targets the Speech-to-Text v2 recognize endpoint
// for the given project and location, using the ephemeral "_" recognizer.
func NewGoogleTranscriber(apiKey, projectID, location, model, language string) Transcriber {
	return &googleSTT{
		apiKey:     apiKey,
		endpoint:   fmt.Sprintf("https://%s-speech.googleapis.com", location),
		recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", projectID, location),
		model:      model,
		language:   language,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type recognizeRequest struct {
	Config  recognitionConfig `json:"config"`
	Content string            `json:"content"`
}

type recognitionConfig struct {
	AutoDecodingConfig struct{} `json:"autoDecodingConfig"`
	Model              string   `json:"model"`
	LanguageCodes      []string `json:"languageCodes"`
}

func (c *googleSTT) Transcribe(ctx context.Context, audio []byte) (string, error) {
	reqBody := recognizeRequest{
		Content: base64.StdEncoding.EncodeToString(audio),
	}
	reqBody.Config.Model = c.model
	reqBody.Config.LanguageCodes = []string{c.language}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v2/%s:recognize", c.endpoint, c.recognizer)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("STT API error: %s - %s", resp.Status, string(body))
	}

	transcript := gjson.GetBytes(body, "results.0.alternatives.0.transcript")
	if !transcript.Exists() {
		return "", nil
	}
	return strings.TrimSpace(transcript.String()), nil
}
