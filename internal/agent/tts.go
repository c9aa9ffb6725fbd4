package agent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const translateTTSURL = "https://translate.google.com/translate_tts"

// Synthesizer is the speech-synthesis boundary: text in, the name of an
// MP3 artifact written under the audio directory out.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

type translateTTS struct {
	lang       string
	dir        string
	baseURL    string
	httpClient *http.Client
}

// NewTranslateSynthesizer writes synthesized speech as MP3 files into dir.
func NewTranslateSynthesizer(lang, dir string) Synthesizer {
	return &translateTTS{
		lang:    lang,
		dir:     dir,
		baseURL: translateTTSURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *translateTTS) Synthesize(ctx context.Context, text string) (string, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", text)
	q.Set("tl", c.lang)
	q.Set("client", "tw-ob")

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("TTS API error: %s - %s", resp.Status, string(body))
	}

	name := fmt.Sprintf("tts_%s.mp3", uuid.NewString())
	f, err := os.Create(filepath.Join(c.dir, name))
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", err
	}
	return name, nil
}
