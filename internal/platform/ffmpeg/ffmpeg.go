// Package ffmpeg shells out to the ffmpeg binary to normalize uploaded
// audio into mono WAV at the sample rate the recognizer expects.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	log "log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Converter struct {
	sampleRate int
	dir        string
}

func New(sampleRate int, dir string) *Converter {
	return &Converter{sampleRate: sampleRate, dir: dir}
}

// ToWAV converts the file at inputPath into a fresh mono WAV artifact in
// the converter's directory and returns its path. The output is decoded
// once to verify ffmpeg actually produced a playable file.
func (c *Converter) ToWAV(ctx context.Context, inputPath string) (string, error) {
	outputPath := filepath.Join(c.dir, fmt.Sprintf("converted_%s.wav", uuid.NewString()))

	args := []string{
		"-y",
		"-i", inputPath,
		"-ar", strconv.Itoa(c.sampleRate),
		"-ac", "1",
		outputPath,
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errors.Wrapf(err, "ffmpeg failed: %s", strings.TrimSpace(stderr.String()))
	}

	f, err := os.Open(outputPath)
	if err != nil {
		return "", errors.Wrap(err, "open converted file")
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return "", errors.Errorf("ffmpeg produced an invalid wav: %s", filepath.Base(outputPath))
	}
	if d, err := dec.Duration(); err == nil {
		log.Debug("Audio converted", "file", filepath.Base(outputPath), "duration", d)
	}

	return outputPath, nil
}
