package whispercpp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dabinuss/clipcore/internal/ports"
	"github.com/dabinuss/clipcore/internal/types"
)

var _ ports.ASR = (*Adapter)(nil)

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	if a.bin == "" || a.model == "" {
		return types.Transcript{}, errors.New("whisper.cpp: binary and model path are required")
	}
	outPrefix := filepath.Join(cacheDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}
	return a.LoadTranscript(ctx, outPrefix+".json")
}

// LoadTranscript reads a transcript JSON file written by whisper.cpp or in
// the {"segments":[{"start","end","text"}]} layout.
func (a *Adapter) LoadTranscript(_ context.Context, path string) (types.Transcript, error) {
	jb, err := os.ReadFile(path)
	if err != nil {
		return types.Transcript{}, err
	}
	tr, err := Decode(jb)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("%s: %w", path, err)
	}
	return tr, nil
}

type nativeOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// Decode parses either the native whisper.cpp -oj output, with millisecond
// offsets, or the segments layout with float seconds.
func Decode(b []byte) (types.Transcript, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(b, &probe); err != nil {
		return types.Transcript{}, fmt.Errorf("decode transcript: %w", err)
	}

	var tr types.Transcript
	switch {
	case probe["transcription"] != nil:
		var native nativeOutput
		if err := json.Unmarshal(b, &native); err != nil {
			return types.Transcript{}, fmt.Errorf("decode whisper.cpp output: %w", err)
		}
		for _, s := range native.Transcription {
			tr.Segments = append(tr.Segments, types.Segment{
				Start: float64(s.Offsets.From) / 1000,
				End:   float64(s.Offsets.To) / 1000,
				Text:  s.Text,
			})
		}
	case probe["segments"] != nil:
		if err := json.Unmarshal(b, &tr); err != nil {
			return types.Transcript{}, fmt.Errorf("decode segments: %w", err)
		}
	default:
		return types.Transcript{}, errors.New("decode transcript: neither \"transcription\" nor \"segments\" found")
	}

	for i := range tr.Segments {
		tr.Segments[i].Text = strings.TrimSpace(tr.Segments[i].Text)
		for j := range tr.Segments[i].Words {
			tr.Segments[i].Words[j].Word = strings.TrimSpace(tr.Segments[i].Words[j].Word)
		}
	}
	return tr, nil
}
