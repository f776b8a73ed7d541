package ports

import (
	"context"
	"time"

	"github.com/dabinuss/clipcore/internal/types"
)

// MediaTool prepares media inputs for transcription.
type MediaTool interface {
	ExtractAudioMono16k(ctx context.Context, inPath, outWav string) error
	ProbeDuration(ctx context.Context, inPath string) (time.Duration, error)
}

// ASR produces transcripts, either by transcribing audio or by reading a
// transcript it wrote earlier.
type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
	LoadTranscript(ctx context.Context, path string) (types.Transcript, error)
}

// Oracle is a generative text service. Complete may be slow, may fail and
// must return promptly once ctx is done. Callers treat errors and garbled
// text alike; neither is trusted.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
	IsReady() bool
	TryInitialize(ctx context.Context) error
}
