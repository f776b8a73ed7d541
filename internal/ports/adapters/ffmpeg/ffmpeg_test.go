package ffmpeg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	got, err := parseDuration("  125.500000\n")
	require.NoError(t, err)
	assert.Equal(t, 125*time.Second+500*time.Millisecond, got)

	got, err = parseDuration("12.0\n12.0\n")
	require.NoError(t, err)
	assert.Equal(t, 12*time.Second, got)

	_, err = parseDuration("N/A")
	assert.ErrorContains(t, err, `parse duration "N/A"`)

	_, err = parseDuration("-1")
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	a := New("", "")
	assert.Equal(t, "ffmpeg", a.ffmpeg)
	assert.Equal(t, "ffprobe", a.ffprobe)
}

func TestExtractArgs(t *testing.T) {
	args := extractArgs("in.mp4", "out.wav")
	assert.Equal(t, "out.wav", args[len(args)-1])
	assert.Subset(t, args, []string{"-map", "0:a:0", "-ac", "1", "-ar", "16000"})
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("  short\n", 10))
	assert.Equal(t, "...6789", tail("0123456789", 4))
}

func TestExtractAudio_MissingBinary(t *testing.T) {
	a := New("/nonexistent/ffmpeg", "/nonexistent/ffprobe")
	err := a.ExtractAudioMono16k(context.Background(), "in.mp4", "out.wav")
	assert.ErrorContains(t, err, "ffmpeg extract audio:")

	_, err = a.ProbeDuration(context.Background(), "in.mp4")
	assert.ErrorContains(t, err, "ffprobe duration:")
}
