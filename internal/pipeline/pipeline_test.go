package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dabinuss/clipcore/internal/config"
	"github.com/dabinuss/clipcore/internal/ports/adapters/ollama"
	"github.com/dabinuss/clipcore/internal/ports/adapters/openrouter"
	"github.com/dabinuss/clipcore/internal/types"
)

func TestBuildRunOutDir(t *testing.T) {
	now := time.Date(2026, 2, 12, 10, 30, 45, 1234, time.UTC)
	got := buildRunOutDir("out", "/tmp/My Cool.Video.mp4", now)
	base := filepath.Base(got)
	if filepath.Dir(got) != "out" {
		t.Fatalf("unexpected parent dir: %s", got)
	}
	if !strings.HasPrefix(base, "my-cool-video-20260212-103045Z-") {
		t.Fatalf("unexpected run dir format: %s", base)
	}
	if len(base) != len("my-cool-video-20260212-103045Z-")+6 {
		t.Fatalf("unexpected run dir suffix length: %s", base)
	}
}

func TestNormalizePathSegment(t *testing.T) {
	tests := map[string]string{
		"  My Cool.Video  ": "my-cool-video",
		"___":               "",
		"abc123":            "abc123",
		"Name (v2)!":        "name-v2",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := normalizePathSegment(in); got != want {
				t.Fatalf("normalizePathSegment(%q) = %q, want %q", in, got, want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	transcript := writeTranscript(t)
	media := filepath.Join(t.TempDir(), "talk.mp4")
	require.NoError(t, os.WriteFile(media, []byte("x"), 0o644))

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "empty input", mutate: func(c *Config) { c.Input = "" }, wantErr: "input is empty"},
		{name: "missing input", mutate: func(c *Config) { c.Input = "/nope/talk.json" }, wantErr: "stat input"},
		{name: "min above max", mutate: func(c *Config) { c.Tuning.Windows.Min = 2 * c.Tuning.Windows.Max }, wantErr: "min window"},
		{name: "zero step", mutate: func(c *Config) { c.Tuning.Windows.Step = 0 }, wantErr: "window step"},
		{name: "unknown oracle", mutate: func(c *Config) { c.Env.Oracle = "gpt" }, wantErr: `unknown oracle "gpt"`},
		{name: "plain http base url", mutate: func(c *Config) {
			c.Env.Oracle = OracleOpenRouter
			c.Env.OpenRouterBaseURL = "http://openrouter.ai"
		}, wantErr: "https"},
		{name: "media needs whisper model", mutate: func(c *Config) {
			c.Input = media
			c.Env.WhisperModel = ""
		}, wantErr: "whisper model"},
		{name: "transcript needs no whisper model", mutate: func(c *Config) { c.Env.WhisperModel = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t, transcript, OracleNone)
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRun_TranscriptWithoutOracle(t *testing.T) {
	cfg := testConfig(t, writeTranscript(t), OracleNone)

	sum, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "fallback", sum.ChapterSource)
	assert.Equal(t, 3, sum.Chapters)
	assert.Positive(t, sum.Windows)
	assert.Equal(t, cfg.OutDir, filepath.Dir(sum.OutDir))

	b, err := os.ReadFile(filepath.Join(sum.OutDir, "manifest.json"))
	require.NoError(t, err)
	var m types.Manifest
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, sum.RunID, m.RunID)
	assert.Equal(t, cfg.Input, m.Input)
	assert.Len(t, m.Chapters, 3)
	assert.Len(t, m.Windows, sum.Windows)

	desc, err := os.ReadFile(filepath.Join(sum.OutDir, "description.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(desc)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "00:00 "), lines[0])

	report, err := os.ReadFile(filepath.Join(sum.OutDir, "chapters.md"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "# talk")
	assert.Contains(t, string(report), "## Candidate windows")
}

func TestRun_OpenRouterWithoutKeyFallsBack(t *testing.T) {
	cfg := testConfig(t, writeTranscript(t), OracleOpenRouter)

	sum, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "fallback", sum.ChapterSource)
}

func TestRun_SkipChapters(t *testing.T) {
	cfg := testConfig(t, writeTranscript(t), OracleNone)
	cfg.SkipChapters = true

	sum, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Zero(t, sum.Chapters)
	assert.NoFileExists(t, filepath.Join(sum.OutDir, "description.txt"))
	assert.FileExists(t, filepath.Join(sum.OutDir, "chapters.md"))
}

func TestBuildOracle(t *testing.T) {
	env := config.LoadEnv()
	env.RedisAddr = ""

	env.Oracle = OracleNone
	o, closeFn := buildOracle(context.Background(), env, nil)
	closeFn()
	assert.Nil(t, o)

	env.Oracle = OracleOllama
	o, closeFn = buildOracle(context.Background(), env, nil)
	closeFn()
	assert.IsType(t, &ollama.Adapter{}, o)

	env.Oracle = OracleOpenRouter
	o, closeFn = buildOracle(context.Background(), env, nil)
	closeFn()
	assert.IsType(t, &openrouter.Adapter{}, o)
}

func TestBuildOracle_UnreachableCacheIsSkipped(t *testing.T) {
	env := config.LoadEnv()
	env.Oracle = OracleOpenRouter
	env.RedisAddr = "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o, closeFn := buildOracle(ctx, env, nil)
	defer closeFn()
	assert.IsType(t, &openrouter.Adapter{}, o)
}

func testConfig(t *testing.T, input, oracle string) Config {
	t.Helper()
	tmp := t.TempDir()
	env := config.Env{
		Oracle:            oracle,
		OpenRouterBaseURL: "https://openrouter.ai",
		OpenRouterRPS:     1,
		WhisperModel:      filepath.Join(tmp, "ggml-base.bin"),
	}
	return Config{
		Input:    input,
		OutDir:   filepath.Join(tmp, "out"),
		CacheDir: filepath.Join(tmp, "cache"),
		Env:      env,
		Tuning:   config.DefaultTuning(),
	}
}

// writeTranscript writes eight contiguous 15 second segments.
func writeTranscript(t *testing.T) string {
	t.Helper()
	var segs []string
	for i := 0; i < 8; i++ {
		segs = append(segs, fmt.Sprintf(
			`{"start":%d,"end":%d,"text":" Part %d of the talk covers topic number %d in some detail."}`,
			i*15, (i+1)*15, i+1, i+1))
	}
	path := filepath.Join(t.TempDir(), "talk.json")
	doc := `{"segments":[` + strings.Join(segs, ",") + `]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}
