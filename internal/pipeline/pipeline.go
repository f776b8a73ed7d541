package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/dabinuss/clipcore/internal/config"
	"github.com/dabinuss/clipcore/internal/output"
	"github.com/dabinuss/clipcore/internal/ports"
	"github.com/dabinuss/clipcore/internal/ports/adapters/ffmpeg"
	"github.com/dabinuss/clipcore/internal/ports/adapters/ollama"
	"github.com/dabinuss/clipcore/internal/ports/adapters/openrouter"
	"github.com/dabinuss/clipcore/internal/ports/adapters/rediscache"
	"github.com/dabinuss/clipcore/internal/ports/adapters/whispercpp"
	"github.com/dabinuss/clipcore/internal/usecase"
)

const (
	OracleOpenRouter = "openrouter"
	OracleOllama     = "ollama"
	OracleNone       = "none"
)

type Config struct {
	// Input is a media file or a transcript JSON file.
	Input  string
	OutDir string
	// CacheDir is the base directory for local artifacts (audio, transcripts, etc.).
	// If empty, defaults to ".cache".
	CacheDir string

	Env    config.Env
	Tuning config.Tuning

	SkipChapters bool

	Logf   func(format string, args ...any)
	Logger *slog.Logger
}

func (c Config) Validate() error {
	if c.Input == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.Input); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}

	w := c.Tuning.Windows
	if w.Min <= 0 {
		return fmt.Errorf("min window must be > 0")
	}
	if w.Max < w.Min {
		return fmt.Errorf("min window must be <= max window")
	}
	if w.Step <= 0 {
		return fmt.Errorf("window step must be > 0")
	}

	if !usecase.IsTranscriptFile(c.Input) && c.Env.WhisperModel == "" {
		return fmt.Errorf("whisper model path is required")
	}

	switch c.Env.Oracle {
	case OracleOpenRouter:
		return openrouter.ValidateBaseURL(c.Env.OpenRouterBaseURL, c.Env.OpenRouterAllowedHosts)
	case OracleOllama, OracleNone:
		return nil
	default:
		return fmt.Errorf("unknown oracle %q (want %s, %s or %s)", c.Env.Oracle, OracleOpenRouter, OracleOllama, OracleNone)
	}
}

// Summary describes a finished run.
type Summary struct {
	OutDir        string
	RunID         string
	Windows       int
	Chapters      int
	ChapterSource string
}

func Run(ctx context.Context, cfg Config) (Summary, error) {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// adapters
	media := ffmpeg.New(cfg.Env.FFmpegPath, cfg.Env.FFprobePath)
	asr := whispercpp.New(cfg.Env.WhisperBin, cfg.Env.WhisperModel)
	oracle, closeOracle := buildOracle(ctx, cfg.Env, log)
	defer closeOracle()

	uc := usecase.New(usecase.Deps{
		Media:  media,
		ASR:    asr,
		Oracle: oracle,
		Logger: log,
	})

	jobID := hash(cfg.Input)
	baseCache := cfg.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	cacheDir := filepath.Join(baseCache, "runs", jobID)
	logf("preparing workspace")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return Summary{}, err
	}
	logf("cache: %s", cacheDir)

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	runOutDir := buildRunOutDir(outDir, cfg.Input, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return Summary{}, err
	}
	logf("output run dir: %s", runOutDir)

	res, err := uc.Run(ctx, usecase.Input{
		InputPath:    cfg.Input,
		CacheDir:     cacheDir,
		Windows:      cfg.Tuning.Windows,
		Chapters:     cfg.Tuning.Chapters,
		Fallback:     cfg.Tuning.Fallback,
		SkipChapters: cfg.SkipChapters,
		Logf:         logf,
	})
	if err != nil {
		return Summary{}, err
	}

	b, err := json.MarshalIndent(res.Manifest, "", "  ")
	if err != nil {
		return Summary{}, fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return Summary{}, err
	}

	report := output.RenderMarkdown(output.Report{
		Title:         strings.TrimSuffix(filepath.Base(cfg.Input), filepath.Ext(cfg.Input)),
		Input:         cfg.Input,
		RunID:         res.Manifest.RunID,
		ChapterSource: res.Manifest.ChapterSource,
		Duration:      res.Duration,
		Chapters:      res.Chapters,
		Windows:       res.Windows,
	})
	if err := os.WriteFile(filepath.Join(runOutDir, "chapters.md"), []byte(report), 0o644); err != nil {
		return Summary{}, err
	}
	if len(res.Chapters) > 0 {
		desc := output.FormatChapters(res.Chapters)
		if err := os.WriteFile(filepath.Join(runOutDir, "description.txt"), []byte(desc), 0o644); err != nil {
			return Summary{}, err
		}
	}
	logf("manifest written (%d windows, %d chapters): %s", len(res.Windows), len(res.Chapters), manifestPath)

	return Summary{
		OutDir:        runOutDir,
		RunID:         res.Manifest.RunID,
		Windows:       len(res.Windows),
		Chapters:      len(res.Chapters),
		ChapterSource: res.Manifest.ChapterSource,
	}, nil
}

// buildOracle returns the configured oracle, wrapped in the Redis cache when
// one is configured and reachable. The returned func releases the cache.
func buildOracle(ctx context.Context, env config.Env, log *slog.Logger) (ports.Oracle, func()) {
	noop := func() {}

	var (
		o  ports.Oracle
		ns string
	)
	switch env.Oracle {
	case OracleNone:
		return nil, noop
	case OracleOllama:
		a := ollama.New(ollama.Config{BaseURL: env.OllamaBaseURL, Model: env.OllamaModel})
		o, ns = a, OracleOllama+"/"+a.Model()
	default:
		a := openrouter.New(
			env.OpenRouterAPIKey,
			env.OpenRouterModel,
			env.OpenRouterBaseURL,
			openrouter.WithAllowedHosts(env.OpenRouterAllowedHosts),
			openrouter.WithRateLimit(env.OpenRouterRPS),
		)
		o, ns = a, OracleOpenRouter+"/"+a.Model()
	}

	if env.RedisAddr == "" {
		return o, noop
	}
	store, err := rediscache.Connect(ctx, env.RedisAddr)
	if err != nil {
		log.Warn("oracle cache disabled", "addr", env.RedisAddr, "error", err)
		return o, noop
	}
	log.Debug("oracle cache enabled", "addr", env.RedisAddr, "namespace", ns)
	cached := rediscache.Wrap(o, store,
		rediscache.WithTTL(env.OracleCacheTTL),
		rediscache.WithNamespace(ns),
		rediscache.WithLogger(log),
	)
	return cached, func() { _ = store.Close() }
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.MediaTool = (*ffmpeg.Adapter)(nil)
var _ ports.ASR = (*whispercpp.Adapter)(nil)
var _ ports.Oracle = (*openrouter.Adapter)(nil)
var _ ports.Oracle = (*ollama.Adapter)(nil)
