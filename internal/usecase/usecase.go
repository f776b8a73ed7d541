package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dabinuss/clipcore/internal/domain/chapters"
	"github.com/dabinuss/clipcore/internal/domain/fallback"
	"github.com/dabinuss/clipcore/internal/domain/highlights"
	"github.com/dabinuss/clipcore/internal/ports"
	"github.com/dabinuss/clipcore/internal/types"
)

const (
	SourceOracle   = "oracle"
	SourceFallback = "fallback"
)

type Deps struct {
	Media ports.MediaTool
	ASR   ports.ASR
	// Oracle may be nil, chapters then always come from the fallback.
	Oracle ports.Oracle
	Logger *slog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return Usecase{d: d}
}

type Input struct {
	// InputPath is a media file or a transcript JSON file.
	InputPath    string
	CacheDir     string
	Windows      highlights.WindowConfig
	Chapters     chapters.Config
	Fallback     fallback.Config
	SkipChapters bool
	Logf         func(format string, args ...any)
}

type Result struct {
	Manifest   types.Manifest
	Transcript types.Transcript
	Windows    []types.CandidateWindow
	Chapters   []types.ChapterMarker
	Duration   time.Duration
}

// IsTranscriptFile reports whether path is read as a transcript instead of
// being transcribed.
func IsTranscriptFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	logf := in.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	tr, total, err := u.transcript(ctx, in, logf)
	if err != nil {
		return Result{}, err
	}
	segs := tr.Timed()
	logf("transcript: %d segments", len(segs))

	windows := highlights.GenerateWindows(segs, in.Windows)
	logf("candidate windows: %d", len(windows))

	var (
		markers []types.ChapterMarker
		source  string
	)
	if !in.SkipChapters {
		markers, source, err = u.chapters(ctx, in, segs, total, logf)
		if err != nil {
			return Result{}, err
		}
	}

	m := types.Manifest{
		RunID:         uuid.NewString(),
		Input:         in.InputPath,
		Windows:       make([]types.ManifestWindow, 0, len(windows)),
		Chapters:      make([]types.ManifestChapter, 0, len(markers)),
		ChapterSource: source,
	}
	for _, w := range windows {
		m.Windows = append(m.Windows, types.ManifestWindow{
			Index:    w.Index,
			StartSec: w.Start.Seconds(),
			EndSec:   w.End.Seconds(),
			Text:     w.Text,
		})
	}
	for _, c := range markers {
		m.Chapters = append(m.Chapters, types.ManifestChapter{
			StartSec: c.Start.Seconds(),
			Title:    c.Title,
			Anchor:   c.Anchor,
		})
	}

	return Result{Manifest: m, Transcript: tr, Windows: windows, Chapters: markers, Duration: total}, nil
}

func (u Usecase) transcript(ctx context.Context, in Input, logf func(string, ...any)) (types.Transcript, time.Duration, error) {
	if IsTranscriptFile(in.InputPath) {
		logf("loading transcript %s", in.InputPath)
		tr, err := u.d.ASR.LoadTranscript(ctx, in.InputPath)
		if err != nil {
			return types.Transcript{}, 0, fmt.Errorf("load transcript: %w", err)
		}
		return tr, 0, nil
	}

	var total time.Duration
	if d, err := u.d.Media.ProbeDuration(ctx, in.InputPath); err != nil {
		u.d.Logger.Warn("probe duration failed", "input", in.InputPath, "error", err)
	} else {
		total = d
	}

	wav := filepath.Join(in.CacheDir, "audio.wav")
	logf("extracting audio")
	if err := u.d.Media.ExtractAudioMono16k(ctx, in.InputPath, wav); err != nil {
		return types.Transcript{}, 0, err
	}
	logf("transcribing")
	tr, err := u.d.ASR.Transcribe(ctx, wav, in.CacheDir)
	if err != nil {
		return types.Transcript{}, 0, err
	}
	return tr, total, nil
}

// chapters runs the oracle extraction and falls back to rule based markers
// when it cannot run or finds nothing. Only cancellation is an error.
func (u Usecase) chapters(
	ctx context.Context,
	in Input,
	segs []types.TimedSegment,
	total time.Duration,
	logf func(string, ...any),
) ([]types.ChapterMarker, string, error) {
	log := u.d.Logger
	tl := chapters.NewTimeline(segs)

	topics, err := chapters.NewExtractor(u.d.Oracle, in.Chapters, chapters.WithLogger(log)).Extract(ctx, tl.Text)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, "", ctxErr
	}
	switch {
	case errors.Is(err, chapters.ErrNoUsableTranscript):
		log.Info("transcript too short for oracle chapters, using fallback")
	case errors.Is(err, chapters.ErrOracleUnavailable):
		log.Warn("oracle unavailable, using fallback chapters", "error", err)
	case err != nil:
		log.Warn("oracle chapters failed, using fallback", "error", err)
	default:
		if markers := tl.Markers(topics); len(markers) > 0 {
			logf("chapters: %d from oracle", len(markers))
			return markers, SourceOracle, nil
		}
		log.Info("oracle found no chapters, using fallback")
	}

	markers := fallback.Chapters(segs, total, in.Fallback)
	if len(markers) == 0 {
		logf("chapters: none")
		return nil, "", nil
	}
	logf("chapters: %d from fallback", len(markers))
	return markers, SourceFallback, nil
}
