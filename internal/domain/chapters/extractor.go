package chapters

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dabinuss/clipcore/internal/ports"
	"github.com/dabinuss/clipcore/internal/types"
)

type Config struct {
	ChunkSize    int
	ChunkOverlap int

	// MinTranscriptWords is the smallest transcript worth asking the oracle about.
	MinTranscriptWords int

	// Per chunk the oracle is asked for clamp(len/CharsPerTopic, MinTopicsPerChunk,
	// MaxTopicsPerChunk) topics; that number is also the expected yield.
	CharsPerTopic     int
	MinTopicsPerChunk int
	MaxTopicsPerChunk int

	// Concurrency bounds parallel chunk requests. 1 keeps them sequential.
	Concurrency int

	Tiers  []Tier
	Merge  MergeConfig
	Titles TitleConfig
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:          DefaultChunkSize,
		ChunkOverlap:       DefaultChunkOverlap,
		MinTranscriptWords: 40,
		CharsPerTopic:      1200,
		MinTopicsPerChunk:  2,
		MaxTopicsPerChunk:  8,
		Concurrency:        1,
		Tiers:              DefaultTiers,
		Merge:              DefaultMergeConfig(),
		Titles:             DefaultTitleConfig(),
	}
}

type Option func(*Extractor)

func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.log = l
		}
	}
}

// Extractor turns a transcript into titled chapter topics using an oracle,
// keeping only anchors that literally occur in the transcript.
type Extractor struct {
	oracle ports.Oracle
	cfg    Config
	log    *slog.Logger
}

func NewExtractor(oracle ports.Oracle, cfg Config, opts ...Option) *Extractor {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = def.ChunkOverlap
	}
	if cfg.CharsPerTopic <= 0 {
		cfg.CharsPerTopic = def.CharsPerTopic
	}
	if cfg.MinTopicsPerChunk <= 0 {
		cfg.MinTopicsPerChunk = def.MinTopicsPerChunk
	}
	if cfg.MaxTopicsPerChunk < cfg.MinTopicsPerChunk {
		cfg.MaxTopicsPerChunk = cfg.MinTopicsPerChunk
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = DefaultTiers
	}
	cfg.Merge.ChunkOverlap = cfg.ChunkOverlap

	e := &Extractor{oracle: oracle, cfg: cfg, log: discardLogger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs chunking, per-chunk extraction with one strict retry, merging
// and title resolution. It returns ErrNoUsableTranscript or
// ErrOracleUnavailable when the oracle path cannot run at all, and the
// context error, with no partial result, when ctx is cancelled.
func (e *Extractor) Extract(ctx context.Context, transcript string) ([]types.ChapterTopic, error) {
	text := collapseSpace(transcript)
	if text == "" || len(strings.Fields(text)) < e.cfg.MinTranscriptWords {
		return nil, ErrNoUsableTranscript
	}
	if err := e.ensureReady(ctx); err != nil {
		return nil, err
	}

	chunks := SplitIntoChunks(text, e.cfg.ChunkSize, e.cfg.ChunkOverlap)
	e.log.Debug("chunked transcript", "chunks", len(chunks), "chars", len(text))

	results := make([]ChunkResult, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i := range chunks {
		i := i
		c := chunks[i]
		g.Go(func() error {
			topics, err := e.extractChunk(gctx, c, true)
			if err != nil {
				return err
			}
			results[i] = ChunkResult{Offset: c.StartOffset, Topics: topics}
			e.log.Debug("chunk verified", "chunk", i, "offset", c.StartOffset, "topics", len(topics))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := Merge(results, text, e.cfg.Merge)
	e.log.Debug("merged topics", "topics", len(merged))
	if len(merged) == 0 {
		return nil, nil
	}

	return ResolveTitles(ctx, e.oracle, merged, text, e.cfg.Titles, e.log)
}

func (e *Extractor) ensureReady(ctx context.Context) error {
	if e.oracle == nil {
		return ErrOracleUnavailable
	}
	if e.oracle.IsReady() {
		return nil
	}
	if err := e.oracle.TryInitialize(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	if !e.oracle.IsReady() {
		return ErrOracleUnavailable
	}
	return nil
}

// extractChunk asks for anchors in one chunk and retries once with the strict
// prompt when the yield is below expectation. A chunk yielding nothing is
// split in halves once when escalate is set.
func (e *Extractor) extractChunk(ctx context.Context, c types.TranscriptChunk, escalate bool) ([]types.ChapterTopic, error) {
	minExpected := e.expectedTopics(c.Text)

	topics, err := e.requestAnchors(ctx, c.Text, minExpected, false)
	if err != nil {
		return nil, err
	}
	if len(topics) < minExpected {
		e.log.Debug("insufficient anchors, retrying strict", "offset", c.StartOffset, "got", len(topics), "want", minExpected)
		retry, err := e.requestAnchors(ctx, c.Text, minExpected, true)
		if err != nil {
			return nil, err
		}
		topics = unionTopics(topics, retry)
	}

	if len(topics) > 0 || !escalate || len(c.Text) < e.cfg.ChunkSize/2 {
		return topics, nil
	}

	e.log.Debug("no anchors, splitting chunk", "offset", c.StartOffset)
	var out []types.ChapterTopic
	for _, sub := range SplitIntoChunks(c.Text, len(c.Text)/2+1, e.cfg.ChunkOverlap/2) {
		sub.StartOffset += c.StartOffset
		got, err := e.extractChunk(ctx, sub, false)
		if err != nil {
			return nil, err
		}
		out = unionTopics(out, got)
	}
	return out, nil
}

func (e *Extractor) requestAnchors(ctx context.Context, text string, minExpected int, strict bool) ([]types.ChapterTopic, error) {
	prompt := BuildAnchorPrompt(text, minExpected, e.cfg.MaxTopicsPerChunk, strict)
	resp, err := e.oracle.Complete(ctx, prompt)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		// Oracle failures count as an empty answer.
		e.log.Warn("anchor request failed", "error", err, "strict", strict)
		return nil, nil
	}
	return VerifyProposals(ParseAnchorResponse(resp), text, minExpected, e.cfg.Tiers), nil
}

func (e *Extractor) expectedTopics(text string) int {
	n := len(text) / e.cfg.CharsPerTopic
	if n < e.cfg.MinTopicsPerChunk {
		n = e.cfg.MinTopicsPerChunk
	}
	if n > e.cfg.MaxTopicsPerChunk {
		n = e.cfg.MaxTopicsPerChunk
	}
	return n
}

func unionTopics(a, b []types.ChapterTopic) []types.ChapterTopic {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]types.ChapterTopic, 0, len(a)+len(b))
	for _, list := range [][]types.ChapterTopic{a, b} {
		for _, t := range list {
			key := NormalizeForMatch(t.AnchorText)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
