package chapters

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dabinuss/clipcore/internal/ports"
	"github.com/dabinuss/clipcore/internal/types"
)

type TitleConfig struct {
	BatchSize    int
	MinLength    int
	MaxLength    int
	ContextChars int

	// A title contained in its anchor at or above ContainRatio of the anchor
	// length, or sharing MaxSimilarity of its words, is a copy of the anchor.
	ContainRatio  float64
	MaxSimilarity float64
}

func DefaultTitleConfig() TitleConfig {
	return TitleConfig{
		BatchSize:     8,
		MinLength:     3,
		MaxLength:     160,
		ContextChars:  400,
		ContainRatio:  0.7,
		MaxSimilarity: 0.9,
	}
}

var (
	reTitleNumbering = regexp.MustCompile(`^\s*(?:[-*•#>]+\s*|\d{1,2}:\d{2}(?::\d{2})?\s*[-–:]?\s*|\(?\d{1,3}[.):]\s*)+`)
	reGenericSuffix  = regexp.MustCompile(`[\s:.\-–#]*\d*[\s:.]*$`)
)

// genericTitles are chapter-list headers the oracle sometimes returns in
// place of a title.
var genericTitles = map[string]struct{}{
	"kapitel": {}, "themen": {}, "thema": {}, "gliederung": {}, "inhalt": {}, "inhaltsverzeichnis": {},
	"überblick": {}, "übersicht": {}, "titel": {}, "abschnitt": {}, "teil": {},
	"chapter": {}, "chapters": {}, "topic": {}, "topics": {}, "outline": {}, "overview": {},
	"contents": {}, "table of contents": {}, "agenda": {}, "title": {}, "section": {}, "part": {},
	"chapitre": {}, "capítulo": {}, "capitolo": {},
}

func cleanTitle(s string) string {
	t := strings.TrimSpace(s)
	t = reTitleNumbering.ReplaceAllString(t, "")
	t = strings.Trim(t, "\"'`„“”‚‘’«»*_ ")
	return collapseSpace(t)
}

func isGenericTitle(t string) bool {
	key := strings.ToLower(strings.TrimSpace(reGenericSuffix.ReplaceAllString(t, "")))
	if key == "" {
		return true
	}
	_, ok := genericTitles[key]
	return ok
}

// ValidTitle reports whether an already cleaned title may label a chapter
// starting at anchor.
func ValidTitle(title, anchor string, cfg TitleConfig) bool {
	n := utf8.RuneCountInString(title)
	if n < cfg.MinLength || n > cfg.MaxLength {
		return false
	}
	if isGenericTitle(title) {
		return false
	}
	return !tooCloseToAnchor(title, anchor, cfg)
}

func tooCloseToAnchor(title, anchor string, cfg TitleConfig) bool {
	nt, na := NormalizeForMatch(title), NormalizeForMatch(anchor)
	if nt == "" {
		return true
	}
	if na == "" {
		return false
	}
	if strings.Contains(na, nt) && float64(len(nt)) >= cfg.ContainRatio*float64(len(na)) {
		return true
	}
	return wordOverlap(nt, na) >= cfg.MaxSimilarity
}

// ResolveTitles asks the oracle for titles of every topic lacking one. Topics
// still untitled after one strict retry round are dropped. Only context
// cancellation is returned as an error.
func ResolveTitles(
	ctx context.Context,
	oracle ports.Oracle,
	topics []types.ChapterTopic,
	transcript string,
	cfg TitleConfig,
	log *slog.Logger,
) ([]types.ChapterTopic, error) {
	if log == nil {
		log = discardLogger()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultTitleConfig().BatchSize
	}

	out := make([]types.ChapterTopic, len(topics))
	copy(out, topics)

	mt := newMatchText(transcript)
	for attempt, strict := range []bool{false, true} {
		pending := untitled(out)
		if len(pending) == 0 {
			break
		}
		log.Debug("resolving titles", "pending", len(pending), "attempt", attempt+1)

		for start := 0; start < len(pending); start += cfg.BatchSize {
			end := start + cfg.BatchSize
			if end > len(pending) {
				end = len(pending)
			}
			batch := pending[start:end]

			reqs := make([]TitleRequest, 0, len(batch))
			for _, i := range batch {
				reqs = append(reqs, TitleRequest{
					Anchor:  out[i].AnchorText,
					Context: sentenceContext(transcript, mt, out[i].AnchorText, cfg.ContextChars),
				})
			}

			resp, err := oracle.Complete(ctx, BuildTitlePrompt(reqs, strict))
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if err != nil {
				log.Warn("title request failed", "error", err, "batch", len(batch))
				continue
			}

			byAnchor := make(map[string]string)
			for _, p := range ParseTitleResponse(resp) {
				key := NormalizeForMatch(p.Anchor)
				if _, ok := byAnchor[key]; ok || key == "" {
					continue
				}
				byAnchor[key] = p.Title
			}
			for _, i := range batch {
				raw, ok := byAnchor[NormalizeForMatch(out[i].AnchorText)]
				if !ok {
					continue
				}
				title := cleanTitle(raw)
				if !ValidTitle(title, out[i].AnchorText, cfg) {
					log.Debug("title rejected", "anchor", out[i].AnchorText, "title", raw)
					continue
				}
				out[i] = out[i].WithTitle(title)
			}
		}
	}

	kept := out[:0]
	for _, t := range out {
		if t.Title != "" {
			kept = append(kept, t)
		}
	}
	if dropped := len(topics) - len(kept); dropped > 0 {
		log.Debug("dropped untitled topics", "count", dropped)
	}
	return kept, nil
}

func untitled(topics []types.ChapterTopic) []int {
	var idx []int
	for i, t := range topics {
		if t.Title == "" {
			idx = append(idx, i)
		}
	}
	return idx
}
