// Package fallback derives chapter markers without an oracle, from even
// time splits snapped to segment starts.
package fallback

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dabinuss/clipcore/internal/types"
)

type Config struct {
	// Media shorter than MinMedia gets no chapters.
	MinMedia time.Duration
	// ChapterLength is the target length of one chapter.
	ChapterLength time.Duration
	MinChapters   int
	MaxChapters   int
	TitleWords    int
}

func DefaultConfig() Config {
	return Config{
		MinMedia:      30 * time.Second,
		ChapterLength: 5 * time.Minute,
		MinChapters:   3,
		MaxChapters:   10,
		TitleWords:    6,
	}
}

// Chapters returns markers for media of length total. With transcript
// segments the boundaries are the first segment starts at or after each even
// split and titles are the opening words of those segments; without them the
// markers are plain "Part k" splits. The first marker is always at zero.
// When total is zero it is taken from the last segment end.
func Chapters(segs []types.TimedSegment, total time.Duration, cfg Config) []types.ChapterMarker {
	spoken := spokenSegments(segs)
	if total <= 0 && len(spoken) > 0 {
		total = spoken[len(spoken)-1].End
	}
	if total <= 0 || total < cfg.MinMedia {
		return nil
	}

	n := chapterCount(total, cfg)
	if len(spoken) == 0 {
		return parts(total, n)
	}

	out := make([]types.ChapterMarker, 0, n)
	next := 0
	for k := 0; k < n; k++ {
		at := total * time.Duration(k) / time.Duration(n)
		for next < len(spoken) && spoken[next].Start < at {
			next++
		}
		if next >= len(spoken) {
			break
		}
		seg := spoken[next]
		next++

		start := seg.Start
		if len(out) == 0 {
			start = 0
		}
		out = append(out, types.ChapterMarker{Start: start, Title: openingWords(seg.Text, cfg.TitleWords)})
	}
	if len(out) < 2 {
		return nil
	}
	return out
}

func chapterCount(total time.Duration, cfg Config) int {
	n := 0
	if cfg.ChapterLength > 0 {
		n = int(total / cfg.ChapterLength)
	}
	if n < cfg.MinChapters {
		n = cfg.MinChapters
	}
	if cfg.MaxChapters > 0 && n > cfg.MaxChapters {
		n = cfg.MaxChapters
	}
	if n < 1 {
		n = 1
	}
	return n
}

func parts(total time.Duration, n int) []types.ChapterMarker {
	out := make([]types.ChapterMarker, 0, n)
	for k := 0; k < n; k++ {
		out = append(out, types.ChapterMarker{
			Start: total * time.Duration(k) / time.Duration(n),
			Title: fmt.Sprintf("Part %d", k+1),
		})
	}
	return out
}

func spokenSegments(segs []types.TimedSegment) []types.TimedSegment {
	out := make([]types.TimedSegment, 0, len(segs))
	for _, s := range segs {
		if strings.TrimSpace(s.Text) == "" || s.End <= s.Start {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func openingWords(text string, n int) string {
	words := strings.Fields(text)
	truncated := n > 0 && len(words) > n
	if truncated {
		words = words[:n]
	}
	title := strings.TrimRight(strings.Join(words, " "), ",;:-–")
	if truncated {
		title = strings.TrimRight(title, ".!?") + "…"
	}
	return upperFirst(title)
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
