package highlights

import (
	"sort"
	"strings"
	"time"

	"github.com/dabinuss/clipcore/internal/types"
)

const (
	DefaultMinWindow      = 15 * time.Second
	DefaultMaxWindow      = 90 * time.Second
	DefaultStep           = 10 * time.Second
	DefaultPauseThreshold = 2 * time.Second

	// DefaultDuplicateOverlap is the overlap/shorter-duration ratio above which
	// a window counts as a duplicate of an earlier kept one.
	DefaultDuplicateOverlap = 0.8
)

type WindowConfig struct {
	Min   time.Duration
	Max   time.Duration
	Step  time.Duration
	Pause time.Duration

	DuplicateOverlap float64
}

func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Min:              DefaultMinWindow,
		Max:              DefaultMaxWindow,
		Step:             DefaultStep,
		Pause:            DefaultPauseThreshold,
		DuplicateOverlap: DefaultDuplicateOverlap,
	}
}

func (c WindowConfig) valid() bool {
	return c.Min > 0 && c.Max >= c.Min && c.Step > 0
}

// GenerateWindows slides a cursor over the transcript timeline in Step
// increments and grows a window from the first segment still running at the
// cursor. Pauses longer than cfg.Pause are bridged only while the window is
// shorter than cfg.Min. The overlapping raw windows are deduplicated before
// returning, and Index is reassigned in final order.
//
// Degenerate config or input yields nil; nothing here returns an error.
func GenerateWindows(segs []types.TimedSegment, cfg WindowConfig) []types.CandidateWindow {
	if !cfg.valid() || len(segs) == 0 {
		return nil
	}
	if cfg.Pause < 0 {
		cfg.Pause = 0
	}
	segs = ordered(segs)

	var timelineEnd time.Duration
	for _, s := range segs {
		if s.End > timelineEnd {
			timelineEnd = s.End
		}
	}

	var raw []types.CandidateWindow
	first := 0
	for cursor := time.Duration(0); cursor < timelineEnd; cursor += cfg.Step {
		// Segments ending at or before the cursor never become eligible again.
		for first < len(segs) && (segs[first].End <= cursor || !usable(segs[first])) {
			first++
		}
		if first >= len(segs) {
			break
		}
		if w, ok := growWindow(segs, first, cfg); ok {
			raw = append(raw, w)
		}
	}

	return DedupWindows(raw, cfg.DuplicateOverlap)
}

func growWindow(segs []types.TimedSegment, first int, cfg WindowConfig) (types.CandidateWindow, bool) {
	start := segs[first].Start
	end := segs[first].End
	last := first
	parts := make([]string, 0, 8)
	if t := strings.TrimSpace(segs[first].Text); t != "" {
		parts = append(parts, t)
	}

	for j := first + 1; j < len(segs) && end-start < cfg.Max; j++ {
		s := segs[j]
		if !usable(s) {
			continue
		}
		if s.Start-end > cfg.Pause && end-start >= cfg.Min {
			break
		}
		if s.End-start > cfg.Max {
			break
		}
		if s.End > end {
			end = s.End
		}
		last = j
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}

	d := end - start
	if d < cfg.Min || d > cfg.Max {
		return types.CandidateWindow{}, false
	}
	return types.CandidateWindow{
		Start:             start,
		End:               end,
		Text:              strings.Join(parts, " "),
		Segments:          segs[first : last+1 : last+1],
		StartSegmentIndex: first,
		EndSegmentIndex:   last,
	}, true
}

// DedupWindows sorts windows by (start, duration) and drops every window whose
// overlap with an already kept window, divided by the shorter duration,
// exceeds maxOverlap. The input slice is not modified.
func DedupWindows(windows []types.CandidateWindow, maxOverlap float64) []types.CandidateWindow {
	if len(windows) == 0 {
		return nil
	}
	if maxOverlap <= 0 {
		maxOverlap = DefaultDuplicateOverlap
	}

	sorted := make([]types.CandidateWindow, len(windows))
	copy(sorted, windows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].Duration() < sorted[j].Duration()
		}
		return sorted[i].Start < sorted[j].Start
	})

	kept := make([]types.CandidateWindow, 0, len(sorted))
	for _, w := range sorted {
		if isDuplicate(kept, w, maxOverlap) {
			continue
		}
		kept = append(kept, w)
	}
	for i := range kept {
		kept[i].Index = i
	}
	return kept
}

func isDuplicate(kept []types.CandidateWindow, w types.CandidateWindow, maxOverlap float64) bool {
	for _, k := range kept {
		if overlapRatio(k, w) > maxOverlap {
			return true
		}
	}
	return false
}

func overlapRatio(a, b types.CandidateWindow) float64 {
	lo := a.Start
	if b.Start > lo {
		lo = b.Start
	}
	hi := a.End
	if b.End < hi {
		hi = b.End
	}
	if hi <= lo {
		return 0
	}
	shorter := a.Duration()
	if d := b.Duration(); d < shorter {
		shorter = d
	}
	if shorter <= 0 {
		return 0
	}
	return float64(hi-lo) / float64(shorter)
}

// ordered returns segs sorted by start. Already ordered input is returned as is,
// so segment indices in the result refer to the caller's slice.
func ordered(segs []types.TimedSegment) []types.TimedSegment {
	if sort.SliceIsSorted(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start }) {
		return segs
	}
	out := make([]types.TimedSegment, len(segs))
	copy(out, segs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func usable(s types.TimedSegment) bool { return s.End > s.Start }
